package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"gofinances/internal/core"
	"gofinances/internal/services"
)

type createTransactionRequest struct {
	Title    string     `json:"title"`
	Value    core.Money `json:"value"`
	Type     string     `json:"type"`
	Category string     `json:"category"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.svc.Store.ListTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.svc.Balance.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionJSONList(transactions),
		"balance":      toBalanceJSON(balance),
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, core.NewValidationError("invalid request body", err))
		return
	}

	created, err := s.svc.Writer.Create(r.Context(), services.CreateTransactionInput{
		Title:         strings.TrimSpace(req.Title),
		Value:         req.Value,
		Type:          req.Type,
		CategoryTitle: req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionJSON(created))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/transactions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	if err := s.svc.Deleter.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleImport spools the uploaded CSV to a temporary file and hands the path
// to the importer, which owns the artifact from there (including removal).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.importMaxBytes)
	if err := r.ParseMultipartForm(s.importMaxBytes); err != nil {
		writeError(w, r, core.NewValidationError("invalid multipart upload", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, core.NewValidationError("missing 'file' upload field", err))
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp(s.uploadDir, "import-*.csv")
	if err != nil {
		writeError(w, r, core.NewStorageError("create upload spool file", err))
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		writeError(w, r, core.NewStorageError("spool upload", err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		writeError(w, r, core.NewStorageError("spool upload", err))
		return
	}

	slog.InfoContext(r.Context(), "Import upload received",
		"filename", header.Filename,
		"bytes", header.Size)

	created, err := s.svc.Importer.ImportFile(r.Context(), tmp.Name())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transactions": toTransactionJSONList(created),
		"count":        len(created),
	})
}
