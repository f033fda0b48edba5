// Package http exposes the ledger as a JSON API: list with balance, create,
// delete, and CSV bulk import via multipart upload.
package http

import (
	"net/http"

	"gofinances/internal/ledger"
	applog "gofinances/internal/log"
	"gofinances/internal/services"
)

// Services bundles the ledger components the API fronts.
type Services struct {
	Store    ledger.TransactionStore
	Balance  *services.BalanceCalculator
	Writer   *services.TransactionWriter
	Deleter  *services.TransactionDeleter
	Importer *services.BulkImporter
}

type Server struct {
	http.Server
	svc            Services
	uploadDir      string
	importMaxBytes int64
}

// NewServer wires the routes. The /transactions/import pattern is more
// specific than the /transactions/ subtree, so the mux dispatches it first.
func NewServer(addr string, svc Services, uploadDir string, importMaxBytes int64, logger *applog.Logger) *Server {
	s := &Server{
		svc:            svc,
		uploadDir:      uploadDir,
		importMaxBytes: importMaxBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/import", s.handleImport)
	mux.HandleFunc("/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	var handler http.Handler = mux
	if logger != nil {
		handler = applog.RequestMiddleware(logger)(mux)
	}

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
