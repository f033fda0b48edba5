package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gofinances/internal/core"
)

type categoryJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type transactionJSON struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Value     core.Money   `json:"value"`
	Type      string       `json:"type"`
	Category  categoryJSON `json:"category"`
	CreatedAt time.Time    `json:"created_at"`
}

type balanceJSON struct {
	Income  core.Money `json:"income"`
	Outcome core.Money `json:"outcome"`
	Total   core.Money `json:"total"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:    t.ID,
		Title: t.Title,
		Value: t.Value,
		Type:  string(t.Type),
		Category: categoryJSON{
			ID:    t.CategoryID,
			Title: t.CategoryTitle,
		},
		CreatedAt: t.CreatedAt,
	}
}

func toTransactionJSONList(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(ts))
	for i, t := range ts {
		out[i] = toTransactionJSON(t)
	}
	return out
}

func toBalanceJSON(b core.Balance) balanceJSON {
	return balanceJSON{Income: b.Income, Outcome: b.Outcome, Total: b.Total}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the ledger error taxonomy onto HTTP statuses. Errors
// outside the taxonomy are logged and masked as 500s.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var le *core.LedgerError
	if !errors.As(err, &le) {
		slog.ErrorContext(r.Context(), "Unclassified error", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "internal server error",
		})
		return
	}

	status := http.StatusInternalServerError
	switch le.Kind {
	case core.KindValidation, core.KindOverdraft:
		status = http.StatusBadRequest
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindConflict:
		status = http.StatusConflict
	case core.KindStorage:
		slog.ErrorContext(r.Context(), "Storage error", "error", err, "path", r.URL.Path)
	}

	writeJSON(w, status, map[string]string{
		"status":  "error",
		"kind":    string(le.Kind),
		"message": le.Msg,
	})
}
