package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gofinances/internal/services"
	"gofinances/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	store, err := storage.NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploadDir := t.TempDir()
	balance := services.NewBalanceCalculator(store)
	resolver := services.NewCategoryResolver(store)
	srv := NewServer("", Services{
		Store:    store,
		Balance:  balance,
		Writer:   services.NewTransactionWriter(store, balance, resolver, nil),
		Deleter:  services.NewTransactionDeleter(store, nil),
		Importer: services.NewBulkImporter(store, resolver, nil, nil),
	}, uploadDir, 1<<20, nil)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, uploadDir
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateAndListEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/transactions",
		`{"title":"Salary","value":"3000.00","type":"income","category":"Job"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		ID       string      `json:"id"`
		Title    string      `json:"title"`
		Value    json.Number `json:"value"`
		Type     string      `json:"type"`
		Category struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"category"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" || created.Value != "3000.00" || created.Category.Title != "Job" {
		t.Errorf("created = %+v", created)
	}

	resp = postJSON(t, ts.URL+"/transactions",
		`{"title":"Groceries","value":125.5,"type":"outcome","category":"Food"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST outcome status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(ts.URL + "/transactions")
	if err != nil {
		t.Fatalf("GET /transactions: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", getResp.StatusCode)
	}
	var listed struct {
		Transactions []struct {
			Title string `json:"title"`
		} `json:"transactions"`
		Balance struct {
			Income  json.Number `json:"income"`
			Outcome json.Number `json:"outcome"`
			Total   json.Number `json:"total"`
		} `json:"balance"`
	}
	decodeBody(t, getResp, &listed)
	if len(listed.Transactions) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(listed.Transactions))
	}
	if listed.Balance.Income != "3000.00" || listed.Balance.Outcome != "125.50" || listed.Balance.Total != "2874.50" {
		t.Errorf("balance = %+v", listed.Balance)
	}
}

func TestCreateEndpointRejections(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := map[string]struct {
		body     string
		wantCode int
		wantKind string
	}{
		"invalid json":  {`{"title":`, http.StatusBadRequest, "validation"},
		"unknown type":  {`{"title":"x","value":"10","type":"transfer","category":"Misc"}`, http.StatusBadRequest, "validation"},
		"bad value":     {`{"title":"x","value":"abc","type":"income","category":"Misc"}`, http.StatusBadRequest, "validation"},
		"signed value":  {`{"title":"x","value":"-10","type":"income","category":"Misc"}`, http.StatusBadRequest, "validation"},
		"empty title":   {`{"title":"","value":"10","type":"income","category":"Misc"}`, http.StatusBadRequest, "validation"},
		"overdraft":     {`{"title":"TV","value":"10.00","type":"outcome","category":"Misc"}`, http.StatusBadRequest, "overdraft"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/transactions", tc.body)
			if resp.StatusCode != tc.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantCode)
			}
			var body struct {
				Status string `json:"status"`
				Kind   string `json:"kind"`
			}
			decodeBody(t, resp, &body)
			if body.Status != "error" || body.Kind != tc.wantKind {
				t.Errorf("body = %+v, want error/%s", body, tc.wantKind)
			}
		})
	}
}

func TestDeleteEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/transactions",
		`{"title":"Salary","value":"100","type":"income","category":"Job"}`)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	doDelete := func(id string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/transactions/"+id, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	if resp := doDelete(created.ID); resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}
	if resp := doDelete(created.ID); resp.StatusCode != http.StatusNotFound {
		t.Errorf("re-DELETE status = %d, want 404", resp.StatusCode)
	}
	if resp := doDelete("not-a-uuid"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("DELETE malformed id status = %d, want 400", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	ts, uploadDir := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(fw, "title, type, value, category\n")
	fmt.Fprint(fw, "Loan, income, 1500, Salary\n")
	fmt.Fprint(fw, "Website Hosting, outcome, 50, Others\n")
	mw.Close()

	resp, err := http.Post(ts.URL+"/transactions/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d, want 201", resp.StatusCode)
	}
	var result struct {
		Count        int `json:"count"`
		Transactions []struct {
			Title string `json:"title"`
		} `json:"transactions"`
	}
	decodeBody(t, resp, &result)
	if result.Count != 2 || len(result.Transactions) != 2 {
		t.Fatalf("import result = %+v, want 2 transactions", result)
	}
	if result.Transactions[0].Title != "Loan" {
		t.Errorf("first imported = %q, want Loan", result.Transactions[0].Title)
	}

	// The spooled upload is gone once the import finished.
	leftovers, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("%d files left in upload dir, want 0", len(leftovers))
	}
}

func TestImportEndpointMissingFileField(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/transactions/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/transactions"},
		{http.MethodGet, "/transactions/import"},
		{http.MethodPost, "/transactions/some-id"},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
