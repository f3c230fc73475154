package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"funds/internal/core"

	goption "google.golang.org/api/option"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet", ServiceAccountFile: "/does/not/exist.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMirror_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.Mirror(context.Background(), core.Document{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

type recordedCall struct {
	Method string
	Path   string
	Body   string
}

func TestMirror_AgainstFakeAPI(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{r.Method, r.URL.Path, string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			// Only the Transactions tab exists yet.
			io.WriteString(w, `{"sheets":[{"properties":{"title":"Transactions"}}]}`)
			return
		}
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1", Currency: "EUR"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	doc := core.Document{
		Transactions: []core.Transaction{{ID: "a", Note: "salary", Amount: core.Cents(100000)}},
		Targets:      []core.Target{{ID: 1, Name: "bike", Amount: core.Cents(50000)}},
	}
	if err := c.Mirror(context.Background(), doc); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 4 {
		t.Fatalf("got %d calls, want 4: %+v", len(calls), calls)
	}
	if calls[0].Method != http.MethodGet || !strings.HasSuffix(calls[0].Path, "/spreadsheets/sheet-1") {
		t.Errorf("first call should fetch the spreadsheet, got %+v", calls[0])
	}
	if !strings.HasSuffix(calls[1].Path, "/spreadsheets/sheet-1:batchUpdate") || !strings.Contains(calls[1].Body, `"title":"Targets"`) {
		t.Errorf("second call should add the Targets tab, got %+v", calls[1])
	}
	if !strings.HasSuffix(calls[2].Path, "/values:batchClear") {
		t.Errorf("third call should clear values, got %+v", calls[2])
	}
	if !strings.HasSuffix(calls[3].Path, "/values:batchUpdate") {
		t.Errorf("fourth call should write values, got %+v", calls[3])
	}

	var update struct {
		ValueInputOption string `json:"valueInputOption"`
		Data             []struct {
			Range  string  `json:"range"`
			Values [][]any `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(calls[3].Body), &update); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if update.ValueInputOption != "RAW" || len(update.Data) != 2 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if update.Data[0].Range != "Transactions!A1" || len(update.Data[0].Values) != 2 {
		t.Errorf("unexpected transactions range: %+v", update.Data[0])
	}
	if got := update.Data[1].Values[1][3]; got != "100.00" {
		t.Errorf("target progress = %v, want 100.00", got)
	}
}

func TestTransactionRows(t *testing.T) {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	rows := TransactionRows([]core.Transaction{
		{ID: "a", Timestamp: ts, Note: "rent", Amount: core.Cents(-30000)},
		{ID: "b", Note: "lent", Amount: core.Cents(10000), IsLoan: true, DueDate: core.NewDate(2025, 3, 1), PaidAmount: core.Cents(12000)},
	}, "USD")

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("missing header row: %v", rows[0])
	}
	if rows[1][1] != "2025-02-03T04:05:06Z" || rows[1][3] != "-300.00" || rows[1][4] != "-$300.00" || rows[1][6] != "" {
		t.Errorf("unexpected plain row: %v", rows[1])
	}
	if rows[2][6] != "2025-03-01" || rows[2][7] != "120.00" || rows[2][8] != "0.00" {
		t.Errorf("unexpected loan row: %v", rows[2])
	}
}

func TestTargetRows(t *testing.T) {
	p := core.ProgressOf(core.Target{ID: 9, Name: "trip", Amount: core.Cents(40000)}, core.Cents(10000))
	rows := TargetRows([]core.Progress{p}, "USD")
	want := []any{int64(9), "trip", "$400.00", "25.00", "$300.00", false}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("col %d = %v, want %v", i, rows[1][i], want[i])
		}
	}
}
