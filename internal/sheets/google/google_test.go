package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pocketbook/internal/core"
)

// fakeSheets serves the handful of Sheets REST calls the client makes,
// backed by a single in-memory grid.
type fakeSheets struct {
	mu      sync.Mutex
	grid    [][]any
	gets    int
	deletes int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(rest, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			rg := rq.DeleteDimension.Range
			f.grid = append(f.grid[:rg.StartIndex], f.grid[rg.EndIndex:]...)
			f.deletes++
		}
		fmt.Fprint(w, `{}`)

	case strings.Contains(rest, "/values/"):
		rng := rest[strings.Index(rest, "/values/")+len("/values/"):]
		if r.Method == http.MethodGet {
			f.gets++
			col := make([][]any, 0, len(f.grid))
			for _, row := range f.grid {
				col = append(col, row[:1])
			}
			_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: col})
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cell := rng[strings.Index(rng, "!A")+2 : strings.Index(rng, ":")]
		row, err := strconv.Atoi(cell)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for len(f.grid) < row {
			f.grid = append(f.grid, []any{""})
		}
		f.grid[row-1] = vr.Values[0]
		fmt.Fprint(w, `{}`)

	default:
		fmt.Fprint(w, `{"sheets":[{"properties":{"sheetId":7,"title":"Ledger"}}]}`)
	}
}

func (f *fakeSheets) counts() (gets, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.deletes
}

func (f *fakeSheets) cell(row, col int) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grid[row-1][col]
}

func (f *fakeSheets) idAt(row int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprint(f.grid[row-1][0])
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", "Ledger"), fake
}

func ledgerTx(id int64, amount string) core.Transaction {
	category := "food"
	account := uuid.New()
	return core.Transaction{
		ID:              id,
		AccountID:       &account,
		Description:     "lunch",
		Amount:          decimal.RequireFromString(amount),
		Category:        &category,
		Type:            core.Expense,
		TransactionDate: core.NewDate(2024, time.March, 1),
	}
}

func TestUpsertAppendsThenReplaces(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, ledgerTx(1, "12.5"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Ledger!A2:H2" {
		t.Errorf("ref = %q, want Ledger!A2:H2", ref)
	}
	if got := fake.idAt(1); got != "ID" {
		t.Errorf("header cell = %q, want ID", got)
	}

	if ref, _ = c.Upsert(ctx, ledgerTx(2, "3")); ref != "Ledger!A3:H3" {
		t.Errorf("second ref = %q, want Ledger!A3:H3", ref)
	}
	if ref, _ = c.Upsert(ctx, ledgerTx(1, "99")); ref != "Ledger!A2:H2" {
		t.Errorf("replaced ref = %q, want Ledger!A2:H2", ref)
	}

	if gets, _ := fake.counts(); gets != 1 {
		t.Errorf("index reads = %d, want 1 while cache is fresh", gets)
	}
	if got := fake.cell(2, 4); got != "99.00" {
		t.Errorf("amount cell = %v, want 99.00", got)
	}
}

func TestRemoveDeletesRowAndReindexes(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if _, err := c.Upsert(ctx, ledgerTx(id, "1")); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, deletes := fake.counts(); deletes != 1 {
		t.Fatalf("deletes = %d, want 1", deletes)
	}
	if got := fake.idAt(2); got != "2" {
		t.Errorf("row 2 id = %q, want 2 after shift", got)
	}

	ref, err := c.Upsert(ctx, ledgerTx(3, "1"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Ledger!A3:H3" {
		t.Errorf("ref after removal = %q, want Ledger!A3:H3", ref)
	}

	if err := c.Remove(ctx, 42); err != nil {
		t.Errorf("Remove() of unknown id error = %v", err)
	}
}

func TestIndexRows(t *testing.T) {
	values := [][]any{{"ID"}, {"7"}, {}, {"x"}, {"12"}}
	rows := indexRows(values)
	if len(rows) != 2 || rows[7] != 2 || rows[12] != 5 {
		t.Errorf("indexRows() = %v", rows)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("New() error = %v", err)
	}
}

func TestNewSheetsServiceMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := newSheetsService(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("newSheetsService() error = %v", err)
	}
}
