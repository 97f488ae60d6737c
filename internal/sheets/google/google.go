package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	ports "pocketbook/internal/sheets"
)

const defaultCacheValidDuration = 5 * time.Minute

// Options selects the spreadsheet and the service account credentials.
// With neither CredentialsJSON nor CredentialsFile set, GOOGLE_APPLICATION_CREDENTIALS
// is consulted.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client writes ledger rows to one sheet. It keeps an index of transaction
// id to row number so upserts and removals need a single API round trip
// while the index is fresh.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu                 sync.Mutex
	rows               map[int64]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
	sheetID            *int64
}

var _ ports.LedgerWriter = (*Client)(nil)

func logger() *slog.Logger {
	return slog.Default().With(applog.FieldComponent, applog.ComponentSheets)
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Ledger"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: defaultCacheValidDuration,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(opts.CredentialsFile)
	if opts.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case opts.CredentialsJSON != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger().InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"component", "sheets",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func rowValues(t core.Transaction) []any {
	account := ""
	if t.AccountID != nil {
		account = t.AccountID.String()
	}
	return []any{
		t.ID,
		t.TransactionDate.String(),
		string(t.Type),
		t.Description,
		t.Amount.StringFixed(2),
		t.CategoryLabel(),
		account,
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// indexRows maps the ids found in column A to their 1-based row numbers.
// Header and blank rows are skipped.
func indexRows(values [][]any) map[int64]int {
	rows := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil {
			continue
		}
		rows[id] = i + 1
	}
	return rows
}

func (c *Client) rangeOf(row int) string {
	return fmt.Sprintf("%s!A%d:H%d", c.sheetName, row, row)
}

// loadIndexLocked refreshes the id index when it has expired.
func (c *Client) loadIndexLocked(ctx context.Context) error {
	if c.rows != nil && time.Now().Before(c.cacheExpiresAt) {
		return nil
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	c.rows = indexRows(resp.Values)
	c.cachedRowCount = len(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)

	if c.cachedRowCount == 0 {
		header := make([]any, len(ports.Header))
		for i, h := range ports.Header {
			header[i] = h
		}
		if err := c.writeRowLocked(ctx, 1, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		c.cachedRowCount = 1
	}
	return nil
}

func (c *Client) writeRowLocked(ctx context.Context, row int, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf(row), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (c *Client) invalidateLocked() {
	c.rows = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexLocked(ctx); err != nil {
		return "", err
	}

	row, exists := c.rows[t.ID]
	if !exists {
		row = c.cachedRowCount + 1
	}
	if err := c.writeRowLocked(ctx, row, rowValues(t)); err != nil {
		c.invalidateLocked()
		return "", fmt.Errorf("failed to update %s: %w", c.rangeOf(row), err)
	}
	if !exists {
		c.rows[t.ID] = row
		c.cachedRowCount = row
	}
	return c.rangeOf(row), nil
}

func (c *Client) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexLocked(ctx); err != nil {
		return err
	}
	row, ok := c.rows[id]
	if !ok {
		logger().WarnContext(ctx, "Ledger row not found, nothing to remove",
			"component", "sheets", "transaction_id", id)
		return nil
	}

	sheetID, err := c.sheetIDLocked(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	// Rows below shift up, so the index is stale either way.
	defer c.invalidateLocked()
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (c *Client) sheetIDLocked(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
