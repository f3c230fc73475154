package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"funds/internal/core"
	ports "funds/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultTransactionsSheet = "Transactions"
	DefaultTargetsSheet      = "Targets"
)

// Client rewrites a spreadsheet's Transactions and Targets tabs with the
// current ledger.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	targetsSheet      string
	currency          string
}

var _ ports.Mirror = (*Client)(nil)

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	Currency           string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if len(opts) == 0 {
		creds, err := serviceAccountCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		transactionsSheet: DefaultTransactionsSheet,
		targetsSheet:      DefaultTargetsSheet,
		currency:          currency,
	}, nil
}

// serviceAccountCredentials prefers inline JSON, then a file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Name() string { return "google_sheets" }

// Mirror replaces both tabs. Missing tabs are created first.
func (c *Client) Mirror(ctx context.Context, doc core.Document) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheets(ctx, c.transactionsSheet, c.targetsSheet); err != nil {
		return err
	}

	txRange := c.transactionsSheet + "!A:Z"
	targetRange := c.targetsSheet + "!A:Z"
	_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: []string{txRange, targetRange},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheets: %w", err)
	}

	summary := core.Summarize(doc.Transactions, doc.Targets)
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: c.transactionsSheet + "!A1", Values: TransactionRows(summary.Transactions, c.currency)},
			{Range: c.targetsSheet + "!A1", Values: TargetRows(summary.Targets, c.currency)},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheets: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"transactions", len(doc.Transactions),
		"targets", len(doc.Targets))

	return nil
}

func (c *Client) ensureSheets(ctx context.Context, titles ...string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}

	var reqs []*gsheet.Request
	for _, title := range titles {
		if !existing[title] {
			reqs = append(reqs, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
			})
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheets: %w", err)
	}
	slog.InfoContext(ctx, "Created missing sheets", "count", len(reqs))
	return nil
}
