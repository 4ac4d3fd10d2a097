// Package ledger appends canonical orders as rows to a Google Sheets
// spreadsheet, the system's append-only external store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"orderledger/internal/order"
)

// Config identifies the target spreadsheet.
type Config struct {
	// SpreadsheetID is the Google Sheets document id.
	SpreadsheetID string

	// SheetName is the tab holding the ledger, e.g. "Orders".
	SheetName string

	// CredentialsFile is the path to a service account key with the
	// spreadsheets scope.
	CredentialsFile string
}

// Writer appends orders to the configured sheet. Safe for concurrent use;
// the sheet's own append semantics serialize concurrent rows.
type Writer struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewWriter builds a Writer backed by the Google Sheets API.
func NewWriter(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is empty")
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("sheet name is empty")
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWriterWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWriterWithService builds a Writer from an existing sheets service.
// Tests use this with a service pointed at a local fake.
func NewWriterWithService(svc *sheets.Service, spreadsheetID, sheetName string, logger *slog.Logger) *Writer {
	return &Writer{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}
}

// Append flattens o and issues a single values.append against the ledger
// range. The sheet places the row after existing content; no read-modify-write
// and no client-side offset. Failures are classified as transient or
// permanent for the caller's retry decision.
func (w *Writer) Append(ctx context.Context, o order.Order) error {
	row, err := Flatten(o)
	if err != nil {
		return &PermanentError{Err: err}
	}

	vr := &sheets.ValueRange{Values: [][]any{row}}
	_, err = w.svc.Spreadsheets.Values.
		Append(w.spreadsheetID, w.dataRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}

	w.logger.Info("order appended to ledger",
		"order_id", o.ID,
		"order_number", o.Number,
		"topic", o.EventTopic,
	)
	return nil
}

// EnsureHeaders idempotently overwrites the first row of the sheet with the
// fixed header sequence. Called once at process startup, never per request.
func (w *Writer) EnsureHeaders(ctx context.Context) error {
	cells := make([]any, len(Headers))
	for i, h := range Headers {
		cells[i] = h
	}

	vr := &sheets.ValueRange{Values: [][]any{cells}}
	_, err := w.svc.Spreadsheets.Values.
		Update(w.spreadsheetID, w.headerRange(), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}

	w.logger.Info("ledger headers initialized", "sheet", w.sheetName, "columns", len(Headers))
	return nil
}

func (w *Writer) dataRange() string {
	return fmt.Sprintf("%s!A:%s", w.sheetName, lastColumn())
}

func (w *Writer) headerRange() string {
	return fmt.Sprintf("%s!A1:%s1", w.sheetName, lastColumn())
}

// lastColumn derives the rightmost column letter from the header count.
// The ledger is narrower than 26 columns.
func lastColumn() string {
	return string(rune('A' + len(Headers) - 1))
}

// classify maps a Sheets API failure to the retry taxonomy: rate limits and
// server errors are transient, everything else (auth, bad range, permanent
// quota) is not. Transport-level failures count as transient.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError {
			return &TransientError{Err: err}
		}
		return &PermanentError{Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &PermanentError{Err: err}
	}
	return &TransientError{Err: err}
}
