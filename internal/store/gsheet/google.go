// Package gsheet implements the entry store over a hosted Google Sheets
// worksheet, the remote table backend. The worksheet carries a header row
// and the columns id, datetime, date, food_name, calories, protein; ids are
// assigned here and opaque to callers.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"nutrilog/internal/core"
	"nutrilog/internal/store"

	goption "google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string

	// Numeric sheet id, resolved once; required for row deletion.
	sheetID    int64
	hasSheetID bool
}

var _ store.EntryStore = (*Store)(nil)

// NewFromEnv creates a remote table store from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "food_log").
func NewFromEnv(ctx context.Context) (*Store, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "food_log"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets service from service account
// credentials found in the environment.
func newSheetsService(ctx context.Context) (*sheets.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := sheets.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (s *Store) LoadAll(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry)
	}
	return out, nil
}

func (s *Store) LoadForDate(ctx context.Context, day string) ([]core.Entry, error) {
	return s.LoadForRange(ctx, day, day)
}

// LoadForRange scans the sheet and filters client-side; the hosted table has
// no server-side query surface, so this is the "load_all then filter"
// equivalent the contract allows.
func (s *Store) LoadForRange(ctx context.Context, startDay, endDay string) ([]core.Entry, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, 0, len(all))
	for _, e := range all {
		if day := e.DayKey(); day >= startDay && day <= endDay {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, e core.Entry) (core.Entry, error) {
	if s.svc == nil {
		return core.Entry{}, errors.New("sheets service not initialized")
	}

	values, err := s.readValues(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	rows, err := parseRows(ctx, values)
	if err != nil {
		return core.Entry{}, err
	}

	// Assign the next free id; the assignment scheme belongs to this store
	// and callers treat the result as opaque.
	maxID := int64(0)
	for _, r := range rows {
		if r.numericID > maxID {
			maxID = r.numericID
		}
	}
	e.ID = fmt.Sprintf("%d", maxID+1)

	// The next free row is counted from the raw cells: a malformed row is
	// skipped by the parser but still occupies its line in the worksheet
	// and must not be overwritten.
	nextRow := nextFreeRow(values)
	if len(values) == 0 {
		if err := s.ensureHeader(ctx); err != nil {
			return core.Entry{}, err
		}
	}

	rng := fmt.Sprintf("%s!A%d:F%d", s.sheetName, nextRow, nextRow)
	vr := &sheets.ValueRange{Values: [][]any{rowValues(e)}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return core.Entry{}, fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}

	slog.InfoContext(ctx, "Entry saved to remote table",
		"id", e.ID, "food_name", e.FoodName, "row", nextRow)

	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	row, err := s.findRow(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}

	updated, err := patch.Apply(row.entry)
	if err != nil {
		return core.Entry{}, err
	}

	rng := fmt.Sprintf("%s!A%d:F%d", s.sheetName, row.sheetRow, row.sheetRow)
	vr := &sheets.ValueRange{Values: [][]any{rowValues(updated)}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return core.Entry{}, fmt.Errorf("update row %d in sheet %s: %w", row.sheetRow, s.sheetName, err)
	}

	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	row, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}

	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row.sheetRow - 1),
					EndIndex:   int64(row.sheetRow),
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row.sheetRow, s.sheetName, err)
	}

	slog.InfoContext(ctx, "Entry deleted from remote table", "id", id, "row", row.sheetRow)
	return nil
}

func (s *Store) readValues(ctx context.Context) ([][]any, error) {
	if s.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A%d:F", s.sheetName, dataStartRow)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (s *Store) readRows(ctx context.Context) ([]sheetRow, error) {
	values, err := s.readValues(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(ctx, values)
}

func (s *Store) findRow(ctx context.Context, id string) (sheetRow, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return sheetRow{}, err
	}
	for _, r := range rows {
		if r.entry.ID == id {
			return r, nil
		}
	}
	return sheetRow{}, fmt.Errorf("entry %s: %w", id, store.ErrNotFound)
}

func (s *Store) ensureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:F1", s.sheetName)
	vr := &sheets.ValueRange{Values: [][]any{{"id", "datetime", "date", "food_name", "calories", "protein"}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header in sheet %s: %w", s.sheetName, err)
	}
	return nil
}

func (s *Store) resolveSheetID(ctx context.Context) (int64, error) {
	if s.hasSheetID {
		return s.sheetID, nil
	}
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheetName {
			s.sheetID = sh.Properties.SheetId
			s.hasSheetID = true
			return s.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", s.sheetName)
}
