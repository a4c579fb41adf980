// Package sheets stores the ledger in a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"syntego/internal/core"
	"syntego/internal/ledger"
	"syntego/internal/log"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

var _ ledger.Store = (*Store)(nil)

// New authenticates with a service account and returns a store for cfg.SheetName.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing client; tests point it at a fake server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Store {
	if sheet == "" {
		sheet = "Ledger"
	}
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A:E", s.sheet)
}

func (s *Store) Load(ctx context.Context) (core.Ledger, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", s.sheet, err)
	}
	l, err := ledgerFromValues(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", s.sheet, err)
	}
	s.logger.DebugContext(ctx, "Ledger loaded from sheet", log.FieldCount, len(l))
	return l, nil
}

// Save clears the data range and writes the header plus every row.
func (s *Store) Save(ctx context.Context, l core.Ledger) error {
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, s.dataRange(), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", s.sheet, err)
	}
	vr := &gsheet.ValueRange{Values: valuesFromLedger(l)}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!A1", s.sheet), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet %s: %w", s.sheet, err)
	}
	s.logger.DebugContext(ctx, "Ledger written to sheet", log.FieldCount, len(l))
	return nil
}

func ledgerFromValues(values [][]any) (core.Ledger, error) {
	out := core.Ledger{}
	for i, row := range values {
		rec := toStrings(row)
		if isBlank(rec) {
			continue
		}
		if i == 0 && ledger.IsHeader(rec) {
			continue
		}
		for len(rec) < len(ledger.Header) {
			rec = append(rec, "")
		}
		tx, err := ledger.DecodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func valuesFromLedger(l core.Ledger) [][]any {
	out := make([][]any, 0, len(l)+1)
	out = append(out, toAny(ledger.Header))
	for _, t := range l {
		out = append(out, toAny(ledger.EncodeRow(t)))
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
