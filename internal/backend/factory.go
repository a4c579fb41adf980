// Package backend opens the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"syntego/internal/ledger/csvfile"
	"syntego/internal/ledger/memory"
	"syntego/internal/ledger/sheets"
	"syntego/internal/ledger/sqlite"
	"syntego/internal/log"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		f.logger.Info("Initialized CSV backend", "path", config.LedgerFile)
		return &BackendResult{Store: csvfile.New(config.LedgerFile)}, nil
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: memory.New(nil)}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := sqlite.Open(ctx, config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &BackendResult{Store: store}, nil
}
