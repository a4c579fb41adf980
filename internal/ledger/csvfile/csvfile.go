// Package csvfile stores the ledger in a single CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"syntego/internal/core"
	"syntego/internal/ledger"
)

// DefaultPath is the file name used when none is configured.
const DefaultPath = "finance_data.csv"

type Store struct {
	mu   sync.Mutex
	path string
}

var _ ledger.Store = (*Store)(nil)

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file is an empty ledger.
func (s *Store) Load(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out core.Ledger
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger file: %w", err)
		}
		if line == 1 && ledger.IsHeader(rec) {
			continue
		}
		tx, err := ledger.DecodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		out = append(out, tx)
	}
	if out == nil {
		out = core.Ledger{}
	}
	return out, nil
}

// Save overwrites the file through a temporary file and a rename, so readers
// never see a half written ledger.
func (s *Store) Save(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(ledger.Header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range l {
		if err := w.Write(ledger.EncodeRow(t)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
