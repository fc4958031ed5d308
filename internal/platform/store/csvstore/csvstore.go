// Package csvstore keeps one comma-separated file per table. The first line
// of a file names its columns; every later line is one record.
package csvstore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Row is one record keyed by header column name.
type Row map[string]string

// Store reads and writes the table files under one directory. Writers within
// one process are serialized per table; separate processes sharing the
// directory are not coordinated.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New opens (and creates if needed) the data directory.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

func (s *Store) lock(table string) func() {
	s.mu.Lock()
	l, ok := s.locks[table]
	if !ok {
		l = &sync.Mutex{}
		s.locks[table] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// EnsureTable creates the table file with the given header when it does not
// exist. An existing file is left as it is, even if its header differs.
func (s *Store) EnsureTable(table string, columns []string) error {
	unlock := s.lock(table)
	defer unlock()

	if _, err := os.Stat(s.path(table)); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", table, err)
	}
	return s.writeFile(table, columns, nil)
}

// Header returns the column names of table, or nil if the file is missing.
func (s *Store) Header(table string) ([]string, error) {
	unlock := s.lock(table)
	defer unlock()
	header, _, err := s.readFile(table)
	return header, err
}

// ReadAll returns every well-formed row of table. A missing file reads as
// empty. Rows whose field count differs from the header are skipped.
func (s *Store) ReadAll(table string) ([]Row, error) {
	unlock := s.lock(table)
	defer unlock()
	_, rows, err := s.readFile(table)
	return rows, err
}

// FindOne returns the first row accepted by match, or nil.
func (s *Store) FindOne(table string, match func(Row) bool) (Row, error) {
	rows, err := s.ReadAll(table)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if match(r) {
			return r, nil
		}
	}
	return nil, nil
}

// Append writes row as a new line in header order. Fields missing from the
// header are dropped; the header is never widened. It returns the row as
// stored.
func (s *Store) Append(table string, row Row) (Row, error) {
	unlock := s.lock(table)
	defer unlock()

	header, _, err := s.readFile(table)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("append %s: %w", table, os.ErrNotExist)
	}

	f, err := os.OpenFile(s.path(table), os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", table, err)
	}
	defer f.Close()

	// A hand-edited file may lack the final newline.
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, st.Size()-1); err == nil && last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				return nil, fmt.Errorf("append %s: %w", table, err)
			}
		}
	}

	stored := make(Row, len(header))
	rec := make([]string, len(header))
	for i, col := range header {
		rec[i] = row[col]
		stored[col] = row[col]
	}
	w := csv.NewWriter(f)
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("append %s: %w", table, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("append %s: %w", table, err)
	}
	return stored, nil
}

// UpdateByID merges partial into the row whose id column equals id and
// rewrites the file. It reports whether a row matched.
func (s *Store) UpdateByID(table, id string, partial Row) (bool, error) {
	merged, err := s.update(table, id, partial)
	return merged != nil, err
}

func (s *Store) update(table, id string, partial Row) (Row, error) {
	unlock := s.lock(table)
	defer unlock()

	header, lines, err := s.readLines(table)
	if err != nil || header == nil {
		return nil, err
	}
	var merged Row
	for _, l := range lines {
		if l.row == nil || l.row["id"] != id {
			continue
		}
		for _, col := range header {
			if v, ok := partial[col]; ok {
				l.row[col] = v
			}
		}
		merged = l.row
		break
	}
	if merged == nil {
		return nil, nil
	}
	if err := s.writeFile(table, header, lines); err != nil {
		return nil, err
	}
	return merged, nil
}

// line is one record of a table file. A record that could not be parsed
// has no row; its original bytes are kept in raw and written back as they
// were.
type line struct {
	row Row
	raw []byte
}

func (s *Store) readFile(table string) ([]string, []Row, error) {
	header, lines, err := s.readLines(table)
	if err != nil {
		return nil, nil, err
	}
	var rows []Row
	for _, l := range lines {
		if l.row != nil {
			rows = append(rows, l.row)
		}
	}
	return header, rows, nil
}

func (s *Store) readLines(table string) ([]string, []line, error) {
	data, err := os.ReadFile(s.path(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", table, err)
	}
	header[0] = trimBOM(header[0])

	var lines []line
	for {
		start := r.InputOffset()
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("read %s: %w", table, err)
		}
		if err != nil || len(rec) != len(header) {
			lines = append(lines, line{raw: rawLine(data[start:r.InputOffset()])})
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		lines = append(lines, line{row: row})
	}
	return header, lines, nil
}

// rawLine copies b and makes sure it ends the line.
func rawLine(b []byte) []byte {
	out := append([]byte(nil), b...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

// writeFile replaces the table file atomically.
func (s *Store) writeFile(table string, header []string, lines []line) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	rec := make([]string, len(header))
	for _, l := range lines {
		if l.row == nil {
			w.Flush()
			buf.Write(l.raw)
			continue
		}
		for i, col := range header {
			rec[i] = l.row[col]
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", table, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}

	tmp, err := os.CreateTemp(s.dir, table+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	if err := os.Rename(tmp.Name(), s.path(table)); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
