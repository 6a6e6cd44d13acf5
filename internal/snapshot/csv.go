package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"inspectsync/internal/models"
)

// ErrNoBookingIDColumn is returned when a snapshot file has rows but no
// "Booking ID" column to key them by.
var ErrNoBookingIDColumn = errors.New("snapshot: header has no Booking ID column")

const utf8BOM = "\ufeff"

// Load reads the snapshot file at path. A missing file yields an empty
// snapshot.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return s, nil
}

// Read parses CSV content using its first row as column names and indexes
// rows by their Booking ID column.
func Read(r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	s := New()
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, ok := index[models.ColBookingID]; !ok {
			return nil, ErrNoBookingIDColumn
		}
		b := models.FromRecord(index, record)
		s.Set(b.ID, b)
	}
	return s, nil
}

// Write replaces the file at path with the fixed header followed by one row
// per entry. Content goes to a temporary sibling first and is renamed into
// place.
func Write(path string, s *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Encode writes the snapshot as CSV with CRLF row terminators.
func Encode(w io.Writer, s *Snapshot) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(models.Header); err != nil {
		return err
	}
	var werr error
	s.Range(func(_ string, b models.Booking) bool {
		werr = writer.Write(b.Row())
		return werr == nil
	})
	if werr != nil {
		return werr
	}
	writer.Flush()
	return writer.Error()
}
