// Package importlog keeps an append-only CSV record of every elevator import
// attempt under <dataDir>/logs/import-log.csv.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Actions recorded in the log.
const (
	ActionImported = "imported"
	ActionSkipped  = "skipped"
	ActionLocked   = "locked"
	ActionFailed   = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp time.Time
	File      string
	Action    string
	Tickets   int
	Splits    int
	Details   string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,file,action,tickets,splits,details"

const (
	numFields  = 6
	logDir     = "logs"
	logFile    = "import-log.csv"
	colTime    = 0
	colFile    = 1
	colAction  = 2
	colTickets = 3
	colSplits  = 4
	colDetails = 5
)

// Path returns the log file under dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, logDir, logFile)
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.Format(time.RFC3339)
	row[colFile] = e.File
	row[colAction] = e.Action
	row[colTickets] = strconv.Itoa(e.Tickets)
	row[colSplits] = strconv.Itoa(e.Splits)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	tickets, err := strconv.Atoi(record[colTickets])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing tickets %q: %w", record[colTickets], err)
	}
	splits, err := strconv.Atoi(record[colSplits])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing splits %q: %w", record[colSplits], err)
	}
	return Entry{
		Timestamp: ts,
		File:      record[colFile],
		Action:    record[colAction],
		Tickets:   tickets,
		Splits:    splits,
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to the log under dataDir, creating the file and
// header if needed.
func Append(dataDir string, entries ...Entry) error {
	if err := os.MkdirAll(filepath.Join(dataDir, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(dataDir)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the log under dataDir, or nil when there is
// no log yet.
func Read(dataDir string) ([]Entry, error) {
	f, err := os.Open(Path(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
