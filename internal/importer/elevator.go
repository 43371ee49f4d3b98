package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ElevatorParser parses the load history CSV offered by the elevator's
// customer portal. Header names may carry surrounding spaces.
type ElevatorParser struct{}

const (
	elevatorTimeFormat = "01/02/06 15:04:05"

	colTicket = "Ticket Number"
	colTare   = "Tare Time Stamp"
	colCrop   = "Crop Description"
	colUnits  = "Net Units"
)

// cropPrefixes maps crop descriptions to the descriptor used in the book.
var cropPrefixes = []struct{ prefix, crop string }{
	{"CORN", "Corn"},
	{"BEANS", "Soybeans"},
}

// Format returns the parser name.
func (p *ElevatorParser) Format() string { return "elevator" }

// Parse reads an elevator CSV and returns one Load per ticket, time stamp and
// crop description, in file order.
func (p *ElevatorParser) Parse(r io.Reader) ([]Load, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading elevator CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, fmt.Errorf("%w: no loads", ErrInvalidLoads)
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range []string{colTicket, colTare, colCrop, colUnits} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidLoads, c)
		}
	}

	type key struct {
		ticket string
		tare   time.Time
		crop   string
	}
	idx := make(map[key]int)
	var loads []Load
	for i, rec := range records[1:] {
		l, err := parseElevatorRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		k := key{l.Ticket, l.TareTime, l.CropDescription}
		if j, ok := idx[k]; ok {
			loads[j].NetUnits = loads[j].NetUnits.Add(l.NetUnits)
			continue
		}
		idx[k] = len(loads)
		loads = append(loads, l)
	}
	return loads, nil
}

func parseElevatorRow(rec []string, cols map[string]int) (Load, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(rec) {
			return "", fmt.Errorf("%w: short row, no %q", ErrInvalidLoads, name)
		}
		return strings.TrimSpace(rec[i]), nil
	}

	ticket, err := field(colTicket)
	if err != nil {
		return Load{}, err
	}
	if ticket == "" {
		return Load{}, fmt.Errorf("%w: empty ticket number", ErrInvalidLoads)
	}
	tare, err := field(colTare)
	if err != nil {
		return Load{}, err
	}
	at, err := time.Parse(elevatorTimeFormat, tare)
	if err != nil {
		return Load{}, fmt.Errorf("%w: parsing tare time %q: %v", ErrInvalidLoads, tare, err)
	}
	desc, err := field(colCrop)
	if err != nil {
		return Load{}, err
	}
	units, err := field(colUnits)
	if err != nil {
		return Load{}, err
	}
	net, err := decimal.NewFromString(strings.ReplaceAll(units, ",", ""))
	if err != nil {
		return Load{}, fmt.Errorf("%w: parsing net units %q: %v", ErrInvalidLoads, units, err)
	}

	return Load{
		Ticket:          ticket,
		TareTime:        at,
		CropDescription: desc,
		Crop:            CropFor(desc),
		NetUnits:        net,
	}, nil
}

// CropFor maps an elevator crop description such as "CORN YELLOW #2" to a
// crop name, or "" when none matches.
func CropFor(description string) string {
	for _, c := range cropPrefixes {
		if strings.HasPrefix(description, c.prefix) {
			return c.crop
		}
	}
	return ""
}
