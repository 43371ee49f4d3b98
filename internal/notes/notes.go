// Package notes parses the TOML tables farmers keep in GnuCash account and
// vendor notes. Notes without the expected table yield ErrNoTerms.
package notes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// ErrNoTerms means the notes do not carry the requested table.
var ErrNoTerms = errors.New("no terms in notes")

const (
	SectionDepreciation = "Depreciation"
	SectionLease        = "Vendor_Details"
)

// AssetTerms describes a depreciable asset.
//
//	[Depreciation]
//	Cost = 50000
//	Sec_179 = 10000
//	Method = "S/L"
//	Years = 7
//	Date_in_Service = 2021-04-15
type AssetTerms struct {
	Cost          decimal.Decimal
	Sec179        decimal.Decimal
	Method        string
	Years         int
	DateInService time.Time
}

// LeaseTerms are the flexible-lease terms kept on a landlord's vendor record.
// Max is the rent cap per acre and Min the floor; every other numeric key is
// a crop's revenue share in percent. Receive_1099 marks a vendor whose
// payments are reported on a 1099; other boolean flags are ignored.
//
//	[Vendor_Details]
//	Max = 250
//	Min = 150
//	Corn = 30
//	Soybeans = 35
//	Receive_1099 = true
type LeaseTerms struct {
	Max    decimal.Decimal
	HasMax bool
	Min    decimal.Decimal
	HasMin bool
	// Receive1099 mirrors the Receive_1099 flag.
	Receive1099 bool
	// Shares are percentages keyed by crop.
	Shares map[string]decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Share returns the revenue share for crop as a fraction, e.g. 0.30.
func (l LeaseTerms) Share(crop string) (decimal.Decimal, bool) {
	d, ok := l.Shares[crop]
	if !ok {
		return decimal.Zero, false
	}
	return d.Div(hundred), true
}

// ParseAssetTerms reads the [Depreciation] table from notes.
func ParseAssetTerms(notes string) (AssetTerms, error) {
	tbl, err := section(notes, SectionDepreciation)
	if err != nil {
		return AssetTerms{}, err
	}

	var t AssetTerms
	if t.Cost, err = number(tbl, "Cost"); err != nil {
		return AssetTerms{}, err
	}
	if _, ok := tbl["Sec_179"]; ok {
		if t.Sec179, err = number(tbl, "Sec_179"); err != nil {
			return AssetTerms{}, err
		}
	}
	if m, ok := tbl["Method"]; ok {
		s, ok := m.(string)
		if !ok {
			return AssetTerms{}, fmt.Errorf("Method: expected string, got %T", m)
		}
		t.Method = s
	}
	years, err := number(tbl, "Years")
	if err != nil {
		return AssetTerms{}, err
	}
	if !years.IsInteger() {
		return AssetTerms{}, fmt.Errorf("Years: %s is not a whole number", years)
	}
	t.Years = int(years.IntPart())
	if t.DateInService, err = date(tbl, "Date_in_Service"); err != nil {
		return AssetTerms{}, err
	}
	return t, nil
}

// ParseLeaseTerms reads the [Vendor_Details] table from notes.
func ParseLeaseTerms(notes string) (LeaseTerms, error) {
	tbl, err := section(notes, SectionLease)
	if err != nil {
		return LeaseTerms{}, err
	}

	t := LeaseTerms{Shares: make(map[string]decimal.Decimal)}
	for k, v := range tbl {
		if flag, ok := v.(bool); ok {
			if k == "Receive_1099" {
				t.Receive1099 = flag
			}
			continue
		}
		d, err := number(tbl, k)
		if err != nil {
			return LeaseTerms{}, err
		}
		switch k {
		case "Max":
			t.Max, t.HasMax = d, true
		case "Min":
			t.Min, t.HasMin = d, true
		default:
			t.Shares[k] = d
		}
	}
	return t, nil
}

// header matches a TOML table or array-of-tables header line and captures its name.
var header = regexp.MustCompile(`^\[\[?\s*([^\[\]]+?)\s*\]\]?\s*(#.*)?$`)

// extract returns the lines of the [name] table, header included. Prose
// before the header and every later table are dropped.
func extract(notes, name string) (string, bool) {
	var b strings.Builder
	in := false
	for _, line := range strings.Split(notes, "\n") {
		if m := header.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			in = m[1] == name
		}
		if in {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String(), b.Len() > 0
}

func section(notes, name string) (map[string]any, error) {
	text, ok := extract(notes, name)
	if !ok {
		return nil, ErrNoTerms
	}
	var doc map[string]any
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s notes: %w", name, err)
	}
	raw, ok := doc[name]
	if !ok {
		return nil, ErrNoTerms
	}
	tbl, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a table, got %T", name, raw)
	}
	return tbl, nil
}

func number(tbl map[string]any, key string) (decimal.Decimal, error) {
	v, ok := tbl[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: missing", key)
	}
	switch n := v.(type) {
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%s: expected number, got %T", key, v)
	}
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", time.RFC3339}

func date(tbl map[string]any, key string) (time.Time, error) {
	v, ok := tbl[key]
	if !ok {
		return time.Time{}, fmt.Errorf("%s: missing", key)
	}
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%s: unrecognized date %q", key, d)
	case int64:
		// A bare year.
		return time.Date(int(d), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%s: expected date, got %T", key, v)
	}
}
