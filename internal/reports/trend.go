package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TrendFunc computes one value per key for a year.
type TrendFunc func(ctx context.Context, year int) (map[string]decimal.Decimal, error)

// TrendRow is one key's values in year order.
type TrendRow struct {
	Key    string
	Values []decimal.Decimal
	Trend  string
}

// TrendTable pivots a TrendFunc over consecutive years.
type TrendTable struct {
	Years []int
	Rows  []TrendRow
}

// Trend runs fn for the years ending at year, oldest first, and pivots the
// results into one row per key. A key missing from a year counts as zero.
func Trend(ctx context.Context, years, year int, fn TrendFunc) (*TrendTable, error) {
	if years <= 0 {
		return nil, fmt.Errorf("trend needs at least one year, got %d", years)
	}
	tbl := &TrendTable{}
	values := make(map[string][]decimal.Decimal)
	for i := 0; i < years; i++ {
		y := year - years + i + 1
		got, err := fn(ctx, y)
		if err != nil {
			return nil, fmt.Errorf("trend for %d: %w", y, err)
		}
		tbl.Years = append(tbl.Years, y)
		for k, v := range got {
			if _, ok := values[k]; !ok {
				values[k] = make([]decimal.Decimal, years)
			}
			values[k][i] = v
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tbl.Rows = append(tbl.Rows, TrendRow{Key: k, Values: values[k], Trend: TrendString(values[k])})
	}
	return tbl, nil
}

// TrendString joins values with spaces at two decimal places.
func TrendString(values []decimal.Decimal) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.StringFixed(2)
	}
	return strings.Join(parts, " ")
}

// Row returns the row for key.
func (t *TrendTable) Row(key string) (TrendRow, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return TrendRow{}, false
}

// SummaryTrend is a TrendFunc over the executive summary.
func (r *Reporter) SummaryTrend(includeDepreciation bool) TrendFunc {
	return func(ctx context.Context, year int) (map[string]decimal.Decimal, error) {
		lines, err := r.ExecutiveSummary(ctx, year, includeDepreciation)
		if err != nil {
			return nil, err
		}
		out := make(map[string]decimal.Decimal, len(lines))
		for _, l := range lines {
			out[l.Account] = l.Amount
		}
		return out, nil
	}
}

// AccountTrend is a TrendFunc over the summary by account, keyed by
// "code name".
func (r *Reporter) AccountTrend(includeDepreciation bool) TrendFunc {
	return func(ctx context.Context, year int) (map[string]decimal.Decimal, error) {
		rows, err := r.SummaryByAccount(ctx, year, includeDepreciation)
		if err != nil {
			return nil, err
		}
		out := make(map[string]decimal.Decimal, len(rows))
		for _, row := range rows {
			k := strings.TrimSpace(row.Code + " " + row.Account)
			out[k] = out[k].Add(row.Amount)
		}
		return out, nil
	}
}
