package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal labels the sum row of the corporation value.
const CategoryTotal = "Total"

// ValueLine is a balance sheet category with its discounted value per share.
type ValueLine struct {
	Category   string
	Amount     decimal.Decimal
	ShareValue decimal.Decimal
	Discounted bool
}

// CorporationValue values the balance sheet of year per share. Each category
// named in discounts contributes discount percent of its amount divided by
// shares; the last line totals every category.
func (r *Reporter) CorporationValue(ctx context.Context, year int, shares int64, discounts map[string]float64) ([]ValueLine, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("corporation value needs a positive share count, got %d", shares)
	}
	bs, err := r.BalanceSheet(ctx, year)
	if err != nil {
		return nil, err
	}
	return corporationValue(bs, shares, discounts, r.log.Warn), nil
}

func corporationValue(bs *BalanceSheet, shares int64, discounts map[string]float64, warn func(string, ...any)) []ValueLine {
	n := decimal.NewFromInt(shares)
	out := make([]ValueLine, 0, len(bs.Lines)+1)
	known := make(map[string]bool, len(bs.Lines))
	total := ValueLine{Category: CategoryTotal}
	for _, l := range bs.Lines {
		known[l.Category] = true
		v := ValueLine{Category: l.Category, Amount: l.Amount}
		if pct, ok := discounts[l.Category]; ok {
			v.ShareValue = decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)).Mul(l.Amount).Div(n)
			v.Discounted = true
		}
		total.Amount = total.Amount.Add(v.Amount)
		total.ShareValue = total.ShareValue.Add(v.ShareValue)
		out = append(out, v)
	}

	var unknown []string
	for k := range discounts {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		warn("discount for unknown balance sheet category", "category", k)
	}

	total.Discounted = true
	return append(out, total)
}
