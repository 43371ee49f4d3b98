package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/pricing"
)

// Balance sheet categories.
const (
	CategoryAssets      = "Assets"
	CategoryCash        = "Cash"
	CategoryLiabilities = "Liabilities"
	CategoryGrain       = "Grain"
)

var balanceViews = []struct {
	category string
	types    []model.AccountType
}{
	{CategoryAssets, []model.AccountType{model.AccountTypeAsset}},
	{CategoryCash, []model.AccountType{model.AccountTypeBank, model.AccountTypeCash}},
	{CategoryLiabilities, []model.AccountType{model.AccountTypeLiability, model.AccountTypeCredit, model.AccountTypePayable}},
}

// BalanceLine is the total of one balance sheet category.
type BalanceLine struct {
	Category string
	Amount   decimal.Decimal
	Units    decimal.Decimal
}

// GrainValue is the valuation of one commodity held in stock.
type GrainValue struct {
	CommodityGUID string
	Crop          string
	Units         decimal.Decimal
	Price         decimal.Decimal
	Amount        decimal.Decimal
	Priced        bool
}

// BalanceSheet is the cumulative position at the end of Year.
type BalanceSheet struct {
	Year  int
	Lines []BalanceLine
	Grain []GrainValue
}

// Amount returns the total of category, zero when absent.
func (b *BalanceSheet) Amount(category string) decimal.Decimal {
	for _, l := range b.Lines {
		if l.Category == category {
			return l.Amount
		}
	}
	return decimal.Zero
}

// BalanceSheet totals every category through the end of year. Grain is the
// stock on hand per commodity valued at the year's last bid; a commodity
// without a bid is logged and valued at zero.
func (r *Reporter) BalanceSheet(ctx context.Context, year int) (*BalanceSheet, error) {
	scope := farm.Through(year)
	bs := &BalanceSheet{Year: year}
	for _, v := range balanceViews {
		txs, err := r.fetcher.Fetch(ctx, v.types, true)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", v.category, err)
		}
		line := BalanceLine{Category: v.category}
		for _, t := range farm.InScope(txs, scope) {
			line.Amount = line.Amount.Add(t.Amount)
			line.Units = line.Units.Add(t.Units)
		}
		bs.Lines = append(bs.Lines, line)
	}

	grain, err := r.grainValues(ctx, year)
	if err != nil {
		return nil, err
	}
	bs.Grain = grain
	line := BalanceLine{Category: CategoryGrain}
	for _, g := range grain {
		line.Amount = line.Amount.Add(g.Amount)
		line.Units = line.Units.Add(g.Units)
	}
	bs.Lines = append(bs.Lines, line)
	return bs, nil
}

func (r *Reporter) grainValues(ctx context.Context, year int) ([]GrainValue, error) {
	stock, err := r.fetcher.Fetch(ctx, []model.AccountType{model.AccountTypeStock}, false)
	if err != nil {
		return nil, fmt.Errorf("fetching stock: %w", err)
	}
	hier, err := r.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}

	byCommodity := make(map[string]*GrainValue)
	var order []string
	for _, t := range farm.InScope(stock, farm.Through(year)) {
		g, ok := byCommodity[t.CommodityGUID]
		if !ok {
			crop := t.AccountName
			if a, ok := hier.Get(t.AccountGUID); ok {
				crop = a.Descriptor
			}
			g = &GrainValue{CommodityGUID: t.CommodityGUID, Crop: crop}
			byCommodity[t.CommodityGUID] = g
			order = append(order, t.CommodityGUID)
		}
		g.Units = g.Units.Add(t.Units)
	}
	if len(order) == 0 {
		return nil, nil
	}

	svc, err := r.prices(ctx)
	if err != nil {
		return nil, err
	}
	last, err := svc.Aggregate(pricing.MethodLast, farm.Year(year))
	if err != nil {
		return nil, err
	}

	sort.Strings(order)
	out := make([]GrainValue, 0, len(order))
	for _, guid := range order {
		g := byCommodity[guid]
		if cp, ok := pricing.ForCrop(last, guid); ok {
			g.Crop = cp.Crop
			g.Price = cp.Price
			g.Amount = g.Units.Mul(cp.Price)
			g.Priced = true
		} else {
			r.log.Warn("no bid for commodity in stock, valued at zero",
				"commodity", guid, "crop", g.Crop, "year", year, "err", pricing.ErrNoBids)
		}
		out = append(out, *g)
	}
	return out, nil
}
