// Package pricing answers commodity price questions from the book's price
// database. Only bid quotes are considered.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// ErrNoBids is returned when no bid matches the requested commodity.
var ErrNoBids = errors.New("no commodity bids")

// Method aggregates the bids of one commodity.
type Method string

const (
	MethodMean Method = "mean"
	MethodLast Method = "last"
)

// CommodityPrice is the aggregated bid of one commodity in one currency.
type CommodityPrice struct {
	CommodityGUID string
	Crop          string
	CurrencyGUID  string
	Date          time.Time // latest bid in the group
	Price         decimal.Decimal
}

// Source supplies price quotes.
type Source interface {
	Prices(ctx context.Context) ([]model.Price, error)
}

// Service holds the bid quotes of a book ordered by date.
type Service struct {
	bids []model.Price
}

// NewService keeps the bids among prices.
func NewService(prices []model.Price) *Service {
	var bids []model.Price
	for _, p := range prices {
		if p.Type == model.PriceTypeBid && p.ValueDenom != 0 {
			bids = append(bids, p)
		}
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Date.Before(bids[j].Date) })
	return &Service{bids: bids}
}

// Load reads every price from src.
func Load(ctx context.Context, src Source) (*Service, error) {
	prices, err := src.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading prices: %w", err)
	}
	return NewService(prices), nil
}

// Bids returns the bid quotes, oldest first.
func (s *Service) Bids() []model.Price {
	return s.bids
}

type groupKey struct {
	commodity, crop, currency string
}

// Aggregate groups the bids in scope by commodity and currency. The result is
// sorted by crop.
func (s *Service) Aggregate(how Method, scope farm.Scope) ([]CommodityPrice, error) {
	if how != MethodMean && how != MethodLast {
		return nil, fmt.Errorf("unknown aggregation %q", how)
	}

	type acc struct {
		sum  decimal.Decimal
		n    int64
		last decimal.Decimal
		date time.Time
	}
	groups := make(map[groupKey]*acc)
	for _, p := range s.bids {
		if !scope.Contains(p.Date) {
			continue
		}
		k := groupKey{p.CommodityGUID, p.Commodity, p.CurrencyGUID}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		v := p.Value()
		g.sum = g.sum.Add(v)
		g.n++
		g.last = v
		g.date = p.Date
	}

	out := make([]CommodityPrice, 0, len(groups))
	for k, g := range groups {
		cp := CommodityPrice{CommodityGUID: k.commodity, Crop: k.crop, CurrencyGUID: k.currency, Date: g.date}
		if how == MethodMean {
			cp.Price = g.sum.Div(decimal.NewFromInt(g.n))
		} else {
			cp.Price = g.last
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Crop != out[j].Crop {
			return out[i].Crop < out[j].Crop
		}
		if out[i].CommodityGUID != out[j].CommodityGUID {
			return out[i].CommodityGUID < out[j].CommodityGUID
		}
		return out[i].CurrencyGUID < out[j].CurrencyGUID
	})
	return out, nil
}

// ForCrop returns the aggregated price of crop (or commodity guid) in list.
func ForCrop(list []CommodityPrice, crop string) (CommodityPrice, bool) {
	for _, cp := range list {
		if cp.CommodityGUID == crop || strings.EqualFold(cp.Crop, crop) {
			return cp, true
		}
	}
	return CommodityPrice{}, false
}

// Nearest returns the bid closest to at, rounded to cents. commodity is a
// commodity guid or a case-insensitive prefix of the commodity name. Among
// equally distant bids the earlier one wins. Every year is searched.
func (s *Service) Nearest(commodity string, at time.Time) (decimal.Decimal, error) {
	byGUID := false
	for _, p := range s.bids {
		if p.CommodityGUID == commodity {
			byGUID = true
			break
		}
	}
	prefix := strings.ToLower(commodity)

	var best model.Price
	var bestDist time.Duration
	found := false
	for _, p := range s.bids {
		if byGUID {
			if p.CommodityGUID != commodity {
				continue
			}
		} else if !strings.HasPrefix(strings.ToLower(p.Commodity), prefix) {
			continue
		}
		d := p.Date.Sub(at)
		if d < 0 {
			d = -d
		}
		// Bids are date ordered, so a strictly-less test keeps the earlier tie.
		if !found || d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	if !found {
		return decimal.Zero, fmt.Errorf("%w for %q", ErrNoBids, commodity)
	}
	return best.Value().Round(2), nil
}
