package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTypeBid is the quote type that participates in valuation.
const PriceTypeBid = "bid"

// Price is a commodity quote joined with its commodity name.
type Price struct {
	GUID          string
	CommodityGUID string
	Commodity     string // commodities.fullname, e.g. "Corn"
	CurrencyGUID  string
	Date          time.Time
	Source        string
	Type          string
	ValueNum      int64
	ValueDenom    int64
}

// Value reduces the num/denom pair. A zero denominator yields zero.
func (p Price) Value() decimal.Decimal {
	if p.ValueDenom == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(p.ValueNum).Div(decimal.NewFromInt(p.ValueDenom))
}

// Lock is a row of the gnclock table.
type Lock struct {
	Hostname string
	PID      int
}
