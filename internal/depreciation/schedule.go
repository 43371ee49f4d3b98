// Package depreciation builds book depreciation entries for assets whose
// account notes carry a [Depreciation] table.
package depreciation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/id"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/notes"
)

// Method is a depreciation convention as written in account notes.
type Method string

const (
	StraightLine         Method = "S/L"
	MidMonthStraightLine Method = "MO S/L"
	HalfYearDeclining    Method = "HY 200DB"
)

var aliases = map[string]Method{
	"":                        StraightLine,
	"s/l":                     StraightLine,
	"straight-line-annual":    StraightLine,
	"mo s/l":                  MidMonthStraightLine,
	"straight-line-half-year": MidMonthStraightLine,
	"hy 200db":                HalfYearDeclining,
	"declining-balance":       HalfYearDeclining,
}

// ErrUnknownMethod is returned for a method name that is not recognized.
var ErrUnknownMethod = errors.New("unknown depreciation method")

// ParseMethod accepts a method name or alias. Empty means straight line.
func ParseMethod(s string) (Method, error) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// periodMonths is the spacing between regular entries.
func (m Method) periodMonths() int {
	if m == MidMonthStraightLine {
		return 6
	}
	return 12
}

// periods is the number of regular entries for a term in years.
func (m Method) periods(term int) int {
	if m == MidMonthStraightLine {
		return term * 2
	}
	return term
}

// Entry codes and descriptions.
const (
	CodeRegular = "800"
	CodeSec179  = "801"

	DescRegular = "Regular Depreciation"
	DescSec179  = "Section 179"

	AccountName = "Depreciation"
	ActionDepr  = "DEPR"
)

// threshold is the remaining basis below which no further entry is made.
var threshold = decimal.New(5, -1)

// Asset is an account with parsed depreciation terms.
type Asset struct {
	Account accounts.Resolved
	Terms   notes.AssetTerms
}

// Schedule returns the Section 179 entry, if any, followed by the regular
// entries. Amounts are negative. The first entry is dated December 31 of the
// year placed in service; later entries follow at the method's period, and
// the final period takes whatever basis remains.
func Schedule(a Asset, newID id.Generator) ([]model.Transaction, error) {
	t := a.Terms
	method, err := ParseMethod(t.Method)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", a.Account.Name, err)
	}
	if t.Years <= 0 {
		return nil, fmt.Errorf("asset %s: term must be positive, got %d years", a.Account.Name, t.Years)
	}
	basis := t.Cost.Sub(t.Sec179)
	if basis.IsNegative() {
		return nil, fmt.Errorf("asset %s: section 179 %s exceeds cost %s", a.Account.Name, t.Sec179, t.Cost)
	}

	yearEnd := time.Date(t.DateInService.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	acctGUID := newID()
	entry := func(code, desc string, at time.Time, amount decimal.Decimal) model.Transaction {
		return model.Transaction{
			TxGUID:           newID(),
			SplitGUID:        newID(),
			AccountGUID:      acctGUID,
			AccountName:      AccountName,
			AccountCode:      CodeRegular,
			AccountType:      model.AccountTypeDepreciation,
			AccountDesc:      a.Account.Description,
			SrcGUID:          a.Account.GUID,
			SrcName:          a.Account.Name,
			SrcCode:          a.Account.Code,
			SrcType:          a.Account.Type,
			PostDate:         at,
			Description:      desc,
			Memo:             a.Account.Name,
			Action:           ActionDepr,
			Amount:           amount.Neg(),
			Quantity:         decimal.NewFromInt(1),
			ReportBucket:     a.Account.Bucket,
			ParentChain:      a.Account.ParentChain(),
			CommodityGUID:    a.Account.CommodityGUID,
			DepreciationCode: code,
		}
	}

	var out []model.Transaction
	if t.Sec179.IsPositive() {
		out = append(out, entry(CodeSec179, DescSec179, yearEnd, t.Sec179))
	}

	n := method.periods(t.Years)
	term := decimal.NewFromInt(int64(t.Years))
	remaining := basis
	for k := 1; remaining.GreaterThan(threshold); k++ {
		var amount decimal.Decimal
		switch {
		case k >= n:
			amount = remaining
		case method == StraightLine:
			amount = basis.Div(term).Round(2)
		case method == MidMonthStraightLine:
			amount = basis.Div(term.Mul(decimal.NewFromInt(2))).Round(2)
		case k == 1:
			// Half-year convention: the first year takes half the 200% rate.
			amount = remaining.Div(term).Round(2)
		default:
			amount = remaining.Mul(decimal.NewFromInt(2)).Div(term).Round(2)
		}
		at := addMonths(yearEnd, (k-1)*method.periodMonths())
		out = append(out, entry(CodeRegular, DescRegular, at, amount))
		remaining = remaining.Sub(amount)
	}
	return out, nil
}

// addMonths moves t by n months, clamping the day to the end of the month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}
