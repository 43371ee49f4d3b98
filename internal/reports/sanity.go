package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// SanityResult reconciles the farm view with the cash accounts.
type SanityResult struct {
	Year         int
	NetCashFlow  decimal.Decimal // farm view total for Year
	LastYearCash decimal.Decimal // bank, credit and cash through Year-1
	LastYearARAP decimal.Decimal // receivable and payable through Year-1
	EndingARAP   decimal.Decimal // receivable and payable through Year
	Net          decimal.Decimal
	EndingCash   decimal.Decimal // bank, credit and cash through Year
	Difference   decimal.Decimal
	Balanced     bool
}

// SanityCheck checks that the year's farm cash flow plus last year's cash
// and receivable/payable balances, less this year's receivable/payable
// balance, equals the ending cash balance. The figures are logged at Warn; a
// mismatch is reported, not returned as an error.
func (r *Reporter) SanityCheck(ctx context.Context, year int) (SanityResult, error) {
	if year <= 0 {
		return SanityResult{}, fmt.Errorf("sanity check needs a reporting year")
	}
	all, err := r.pipeline.CashTransactions(ctx)
	if err != nil {
		return SanityResult{}, err
	}
	farmTxs, err := r.pipeline.FarmTransactions(ctx, farm.Year(year), false)
	if err != nil {
		return SanityResult{}, err
	}

	res := SanityResult{Year: year}
	for _, t := range farmTxs {
		res.NetCashFlow = res.NetCashFlow.Add(t.Amount)
	}

	var endingAP, endingAR decimal.Decimal
	for _, t := range all {
		y := t.PostDate.Year()
		switch t.SrcType {
		case model.AccountTypeBank, model.AccountTypeCredit, model.AccountTypeCash:
			if y <= year {
				res.EndingCash = res.EndingCash.Add(t.Amount)
			}
			if y < year {
				res.LastYearCash = res.LastYearCash.Add(t.Amount)
			}
		case model.AccountTypePayable, model.AccountTypeReceivable:
			if y <= year {
				if t.SrcType == model.AccountTypePayable {
					endingAP = endingAP.Add(t.Amount)
				} else {
					endingAR = endingAR.Add(t.Amount)
				}
			}
			if y < year {
				res.LastYearARAP = res.LastYearARAP.Add(t.Amount)
			}
		}
	}

	res.NetCashFlow = res.NetCashFlow.Round(2)
	res.EndingCash = res.EndingCash.Round(2)
	res.LastYearCash = res.LastYearCash.Round(2)
	res.LastYearARAP = res.LastYearARAP.Round(2)
	res.EndingARAP = endingAP.Round(2).Add(endingAR.Round(2)).Round(2)
	res.Net = res.NetCashFlow.Add(res.LastYearARAP).Add(res.LastYearCash).Sub(res.EndingARAP).Round(2)
	res.Difference = res.Net.Sub(res.EndingCash).Round(2)
	res.Balanced = res.Net.Equal(res.EndingCash)

	log := r.log.With("year", year)
	log.Warn("prior ending cash balance", "amount", res.LastYearCash.StringFixed(2))
	log.Warn("prior ending AR/AP balance", "amount", res.LastYearARAP.StringFixed(2))
	log.Warn("farm net inflows and outflows", "amount", res.NetCashFlow.StringFixed(2))
	log.Warn("ending AR/AP balance", "amount", res.EndingARAP.StringFixed(2))
	log.Warn("farm net less AR/AP", "amount", res.Net.StringFixed(2))
	log.Warn("ending cash balance", "amount", res.EndingCash.StringFixed(2))
	if res.Balanced {
		log.Warn("books balance")
	} else {
		log.Warn("books do not balance", "difference", res.Difference.StringFixed(2))
	}
	return res, nil
}
