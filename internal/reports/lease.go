package reports

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/notes"
	"github.com/farmbooks-dev/farmbooks/internal/pricing"
)

// Account codes feeding the lease reports.
var (
	cashRentCodes   = []string{"424b", "424c"}
	productionCodes = []string{farm.CodeCornIncome, farm.CodeSoybeansIncome}
)

// LeaseInput are the per-field figures of a flexible lease. RevPct is a
// fraction; NoCap disables the rent cap.
type LeaseInput struct {
	Acres     decimal.Decimal
	BaseRent  decimal.Decimal // per acre
	Amount    decimal.Decimal // base rent paid
	BuPerAcre decimal.Decimal
	Price     decimal.Decimal
	RevPct    decimal.Decimal
	RentCap   decimal.Decimal // per acre
	NoCap     bool
}

// LeaseResult is the settlement of a flexible lease.
type LeaseResult struct {
	Revenue      decimal.Decimal // per acre
	CappedTotal  decimal.Decimal
	CappedBonus  decimal.Decimal
	RawBonus     decimal.Decimal
	Bonus        decimal.Decimal
	AdjustedRent decimal.Decimal // per acre
}

// CalculateLease settles a flexible lease: the bonus is the revenue share
// less base rent, never more than the cap allows. Each figure is rounded to
// cents as it is computed.
func CalculateLease(in LeaseInput) LeaseResult {
	var out LeaseResult
	out.Revenue = in.BuPerAcre.Mul(in.Price).Round(2)
	base := in.BaseRent.Mul(in.Acres)
	out.RawBonus = out.Revenue.Mul(in.Acres).Mul(in.RevPct).Sub(base).Round(2)
	out.Bonus = out.RawBonus
	if !in.NoCap {
		out.CappedTotal = in.RentCap.Mul(in.Acres).Round(2)
		out.CappedBonus = out.CappedTotal.Sub(base).Round(2)
		out.Bonus = decimal.Min(out.RawBonus, out.CappedBonus)
	}
	if !in.Acres.IsZero() {
		out.AdjustedRent = out.Bonus.Add(in.Amount).Div(in.Acres).Round(2)
	}
	return out
}

// RentedField is the base rent paid for one field to one owner.
type RentedField struct {
	Crop        string
	Field       string
	OperationID string
	Owner       string
	OwnerNotes  string
	Acres       decimal.Decimal
	Amount      decimal.Decimal
	BaseRent    decimal.Decimal // per acre, whole units
}

// PlantedField is the acreage of one field.
type PlantedField struct {
	Crop        string
	Field       string
	OperationID string
	Acres       decimal.Decimal
}

// FieldProduction is the harvest of one field.
type FieldProduction struct {
	Crop         string
	Field        string
	OperationID  string
	TotalBushels decimal.Decimal
	Acres        decimal.Decimal
	BuPerAcre    decimal.Decimal
}

// Lease is the settlement of one flexible-lease field.
type Lease struct {
	Crop         string
	Field        string
	OperationID  string
	Owner        string
	Acres        decimal.Decimal
	BaseRent     decimal.Decimal
	TotalBushels decimal.Decimal
	BuPerAcre    decimal.Decimal
	Price        decimal.Decimal
	RentCap      decimal.Decimal
	RevPct       decimal.Decimal
	LeaseResult
}

type fieldKey struct {
	crop, field, operationID string
}

func crop(hier *accounts.Hierarchy, l model.InvoiceLine) string {
	if a, ok := hier.Get(l.AccountGUID); ok {
		return a.Descriptor
	}
	return ""
}

func hasCode(hier *accounts.Hierarchy, l model.InvoiceLine, codes []string) bool {
	a, ok := hier.Get(l.AccountGUID)
	if !ok {
		return false
	}
	for _, c := range codes {
		if a.Code == c {
			return true
		}
	}
	return false
}

// RentedAcres lists the base-rent bill lines of year, grouped by crop,
// field, operation id and owner. Only "Project" lines count as base rent.
func (r *Reporter) RentedAcres(ctx context.Context, year int) ([]RentedField, error) {
	hier, err := r.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := r.invoices(ctx, farm.Year(year))
	if err != nil {
		return nil, err
	}

	type key struct {
		fieldKey
		owner string
	}
	idx := make(map[key]int)
	var out []RentedField
	for _, l := range lines {
		if l.QuantityType != model.QuantityTypeProject || !hasCode(hier, l, cashRentCodes) {
			continue
		}
		k := key{fieldKey{crop(hier, l), l.Operation, l.OperationID}, l.OrgName}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, RentedField{Crop: k.crop, Field: k.field, OperationID: k.operationID, Owner: k.owner, OwnerNotes: l.OrgNotes})
		}
		out[i].Acres = out[i].Acres.Add(l.Quantity)
		out[i].Amount = out[i].Amount.Add(l.Amount)
	}
	for i := range out {
		out[i].Acres = out[i].Acres.Round(2)
		out[i].Amount = out[i].Amount.Round(2)
		if !out[i].Acres.IsZero() {
			out[i].BaseRent = out[i].Amount.Div(out[i].Acres).Round(0)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return lessField(out[i].fieldKey(), out[j].fieldKey()) })
	return out, nil
}

func (f RentedField) fieldKey() fieldKey { return fieldKey{f.Crop, f.Field, f.OperationID} }

func lessField(a, b fieldKey) bool {
	if a.crop != b.crop {
		return a.crop < b.crop
	}
	if a.field != b.field {
		return a.field < b.field
	}
	return a.operationID < b.operationID
}

// PlantedAcres sums rented acres by crop and field, and by operation id
// when byOperationID is set.
func (r *Reporter) PlantedAcres(ctx context.Context, year int, byOperationID bool) ([]PlantedField, error) {
	rented, err := r.RentedAcres(ctx, year)
	if err != nil {
		return nil, err
	}
	return plantedAcres(rented, byOperationID), nil
}

func plantedAcres(rented []RentedField, byOperationID bool) []PlantedField {
	idx := make(map[fieldKey]int)
	var out []PlantedField
	for _, f := range rented {
		k := f.fieldKey()
		if !byOperationID {
			k.operationID = ""
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, PlantedField{Crop: k.crop, Field: k.field, OperationID: k.operationID})
		}
		out[i].Acres = out[i].Acres.Add(f.Acres)
	}
	return out
}

// Production sums harvested bushels by crop and field, and by operation id
// when byOperationID is set, with the yield per planted acre.
func (r *Reporter) Production(ctx context.Context, year int, byOperationID bool) ([]FieldProduction, error) {
	hier, err := r.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := r.invoices(ctx, farm.Year(year))
	if err != nil {
		return nil, err
	}
	rented, err := r.RentedAcres(ctx, year)
	if err != nil {
		return nil, err
	}

	acres := make(map[fieldKey]decimal.Decimal)
	for _, p := range plantedAcres(rented, byOperationID) {
		acres[fieldKey{p.Crop, p.Field, p.OperationID}] = p.Acres
	}

	idx := make(map[fieldKey]int)
	var out []FieldProduction
	for _, l := range lines {
		if !hasCode(hier, l, productionCodes) {
			continue
		}
		k := fieldKey{crop(hier, l), l.Operation, l.OperationID}
		if !byOperationID {
			k.operationID = ""
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, FieldProduction{Crop: k.crop, Field: k.field, OperationID: k.operationID})
		}
		out[i].TotalBushels = out[i].TotalBushels.Add(l.Quantity)
	}
	for i := range out {
		out[i].TotalBushels = out[i].TotalBushels.Round(2)
		a := acres[fieldKey{out[i].Crop, out[i].Field, out[i].OperationID}]
		out[i].Acres = a
		if !a.IsZero() {
			out[i].BuPerAcre = out[i].TotalBushels.Div(a).Round(2)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessField(fieldKey{out[i].Crop, out[i].Field, out[i].OperationID}, fieldKey{out[j].Crop, out[j].Field, out[j].OperationID})
	})
	return out, nil
}

// FlexibleLeases settles every rented field of year whose owner's notes carry
// lease terms for the field's crop. Fields without terms, production or a
// bid price are left out.
func (r *Reporter) FlexibleLeases(ctx context.Context, year int) ([]Lease, error) {
	rented, err := r.RentedAcres(ctx, year)
	if err != nil {
		return nil, err
	}
	production, err := r.Production(ctx, year, true)
	if err != nil {
		return nil, err
	}
	svc, err := r.prices(ctx)
	if err != nil {
		return nil, err
	}
	mean, err := svc.Aggregate(pricing.MethodMean, farm.Year(year))
	if err != nil {
		return nil, err
	}

	produced := make(map[fieldKey]FieldProduction, len(production))
	for _, p := range production {
		produced[fieldKey{p.Crop, p.Field, p.OperationID}] = p
	}

	var out []Lease
	for _, f := range rented {
		terms, err := notes.ParseLeaseTerms(f.OwnerNotes)
		if errors.Is(err, notes.ErrNoTerms) {
			continue
		}
		if err != nil {
			r.log.Warn("skipping lease with unreadable terms", "owner", f.Owner, "field", f.Field, "err", err)
			continue
		}
		pct, ok := terms.Share(f.Crop)
		if !ok {
			continue
		}
		p, ok := produced[f.fieldKey()]
		if !ok {
			r.log.Warn("no production recorded for leased field", "owner", f.Owner, "field", f.Field, "crop", f.Crop)
			continue
		}
		cp, ok := pricing.ForCrop(mean, f.Crop)
		if !ok {
			r.log.Warn("no bid for leased crop", "crop", f.Crop, "year", year, "err", pricing.ErrNoBids)
			continue
		}

		in := LeaseInput{
			Acres:     f.Acres,
			BaseRent:  f.BaseRent,
			Amount:    f.Amount,
			BuPerAcre: p.BuPerAcre,
			Price:     cp.Price,
			RevPct:    pct,
			RentCap:   terms.Max,
			NoCap:     !terms.HasMax,
		}
		out = append(out, Lease{
			Crop:         f.Crop,
			Field:        f.Field,
			OperationID:  f.OperationID,
			Owner:        f.Owner,
			Acres:        f.Acres,
			BaseRent:     f.BaseRent,
			TotalBushels: p.TotalBushels,
			BuPerAcre:    p.BuPerAcre,
			Price:        cp.Price.Round(2),
			RentCap:      terms.Max,
			RevPct:       pct,
			LeaseResult:  CalculateLease(in),
		})
	}
	return out, nil
}
