package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

func TestCalculateLease(t *testing.T) {
	tests := []struct {
		name string
		in   LeaseInput
		want LeaseResult
	}{
		{
			name: "revenue share below base rent",
			in: LeaseInput{Acres: d("100"), BaseRent: d("150"), Amount: d("15000"),
				BuPerAcre: d("60"), Price: d("5"), RevPct: d("0.30"), RentCap: d("200")},
			want: LeaseResult{Revenue: d("300"), CappedTotal: d("20000"), CappedBonus: d("5000"),
				RawBonus: d("-6000"), Bonus: d("-6000"), AdjustedRent: d("90")},
		},
		{
			name: "bonus limited by cap",
			in: LeaseInput{Acres: d("100"), BaseRent: d("150"), Amount: d("15000"),
				BuPerAcre: d("220"), Price: d("5"), RevPct: d("0.30"), RentCap: d("200")},
			want: LeaseResult{Revenue: d("1100"), CappedTotal: d("20000"), CappedBonus: d("5000"),
				RawBonus: d("18000"), Bonus: d("5000"), AdjustedRent: d("200")},
		},
		{
			name: "no cap",
			in: LeaseInput{Acres: d("100"), BaseRent: d("150"), Amount: d("15000"),
				BuPerAcre: d("220"), Price: d("5"), RevPct: d("0.30"), NoCap: true},
			want: LeaseResult{Revenue: d("1100"), RawBonus: d("18000"), Bonus: d("18000"), AdjustedRent: d("330")},
		},
		{
			name: "zero acres",
			in:   LeaseInput{BuPerAcre: d("60"), Price: d("5"), RevPct: d("0.30"), RentCap: d("200")},
			want: LeaseResult{Revenue: d("300")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLease(tt.in)
			assertAmount(t, tt.want.Revenue.String(), got.Revenue, "revenue")
			assertAmount(t, tt.want.CappedTotal.String(), got.CappedTotal, "capped total")
			assertAmount(t, tt.want.CappedBonus.String(), got.CappedBonus, "capped bonus")
			assertAmount(t, tt.want.RawBonus.String(), got.RawBonus, "raw bonus")
			assertAmount(t, tt.want.Bonus.String(), got.Bonus, "bonus")
			assertAmount(t, tt.want.AdjustedRent.String(), got.AdjustedRent, "adjusted rent")
		})
	}
}

func TestRentedAcres(t *testing.T) {
	rented, err := newReporter(farmBook()).RentedAcres(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, rented, 1)

	f := rented[0]
	assert.Equal(t, "Corn", f.Crop)
	assert.Equal(t, "North 80", f.Field)
	assert.Equal(t, "F-1", f.OperationID)
	assert.Equal(t, "Smith Farms", f.Owner)
	assertAmount(t, "100", f.Acres)
	assertAmount(t, "15000", f.Amount)
	assertAmount(t, "150", f.BaseRent)
}

func TestRentedAcres_OtherYearAndNonProject(t *testing.T) {
	b := farmBook()
	b.lines = append(b.lines, model.InvoiceLine{
		InvID: "B-2", TxGUID: "rentbill", AccountGUID: "rent", DatePosted: day(2023, 3, 1),
		Quantity: d("1"), QuantityType: "Hours", OrgName: "Smith Farms", Operation: "North 80", OperationID: "F-1", Amount: d("50"),
	})
	r := newReporter(b)

	rented, err := r.RentedAcres(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, rented, 1)
	assertAmount(t, "100", rented[0].Acres)

	rented, err = r.RentedAcres(context.Background(), 2022)
	require.NoError(t, err)
	assert.Empty(t, rented)
}

func TestPlantedAcres(t *testing.T) {
	rented := []RentedField{
		{Crop: "Corn", Field: "North", OperationID: "A", Acres: d("40")},
		{Crop: "Corn", Field: "North", OperationID: "B", Acres: d("60")},
		{Crop: "Soybeans", Field: "South", OperationID: "C", Acres: d("80")},
	}

	byField := plantedAcres(rented, false)
	require.Len(t, byField, 2)
	assertAmount(t, "100", byField[0].Acres)
	assert.Empty(t, byField[0].OperationID)

	byOp := plantedAcres(rented, true)
	assert.Len(t, byOp, 3)
}

func TestProduction(t *testing.T) {
	prod, err := newReporter(farmBook()).Production(context.Background(), 2023, false)
	require.NoError(t, err)
	require.Len(t, prod, 1)

	p := prod[0]
	assert.Equal(t, "Corn", p.Crop)
	assert.Equal(t, "North 80", p.Field)
	assertAmount(t, "6000", p.TotalBushels)
	assertAmount(t, "100", p.Acres)
	assertAmount(t, "60", p.BuPerAcre)
}

func TestFlexibleLeases(t *testing.T) {
	leases, err := newReporter(farmBook()).FlexibleLeases(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, leases, 1)

	l := leases[0]
	assert.Equal(t, "Smith Farms", l.Owner)
	assertAmount(t, "5.00", l.Price, "mean bid of the year")
	assertAmount(t, "0.30", l.RevPct)
	assertAmount(t, "200", l.RentCap)
	assertAmount(t, "300", l.Revenue)
	assertAmount(t, "-6000", l.Bonus)
	assertAmount(t, "90", l.AdjustedRent)
}

func TestFlexibleLeases_NoTerms(t *testing.T) {
	b := farmBook()
	b.lines[0].OrgNotes = "pays on time"

	leases, err := newReporter(b).FlexibleLeases(context.Background(), 2023)
	require.NoError(t, err)
	assert.Empty(t, leases)
}

func TestFlexibleLeases_NoCap(t *testing.T) {
	b := farmBook()
	b.lines[0].OrgNotes = "[Vendor_Details]\nCorn = 30\n"

	leases, err := newReporter(b).FlexibleLeases(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assertAmount(t, "-6000", leases[0].Bonus)
	assert.True(t, leases[0].CappedBonus.IsZero())
}
