package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bid(guid, commodity, name string, at time.Time, cents int64) model.Price {
	return model.Price{GUID: guid, CommodityGUID: commodity, Commodity: name, CurrencyGUID: "usd",
		Date: at, Type: model.PriceTypeBid, ValueNum: cents, ValueDenom: 100}
}

func samplePrices() []model.Price {
	return []model.Price{
		bid("p1", "c-corn", "Corn", day(2023, time.March, 1), 500),
		bid("p2", "c-corn", "Corn", day(2023, time.September, 1), 400),
		bid("p3", "c-beans", "Soybeans", day(2023, time.June, 1), 1300),
		bid("p4", "c-corn", "Corn", day(2022, time.October, 1), 650),
		{GUID: "ask", CommodityGUID: "c-corn", Commodity: "Corn", Date: day(2023, time.May, 1), Type: "ask", ValueNum: 99900, ValueDenom: 100},
	}
}

func TestNewService_BidsOnly(t *testing.T) {
	svc := NewService(samplePrices())
	require.Len(t, svc.Bids(), 4)
	assert.Equal(t, "p4", svc.Bids()[0].GUID, "oldest first")
}

func TestAggregate(t *testing.T) {
	svc := NewService(samplePrices())

	tests := []struct {
		name  string
		how   Method
		scope farm.Scope
		corn  string
		beans string
	}{
		{name: "mean one year", how: MethodMean, scope: farm.Year(2023), corn: "4.50", beans: "13.00"},
		{name: "last one year", how: MethodLast, scope: farm.Year(2023), corn: "4.00", beans: "13.00"},
		{name: "mean all years", how: MethodMean, scope: farm.AllYears, corn: "5.17", beans: "13.00"},
		{name: "mean through 2022", how: MethodMean, scope: farm.Through(2022), corn: "6.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Aggregate(tt.how, tt.scope)
			require.NoError(t, err)

			corn, ok := ForCrop(got, "Corn")
			require.True(t, ok)
			assert.Equal(t, tt.corn, corn.Price.StringFixed(2))

			beans, ok := ForCrop(got, "soybeans")
			if tt.beans == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.beans, beans.Price.StringFixed(2))
		})
	}
}

func TestAggregate_SortedByCrop(t *testing.T) {
	got, err := NewService(samplePrices()).Aggregate(MethodMean, farm.AllYears)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Corn", got[0].Crop)
	assert.Equal(t, "Soybeans", got[1].Crop)
	assert.Equal(t, day(2023, time.September, 1), got[0].Date)
}

func TestAggregate_UnknownMethod(t *testing.T) {
	_, err := NewService(samplePrices()).Aggregate("median", farm.AllYears)
	assert.Error(t, err)
}

func TestNearest(t *testing.T) {
	svc := NewService(samplePrices())

	tests := []struct {
		name      string
		commodity string
		at        time.Time
		want      string
	}{
		{name: "by guid", commodity: "c-corn", at: day(2023, time.August, 20), want: "4"},
		{name: "by name", commodity: "Corn", at: day(2023, time.March, 10), want: "5"},
		{name: "lowercase prefix", commodity: "soy", at: day(2020, time.January, 1), want: "13"},
		{name: "crosses years", commodity: "corn", at: day(2022, time.December, 1), want: "6.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Nearest(tt.commodity, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNearest_TieGoesEarlier(t *testing.T) {
	svc := NewService([]model.Price{
		bid("late", "c-corn", "Corn", day(2023, time.March, 3), 600),
		bid("early", "c-corn", "Corn", day(2023, time.March, 1), 500),
	})
	got, err := svc.Nearest("c-corn", day(2023, time.March, 2))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(got))
}

func TestNearest_Rounds(t *testing.T) {
	svc := NewService([]model.Price{
		{GUID: "p", CommodityGUID: "c", Commodity: "Corn", Date: day(2023, time.May, 1), Type: model.PriceTypeBid, ValueNum: 45678, ValueDenom: 10000},
	})
	got, err := svc.Nearest("c", day(2023, time.May, 1))
	require.NoError(t, err)
	assert.Equal(t, "4.57", got.StringFixed(2))
}

func TestNearest_NoBids(t *testing.T) {
	_, err := NewService(nil).Nearest("Corn", day(2023, time.May, 1))
	assert.ErrorIs(t, err, ErrNoBids)

	_, err = NewService(samplePrices()).Nearest("Wheat", day(2023, time.May, 1))
	assert.ErrorIs(t, err, ErrNoBids)
}

type fakeSource []model.Price

func (f fakeSource) Prices(context.Context) ([]model.Price, error) { return f, nil }

func TestLoad(t *testing.T) {
	svc, err := Load(context.Background(), fakeSource(samplePrices()))
	require.NoError(t, err)
	assert.Len(t, svc.Bids(), 4)
}
