package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

var d = decimal.RequireFromString

type fakeBook struct {
	accts  []model.Account
	splits []model.Split
	lines  []model.InvoiceLine
	prices []model.Price
}

func (f *fakeBook) Accounts(context.Context) ([]model.Account, error)     { return f.accts, nil }
func (f *fakeBook) Splits(context.Context) ([]model.Split, error)         { return f.splits, nil }
func (f *fakeBook) Invoices(context.Context) ([]model.InvoiceLine, error) { return f.lines, nil }
func (f *fakeBook) Prices(context.Context) ([]model.Price, error)         { return f.prices, nil }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

type leg struct {
	account, value, qty, action string
}

func (f *fakeBook) post(tx string, at time.Time, legs ...leg) {
	for i, l := range legs {
		q := l.qty
		if q == "" {
			q = l.value
		}
		f.splits = append(f.splits, model.Split{
			GUID:        tx + "-" + string(rune('a'+i)),
			TxGUID:      tx,
			AccountGUID: l.account,
			PostDate:    at,
			Action:      l.action,
			Value:       d(l.value),
			Quantity:    d(q),
		})
	}
}

// farmBook is two seasons of a small grain farm.
//
//	2022  operating loan of 50000 into checking
//	2023  equipment 20000, seed 3000, groceries 200, 1000 bu corn sold for
//	      5000, cash rent bill of 15000 paid in full, 2000 bu harvested
func farmBook() *fakeBook {
	f := &fakeBook{
		accts: []model.Account{
			{GUID: "root", Name: "Root Account", Type: model.AccountTypeRoot},
			{GUID: "bank", Name: "Checking", Code: "101", Type: model.AccountTypeBank, ParentGUID: "root"},
			{GUID: "equip", Name: "Equipment", Code: "150", Type: model.AccountTypeAsset, ParentGUID: "root",
				Notes: "[Depreciation]\nCost = 20000\nMethod = \"S/L\"\nYears = 10\nDate_in_Service = 2023-02-01\n"},
			{GUID: "bin", Name: "Corn Bin", Code: "133", Type: model.AccountTypeStock, ParentGUID: "root", CommodityGUID: "c-corn"},
			{GUID: "ap", Name: "Accounts Payable", Code: "210", Type: model.AccountTypePayable, ParentGUID: "root"},
			{GUID: "loan", Name: "Operating Loan", Code: "220", Type: model.AccountTypeLiability, ParentGUID: "root"},
			{GUID: "cornsales", Name: "Corn Sales", Code: "301c", Type: model.AccountTypeIncome, ParentGUID: "root"},
			{GUID: "seed", Name: "Seed", Code: "410", Type: model.AccountTypeExpense, ParentGUID: "root"},
			{GUID: "rent", Name: "Cash Rent Corn", Code: "424b", Type: model.AccountTypeExpense, ParentGUID: "root"},
			{GUID: "personal", Name: "Groceries", Code: "901", Type: model.AccountTypeExpense, ParentGUID: "root"},
		},
		prices: []model.Price{
			{GUID: "p1", CommodityGUID: "c-corn", Commodity: "Corn", Date: day(2023, time.June, 1), Type: model.PriceTypeBid, ValueNum: 480, ValueDenom: 100},
			{GUID: "p2", CommodityGUID: "c-corn", Commodity: "Corn", Date: day(2023, time.December, 1), Type: model.PriceTypeBid, ValueNum: 520, ValueDenom: 100},
		},
		lines: []model.InvoiceLine{
			{InvID: "B-1", InvType: model.InvoiceTypeBill, TxGUID: "rentbill", AccountGUID: "rent", DatePosted: day(2023, time.March, 1),
				Quantity: d("100"), QuantityType: model.QuantityTypeProject, OrgName: "Smith Farms",
				OrgNotes: "[Vendor_Details]\nMax = 200\nCorn = 30\nReceive_1099 = true\n",
				Operation: "North 80", OperationID: "F-1", Amount: d("15000")},
			{InvID: "I-1", InvType: model.InvoiceTypeInvoice, TxGUID: "harvest", AccountGUID: "cornsales", DatePosted: day(2023, time.October, 15),
				Quantity: d("6000"), Operation: "North 80", OperationID: "F-1", Amount: d("30000")},
		},
	}
	f.post("loan", day(2022, time.March, 1), leg{account: "bank", value: "50000"}, leg{account: "loan", value: "-50000"})
	f.post("equip", day(2023, time.February, 1), leg{account: "bank", value: "-20000"}, leg{account: "equip", value: "20000"})
	f.post("rentbill", day(2023, time.March, 1), leg{account: "ap", value: "-15000"}, leg{account: "rent", value: "15000"})
	f.post("rentpay", day(2023, time.March, 15),
		leg{account: "bank", value: "-15000", action: "Payment"}, leg{account: "ap", value: "15000", action: "Payment"})
	f.post("seed", day(2023, time.April, 1), leg{account: "bank", value: "-3000"}, leg{account: "seed", value: "3000"})
	f.post("groceries", day(2023, time.May, 1), leg{account: "bank", value: "-200"}, leg{account: "personal", value: "200"})
	f.post("harvest", day(2023, time.September, 1), leg{account: "bin", value: "0", qty: "2000"}, leg{account: "cornsales", value: "0"})
	f.post("cornsale", day(2023, time.October, 1), leg{account: "bank", value: "5000"}, leg{account: "bin", value: "-5000", qty: "-1000"})
	return f
}

func newReporter(f *fakeBook) *Reporter {
	return New(f, accounts.Options{Depth: 1, Descriptors: []string{"Corn", "Soybeans"}, DefaultDescriptor: "General"}, nil)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, d(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func TestSummaryByAccount(t *testing.T) {
	rows, err := newReporter(farmBook()).SummaryByAccount(context.Background(), 2023, false)
	require.NoError(t, err)

	got := make(map[string]decimal.Decimal)
	var codes []string
	for _, r := range rows {
		codes = append(codes, r.Code)
		got[r.Code+" "+r.Account] = r.Amount
	}
	assert.Equal(t, []string{"150", "301c", "410", "424b", "901"}, codes)
	assertAmount(t, "5000", got["301c Corn"], "inventory sale is corn income")
	assertAmount(t, "-15000", got["424b Cash Rent Corn"], "bill counted once, payment dropped")
	assertAmount(t, "-200", got["901 Groceries"])
	assertAmount(t, "-20000", got["150 Equipment"])
}

func TestSummaryByBucket(t *testing.T) {
	rows, err := newReporter(farmBook()).SummaryByBucket(context.Background(), 2023, false)
	require.NoError(t, err)

	got := make(map[model.AccountType]decimal.Decimal)
	for _, r := range rows {
		got[r.Type] = got[r.Type].Add(r.Amount)
	}
	assertAmount(t, "5000", got[model.AccountTypeIncome])
	assertAmount(t, "-18000", got[model.AccountTypeExpense])
	assertAmount(t, "-200", got[model.AccountTypeNonFarmExpense])
}

func TestExecutiveSummary(t *testing.T) {
	r := newReporter(farmBook())

	lines, err := r.ExecutiveSummary(context.Background(), 2023, false)
	require.NoError(t, err)
	require.Len(t, lines, 5)
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i] = l.Account
	}
	assert.Equal(t, []string{"INCOME", "EXPENSE", "OIBDA", "ASSET", "NF EXPENSE"}, names)
	assertAmount(t, "-13000", lines[2].Amount)

	lines, err = r.ExecutiveSummary(context.Background(), 2023, true)
	require.NoError(t, err)
	require.Len(t, lines, 5)
	assert.Equal(t, "DEPRECIATION", lines[3].Account)
	assertAmount(t, "-2000", lines[3].Amount)
	assert.Equal(t, "NET INCOME", lines[4].Account)
	assertAmount(t, "-15000", lines[4].Amount)
}

func TestExecutiveSummary_DepreciationRowWithoutEntries(t *testing.T) {
	lines := executiveSummary([]model.Transaction{
		{AccountType: model.AccountTypeIncome, Amount: d("100")},
		{AccountType: model.AccountTypeExpense, Amount: d("-40")},
	}, true)

	require.Len(t, lines, 5)
	assert.Equal(t, "DEPRECIATION", lines[3].Account)
	assert.True(t, lines[3].Amount.IsZero())
	assertAmount(t, "60", lines[4].Amount)
}

func TestExecutiveSummary_Empty(t *testing.T) {
	lines := executiveSummary(nil, false)
	require.Len(t, lines, 1)
	assert.Equal(t, "OIBDA", lines[0].Account)
	assert.True(t, lines[0].Amount.IsZero())
}

func TestBalanceSheet(t *testing.T) {
	bs, err := newReporter(farmBook()).BalanceSheet(context.Background(), 2023)
	require.NoError(t, err)

	assertAmount(t, "20000", bs.Amount(CategoryAssets))
	assertAmount(t, "16800", bs.Amount(CategoryCash))
	assertAmount(t, "-50000", bs.Amount(CategoryLiabilities))
	assertAmount(t, "5200", bs.Amount(CategoryGrain))

	require.Len(t, bs.Grain, 1)
	g := bs.Grain[0]
	assert.Equal(t, "Corn", g.Crop)
	assert.True(t, g.Priced)
	assertAmount(t, "1000", g.Units)
	assertAmount(t, "5.20", g.Price, "last bid of the year")
}

func TestBalanceSheet_PriorYear(t *testing.T) {
	bs, err := newReporter(farmBook()).BalanceSheet(context.Background(), 2022)
	require.NoError(t, err)

	assertAmount(t, "50000", bs.Amount(CategoryCash))
	assertAmount(t, "-50000", bs.Amount(CategoryLiabilities))
	assert.True(t, bs.Amount(CategoryAssets).IsZero())
	assert.Empty(t, bs.Grain)
}

func TestBalanceSheet_Idempotent(t *testing.T) {
	r := newReporter(farmBook())
	first, err := r.BalanceSheet(context.Background(), 2023)
	require.NoError(t, err)
	second, err := r.BalanceSheet(context.Background(), 2023)
	require.NoError(t, err)

	require.Len(t, second.Lines, len(first.Lines))
	for i := range first.Lines {
		assert.Equal(t, first.Lines[i].Category, second.Lines[i].Category)
		assert.True(t, first.Lines[i].Amount.Equal(second.Lines[i].Amount), first.Lines[i].Category)
	}
}

func TestBalanceSheet_UnpricedGrain(t *testing.T) {
	f := farmBook()
	f.prices = nil

	bs, err := newReporter(f).BalanceSheet(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, bs.Grain, 1)
	assert.False(t, bs.Grain[0].Priced)
	assert.True(t, bs.Amount(CategoryGrain).IsZero())
}

func TestInvalidate(t *testing.T) {
	f := farmBook()
	r := newReporter(f)
	ctx := context.Background()

	before, err := r.BalanceSheet(ctx, 2023)
	require.NoError(t, err)

	f.post("fuel", day(2023, time.June, 1), leg{account: "bank", value: "-800"}, leg{account: "seed", value: "800"})
	cached, err := r.BalanceSheet(ctx, 2023)
	require.NoError(t, err)
	assertAmount(t, before.Amount(CategoryCash).String(), cached.Amount(CategoryCash))

	r.Invalidate()
	after, err := r.BalanceSheet(ctx, 2023)
	require.NoError(t, err)
	assertAmount(t, "16000", after.Amount(CategoryCash))
}
