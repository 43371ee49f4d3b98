package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/ledger/ledgertest"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

var d = decimal.RequireFromString

type fakeBook struct {
	accts  []model.Account
	splits []model.Split
	lines  []model.InvoiceLine
	loads  int
	err    error
}

func (f *fakeBook) Accounts(context.Context) ([]model.Account, error) { return f.accts, nil }
func (f *fakeBook) Splits(context.Context) ([]model.Split, error) {
	f.loads++
	return f.splits, f.err
}
func (f *fakeBook) Invoices(context.Context) ([]model.InvoiceLine, error) { return f.lines, nil }

func leg(guid, tx, account, value string, at time.Time) model.Split {
	return model.Split{GUID: guid, TxGUID: tx, AccountGUID: account, PostDate: at, Value: d(value), Quantity: d(value)}
}

func sampleBook() *fakeBook {
	may := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	return &fakeBook{
		accts: []model.Account{
			{GUID: "root", Name: "Root Account", Type: model.AccountTypeRoot},
			{GUID: "exp", Name: "Expenses", Type: model.AccountTypeExpense, ParentGUID: "root"},
			{GUID: "fuel", Name: "Fuel", Code: "520", Type: model.AccountTypeExpense, ParentGUID: "exp"},
			{GUID: "rent", Name: "Cash Rent", Code: "424b", Type: model.AccountTypeExpense, ParentGUID: "exp"},
			{GUID: "corn", Name: "Corn Sales", Code: "301c", Type: model.AccountTypeIncome, ParentGUID: "root"},
			{GUID: "bank", Name: "Checking", Code: "101", Type: model.AccountTypeBank, ParentGUID: "root"},
			{GUID: "card", Name: "Visa", Code: "201", Type: model.AccountTypeCredit, ParentGUID: "root"},
			{GUID: "bin", Name: "Corn Bin", Code: "133", Type: model.AccountTypeStock, ParentGUID: "root", CommodityGUID: "c-corn"},
			{GUID: "harv", Name: "Harvested Corn", Code: "134h", Type: model.AccountTypeStock, ParentGUID: "root", CommodityGUID: "c-corn"},
		},
		splits: []model.Split{
			leg("s1", "fuelbuy", "bank", "-100", may),
			leg("s2", "fuelbuy", "fuel", "100", may),
			leg("s3", "sale", "bank", "500", may),
			leg("s4", "sale", "corn", "-500", may),
			leg("s5", "payoff", "bank", "-200", may),
			leg("s6", "payoff", "card", "200", may),
			leg("s7", "rentpay", "bank", "-16000", may),
			leg("s8", "rentpay", "rent", "16000", may),
			{GUID: "s9", TxGUID: "harvest", AccountGUID: "bin", PostDate: may, Value: decimal.Zero, Quantity: d("1000")},
			{GUID: "s10", TxGUID: "harvest", AccountGUID: "harv", PostDate: may, Value: decimal.Zero, Quantity: d("-1000")},
		},
		lines: []model.InvoiceLine{
			{TxGUID: "rentpay", AccountGUID: "rent", Quantity: d("50")},
			{TxGUID: "rentpay", AccountGUID: "rent", Quantity: d("30")},
		},
	}
}

func newFetcher(b *fakeBook) *Fetcher {
	return New(b, accounts.NewCache(b, accounts.Options{Depth: 1}), nil)
}

func byAccount(rows []model.Transaction) map[string][]model.Transaction {
	m := make(map[string][]model.Transaction)
	for _, r := range rows {
		m[r.AccountGUID] = append(m[r.AccountGUID], r)
	}
	return m
}

func TestFetch_Inverse(t *testing.T) {
	f := newFetcher(sampleBook())

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeBank}, true)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	m := byAccount(rows)
	fuel := m["fuel"][0]
	assert.True(t, d("-100").Equal(fuel.Amount), "cash out reports negative")
	assert.Equal(t, "bank", fuel.SrcGUID)
	assert.Equal(t, "Checking", fuel.SrcName)
	assert.Equal(t, model.AccountTypeBank, fuel.SrcType)
	assert.Equal(t, "Fuel", fuel.AccountName)
	assert.Equal(t, "520", fuel.AccountCode)
	assert.Equal(t, "Expenses>Root Account", fuel.ParentChain)
	assert.Equal(t, "Root Account", fuel.ReportBucket)

	corn := m["corn"][0]
	assert.True(t, d("500").Equal(corn.Amount), "cash in reports positive")
	assert.True(t, d("500").Equal(corn.Units))
	assert.Empty(t, m["bank"], "the selected account's own leg is not reported")
}

func TestFetch_InvoiceQuantity(t *testing.T) {
	f := newFetcher(sampleBook())

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeBank}, true)
	require.NoError(t, err)

	m := byAccount(rows)
	assert.True(t, d("80").Equal(m["rent"][0].Quantity), "invoice lines are summed")
	assert.True(t, m["fuel"][0].Quantity.IsZero(), "unmatched rows get zero")
}

func TestFetch_TransfersAppearPerType(t *testing.T) {
	f := newFetcher(sampleBook())

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeBank, model.AccountTypeCredit}, true)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	m := byAccount(rows)
	require.Len(t, m["card"], 1)
	require.Len(t, m["bank"], 1)
	assert.True(t, d("-200").Equal(m["card"][0].Amount))
	assert.True(t, d("200").Equal(m["bank"][0].Amount))
	assert.Equal(t, "card", m["bank"][0].SrcGUID)
}

func TestFetch_NonInverse(t *testing.T) {
	f := newFetcher(sampleBook())

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeStock}, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	m := byAccount(rows)
	bin := m["bin"][0]
	assert.True(t, d("1000").Equal(bin.Units))
	assert.True(t, bin.Amount.IsZero())
	assert.Equal(t, "harv", bin.SrcGUID)
	assert.Equal(t, "c-corn", bin.CommodityGUID)
	assert.Equal(t, "bin", m["harv"][0].SrcGUID)
}

func TestFetch_NoCounterSplitUsesSelf(t *testing.T) {
	b := sampleBook()
	b.splits = append(b.splits, model.Split{GUID: "s11", TxGUID: "adjust", AccountGUID: "bin",
		Value: decimal.Zero, Quantity: d("-5")})
	f := newFetcher(b)

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeStock}, false)
	require.NoError(t, err)

	var adjust model.Transaction
	for _, r := range rows {
		if r.TxGUID == "adjust" {
			adjust = r
		}
	}
	assert.Equal(t, "bin", adjust.SrcGUID)
}

func TestFetch_CachesLedger(t *testing.T) {
	b := sampleBook()
	f := newFetcher(b)
	ctx := context.Background()

	_, err := f.Fetch(ctx, []model.AccountType{model.AccountTypeBank}, true)
	require.NoError(t, err)
	_, err = f.Fetch(ctx, []model.AccountType{model.AccountTypeCredit}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, b.loads)

	f.Invalidate()
	_, err = f.Fetch(ctx, []model.AccountType{model.AccountTypeCredit}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, b.loads)
}

func TestFetch_SourceError(t *testing.T) {
	b := sampleBook()
	b.err = errors.New("database is closed")
	_, err := newFetcher(b).Fetch(context.Background(), []model.AccountType{model.AccountTypeBank}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading splits")
}

func TestFetch_UnknownTypeIsEmpty(t *testing.T) {
	rows, err := newFetcher(sampleBook()).Fetch(context.Background(), []model.AccountType{model.AccountTypeMutual}, true)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetch_FromLedger(t *testing.T) {
	bk := ledgertest.New(t)
	bk.Account("root", "Root Account", "", "ROOT", "").
		Account("bank", "Checking", "101", "BANK", "root").
		Account("fuel", "Fuel", "520", "EXPENSE", "root").
		Transaction("tx1", "", ledgertest.Date(2023, time.June, 2), "Co-op",
			ledgertest.Leg{GUID: "a", Account: "bank", Value: "-82.40"},
			ledgertest.Leg{GUID: "b", Account: "fuel", Value: "82.40"},
		)
	store := bk.Open()
	f := New(store, accounts.NewCache(store, accounts.Options{Depth: 4}), nil)

	rows, err := f.Fetch(context.Background(), []model.AccountType{model.AccountTypeBank}, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fuel", rows[0].AccountName)
	assert.Equal(t, "Co-op", rows[0].Description)
	assert.True(t, d("-82.40").Equal(rows[0].Amount))
}
