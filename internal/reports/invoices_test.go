package reports

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// grainBook holds two corn contracts with Central Coop and one bean contract.
// C-1 is settled by one payment net of checkoff; C-2 is half paid; S-1 has
// no lot and is never paid.
func grainBook() *fakeBook {
	f := &fakeBook{
		accts: []model.Account{
			{GUID: "root", Name: "Root Account", Type: model.AccountTypeRoot},
			{GUID: "bank", Name: "Checking", Code: "101", Type: model.AccountTypeBank, ParentGUID: "root"},
			{GUID: "ar", Name: "Accounts Receivable", Code: "120", Type: model.AccountTypeReceivable, ParentGUID: "root"},
			{GUID: "bin", Name: "Corn Bin", Code: "133", Type: model.AccountTypeStock, ParentGUID: "root"},
			{GUID: "beans", Name: "Soybeans Bin", Code: "134a", Type: model.AccountTypeStock, ParentGUID: "root"},
			{GUID: "checkoff", Name: "Checkoff", Code: "425", Type: model.AccountTypeExpense, ParentGUID: "root"},
		},
		lines: []model.InvoiceLine{
			{InvID: "C-1", InvType: model.InvoiceTypeInvoice, TxGUID: "c1post", AccountGUID: "bin", OrgName: "Central Coop",
				DatePosted: day(2023, time.March, 1), DueDate: day(2023, time.October, 15), PostLot: "lot1",
				Quantity: d("1000"), Amount: d("5000")},
			{InvID: "C-1", InvType: model.InvoiceTypeInvoice, TxGUID: "c1post", AccountGUID: "bin", OrgName: "Central Coop",
				DatePosted: day(2023, time.March, 1), DueDate: day(2023, time.October, 15), PostLot: "lot1",
				Quantity: d("500"), Amount: d("2600"), DiscAmount: d("100")},
			{InvID: "C-1", InvType: model.InvoiceTypeInvoice, TxGUID: "c1post", AccountGUID: "checkoff", OrgName: "Central Coop",
				DatePosted: day(2023, time.March, 1), DueDate: day(2023, time.October, 15), PostLot: "lot1",
				Quantity: d("1"), Amount: d("-7.50")},
			{InvID: "C-2", InvType: model.InvoiceTypeInvoice, TxGUID: "c2post", AccountGUID: "bin", OrgName: "Central Coop",
				DatePosted: day(2023, time.February, 1), DueDate: day(2023, time.November, 1), PostLot: "lot2",
				Quantity: d("300"), Amount: d("1500")},
			{InvID: "S-1", InvType: model.InvoiceTypeInvoice, TxGUID: "s1post", AccountGUID: "beans", OrgName: "Bean Buyer",
				DatePosted: day(2023, time.April, 1), DueDate: day(2023, time.October, 1),
				Quantity: d("3"), Amount: d("37")},
			{InvID: "C-0", InvType: model.InvoiceTypeInvoice, TxGUID: "c0post", AccountGUID: "bin", OrgName: "Central Coop",
				DatePosted: day(2022, time.March, 1), DueDate: day(2022, time.October, 1), PostLot: "lot0",
				Quantity: d("100"), Amount: d("400")},
		},
	}
	f.post("c1post", day(2023, time.March, 1), leg{account: "ar", value: "7492.50"}, leg{account: "bin", value: "-7492.50"})
	f.post("c2post", day(2023, time.February, 1), leg{account: "ar", value: "1500"}, leg{account: "bin", value: "-1500"})
	f.post("c1pay", day(2023, time.October, 20), leg{account: "bank", value: "7492.50"}, leg{account: "ar", value: "-7492.50"})
	f.post("c2pay", day(2023, time.November, 5), leg{account: "bank", value: "750"}, leg{account: "ar", value: "-750"})
	lot := func(tx, lot string) {
		for i := range f.splits {
			if f.splits[i].TxGUID == tx && f.splits[i].AccountGUID == "ar" {
				f.splits[i].LotGUID = lot
			}
		}
	}
	lot("c1post", "lot1")
	lot("c1pay", "lot1")
	lot("c2post", "lot2")
	lot("c2pay", "lot2")
	return f
}

func TestGrainContracts(t *testing.T) {
	got, err := newReporter(grainBook()).GrainContracts(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "C-2", got[0].ContractID, "ordered by contract date")
	assert.Equal(t, "C-1", got[1].ContractID)
	assert.Equal(t, "S-1", got[2].ContractID)

	c1 := got[1]
	assert.Equal(t, "Corn", c1.Crop)
	assert.Equal(t, "Corn Bin", c1.Account)
	assert.Equal(t, "Central Coop", c1.Buyer)
	assert.Equal(t, day(2023, time.October, 15), c1.DeliveryDate)
	assertAmount(t, "1500", c1.Bushels)
	assertAmount(t, "7500", c1.Amount, "discounted line is net")
	assertAmount(t, "5", c1.Price)
	assertAmount(t, "-7.50", c1.Discount)
	assertAmount(t, "-7492.50", c1.Payments, "posting split is not a payment")
	assert.True(t, c1.Paid)

	c2 := got[0]
	assertAmount(t, "-750", c2.Payments)
	assert.False(t, c2.Paid)

	s1 := got[2]
	assert.Equal(t, "Soybeans", s1.Crop)
	assertAmount(t, "12.33", s1.Price)
	assert.True(t, s1.Payments.IsZero())
	assert.False(t, s1.Paid)
}

func TestGrainContracts_WithinTolerance(t *testing.T) {
	b := grainBook()
	for i := range b.splits {
		if b.splits[i].TxGUID == "c2pay" && b.splits[i].AccountGUID == "ar" {
			b.splits[i].Value = d("-1499.98")
		}
	}
	got, err := newReporter(b).GrainContracts(context.Background(), 2023)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "C-2", got[0].ContractID)
	assert.True(t, got[0].Paid, "two cents short still settles")
}

func TestGrainContracts_BillsIgnored(t *testing.T) {
	b := grainBook()
	for i := range b.lines {
		b.lines[i].InvType = model.InvoiceTypeBill
	}
	got, err := newReporter(b).GrainContracts(context.Background(), 2023)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// vendorBook bills two 1099 vendors and one that does not receive a 1099.
func vendorBook() *fakeBook {
	const flagged = "[Vendor_Details]\nReceive_1099 = true\n"
	return &fakeBook{
		accts: []model.Account{
			{GUID: "root", Name: "Root Account", Type: model.AccountTypeRoot},
			{GUID: "opex", Name: "Operating Expenses", Code: "400", Type: model.AccountTypeExpense, ParentGUID: "root"},
			{GUID: "hire", Name: "Custom Hire", Code: "420", Type: model.AccountTypeExpense, ParentGUID: "opex"},
			{GUID: "repairs", Name: "Repairs", Code: "430", Type: model.AccountTypeExpense, ParentGUID: "opex"},
			{GUID: "rent", Name: "Cash Rent", Code: "424b", Type: model.AccountTypeExpense, ParentGUID: "root"},
		},
		lines: []model.InvoiceLine{
			{InvID: "B-1", InvType: model.InvoiceTypeBill, AccountGUID: "hire", DatePosted: day(2023, time.May, 1),
				OrgName: "Jones Custom", OrgID: "000001", OrgAddress: "1 Main St, Ames IA", OrgNotes: flagged, Amount: d("1200.255")},
			{InvID: "B-2", InvType: model.InvoiceTypeBill, AccountGUID: "repairs", DatePosted: day(2023, time.June, 1),
				OrgName: "Jones Custom", OrgID: "000001", OrgAddress: "1 Main St, Ames IA", OrgNotes: flagged, Amount: d("300"), DiscAmount: d("50")},
			{InvID: "B-3", InvType: model.InvoiceTypeBill, AccountGUID: "rent", DatePosted: day(2023, time.March, 1),
				OrgName: "Smith Farms", OrgID: "000002", OrgNotes: "[Vendor_Details]\nCorn = 30\nReceive_1099 = true\n", Amount: d("15000")},
			{InvID: "B-4", InvType: model.InvoiceTypeBill, AccountGUID: "repairs", DatePosted: day(2023, time.July, 1),
				OrgName: "Parts Store", OrgID: "000003", Amount: d("900")},
			{InvID: "B-5", InvType: model.InvoiceTypeBill, AccountGUID: "hire", DatePosted: day(2022, time.May, 1),
				OrgName: "Jones Custom", OrgID: "000001", OrgNotes: flagged, Amount: d("999")},
			{InvID: "I-1", InvType: model.InvoiceTypeInvoice, AccountGUID: "hire", DatePosted: day(2023, time.May, 1),
				OrgName: "Jones Custom", OrgNotes: flagged, Amount: d("10")},
		},
	}
}

func TestVendors1099(t *testing.T) {
	r := New(vendorBook(), accounts.Options{Depth: 2}, nil)
	got, err := r.Vendors1099(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Cash Rent", got[0].Bucket)
	assert.Equal(t, "Smith Farms", got[0].Vendor)
	assertAmount(t, "15000", got[0].Amount)

	assert.Equal(t, "Operating Expenses", got[1].Bucket)
	assert.Equal(t, "Jones Custom", got[1].Vendor)
	assert.Equal(t, "000001", got[1].VendorID)
	assert.Equal(t, "1 Main St, Ames IA", got[1].Address)
	assertAmount(t, "1450.26", got[1].Amount, "bills net of discounts, this year only")
}

func TestVendors1099_UnreadableNotes(t *testing.T) {
	b := vendorBook()
	for i := range b.lines {
		if b.lines[i].OrgName == "Smith Farms" {
			b.lines[i].OrgNotes = "[Vendor_Details]\nCorn = \"lots\"\nReceive_1099 = true\n"
		}
	}
	var buf bytes.Buffer
	r := New(b, accounts.Options{Depth: 2}, slog.New(slog.NewTextHandler(&buf, nil)))

	got, err := r.Vendors1099(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jones Custom", got[0].Vendor)
	assert.Contains(t, buf.String(), "ignoring unreadable vendor notes")
}
