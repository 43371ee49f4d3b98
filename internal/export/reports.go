package export

import (
	"fmt"
	"strconv"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/reports"
)

// BalanceSheetTables returns the category totals and the grain valuation.
func BalanceSheetTables(bs *reports.BalanceSheet) []Table {
	totals := Table{
		Title:   fmt.Sprintf("Balance Sheet %d", bs.Year),
		Columns: []Column{{"Category", Text}, {"Amount", Amount}},
	}
	for _, l := range bs.Lines {
		totals.AddRow(l.Category, l.Amount)
	}
	grain := Table{
		Title:   fmt.Sprintf("Grain %d", bs.Year),
		Columns: []Column{{"Crop", Text}, {"Units", Quantity}, {"Price", Amount}, {"Value", Amount}, {"Priced", Text}},
	}
	for _, g := range bs.Grain {
		grain.AddRow(g.Crop, g.Units, g.Price, g.Amount, g.Priced)
	}
	return []Table{totals, grain}
}

// ExecutiveSummaryTable renders the executive summary.
func ExecutiveSummaryTable(year int, lines []reports.SummaryLine) Table {
	t := Table{
		Title:   fmt.Sprintf("Executive Summary %d", year),
		Columns: []Column{{"Account", Text}, {"Amount", Amount}},
	}
	for _, l := range lines {
		t.AddRow(l.Account, l.Amount)
	}
	return t
}

// AccountSummaryTable renders the summary by account code.
func AccountSummaryTable(year int, rows []reports.AccountSummary) Table {
	t := Table{
		Title:   fmt.Sprintf("Summary by Account %d", year),
		Columns: []Column{{"Code", Text}, {"Account", Text}, {"Quantity", Quantity}, {"Amount", Amount}},
	}
	for _, r := range rows {
		t.AddRow(r.Code, r.Account, r.Quantity, r.Amount)
	}
	return t
}

// BucketSummaryTable renders the summary by report bucket.
func BucketSummaryTable(year int, rows []reports.BucketSummary) Table {
	t := Table{
		Title:   fmt.Sprintf("Summary by Bucket %d", year),
		Columns: []Column{{"Type", Text}, {"Bucket", Text}, {"Quantity", Quantity}, {"Amount", Amount}},
	}
	for _, r := range rows {
		t.AddRow(string(r.Type), r.Account, r.Quantity, r.Amount)
	}
	return t
}

// DepreciationTable renders depreciation entries.
func DepreciationTable(title string, entries []model.Transaction) Table {
	t := Table{
		Title: title,
		Columns: []Column{{"Date", Text}, {"Asset", Text}, {"Code", Text}, {"Description", Text},
			{"Type", Text}, {"Amount", Amount}},
	}
	for _, e := range entries {
		t.AddRow(e.PostDate.Format(snapshotDateFormat), e.SrcName, e.DepreciationCode, e.Description, string(e.SrcType), e.Amount)
	}
	return t
}

// LeaseTables returns one flexible lease sheet per crop, in first-seen order.
func LeaseTables(year int, leases []reports.Lease) []Table {
	cols := []Column{
		{"Field", Text}, {"Operation", Text}, {"Owner", Text}, {"Acres", Quantity}, {"Base Rent", Amount},
		{"Bushels", Quantity}, {"Bu/Acre", Quantity}, {"Price", Amount}, {"Rev %", Quantity}, {"Rent Cap", Amount},
		{"Revenue", Amount}, {"Raw Bonus", Amount}, {"Capped Bonus", Amount}, {"Bonus", Amount}, {"Adjusted Rent", Amount},
	}
	idx := make(map[string]int)
	var out []Table
	for _, l := range leases {
		i, ok := idx[l.Crop]
		if !ok {
			i = len(out)
			idx[l.Crop] = i
			out = append(out, Table{Title: fmt.Sprintf("%s Leases %d", l.Crop, year), Columns: cols})
		}
		out[i].AddRow(l.Field, l.OperationID, l.Owner, l.Acres, l.BaseRent,
			l.TotalBushels, l.BuPerAcre, l.Price, l.RevPct.Shift(2), l.RentCap,
			l.Revenue, l.RawBonus, l.CappedBonus, l.Bonus, l.AdjustedRent)
	}
	return out
}

// RentedAcresTable renders rented acres and base rent.
func RentedAcresTable(year int, rows []reports.RentedField) Table {
	t := Table{
		Title: fmt.Sprintf("Rented Acres %d", year),
		Columns: []Column{{"Crop", Text}, {"Field", Text}, {"Operation", Text}, {"Owner", Text},
			{"Acres", Quantity}, {"Amount", Amount}, {"Base Rent", Amount}},
	}
	for _, r := range rows {
		t.AddRow(r.Crop, r.Field, r.OperationID, r.Owner, r.Acres, r.Amount, r.BaseRent)
	}
	return t
}

// PlantedAcresTable renders acres per field.
func PlantedAcresTable(year int, rows []reports.PlantedField) Table {
	t := Table{
		Title:   fmt.Sprintf("Planted Acres %d", year),
		Columns: []Column{{"Crop", Text}, {"Field", Text}, {"Operation", Text}, {"Acres", Quantity}},
	}
	for _, r := range rows {
		t.AddRow(r.Crop, r.Field, r.OperationID, r.Acres)
	}
	return t
}

// ProductionTable renders harvest per field.
func ProductionTable(year int, rows []reports.FieldProduction) Table {
	t := Table{
		Title: fmt.Sprintf("Production %d", year),
		Columns: []Column{{"Crop", Text}, {"Field", Text}, {"Operation", Text},
			{"Bushels", Quantity}, {"Acres", Quantity}, {"Bu/Acre", Quantity}},
	}
	for _, r := range rows {
		t.AddRow(r.Crop, r.Field, r.OperationID, r.TotalBushels, r.Acres, r.BuPerAcre)
	}
	return t
}

// GrainContractsTable renders the grain invoices of year.
func GrainContractsTable(year int, rows []reports.GrainContract) Table {
	t := Table{
		Title: fmt.Sprintf("Grain Contracts %d", year),
		Columns: []Column{{"Contract Date", Text}, {"Delivery Date", Text}, {"Contract ID", Text},
			{"Crop", Text}, {"Account", Text}, {"Buyer", Text}, {"Bushels", Quantity}, {"Price", Amount},
			{"Amount", Amount}, {"Discount", Amount}, {"Payments", Amount}, {"Paid", Text}},
	}
	for _, r := range rows {
		t.AddRow(r.ContractDate.Format(snapshotDateFormat), r.DeliveryDate.Format(snapshotDateFormat), r.ContractID,
			r.Crop, r.Account, r.Buyer, r.Bushels, r.Price, r.Amount, r.Discount, r.Payments, r.Paid)
	}
	return t
}

// Vendors1099Table renders what each 1099 vendor was billed in year.
func Vendors1099Table(year int, rows []reports.Vendor1099) Table {
	t := Table{
		Title: fmt.Sprintf("1099 Vendors %d", year),
		Columns: []Column{{"Bucket", Text}, {"Vendor", Text}, {"Vendor ID", Text}, {"Address", Text},
			{"Amount", Amount}},
	}
	for _, r := range rows {
		t.AddRow(r.Bucket, r.Vendor, r.VendorID, r.Address, r.Amount)
	}
	return t
}

// TrendTable renders a trend pivot with one column per year.
func TrendTable(title string, tbl *reports.TrendTable) Table {
	t := Table{Title: title, Columns: []Column{{"Key", Text}}}
	for _, y := range tbl.Years {
		t.Columns = append(t.Columns, Column{strconv.Itoa(y), Amount})
	}
	t.Columns = append(t.Columns, Column{"Trend", Text})
	for _, r := range tbl.Rows {
		row := make([]any, 0, len(r.Values)+2)
		row = append(row, r.Key)
		for _, v := range r.Values {
			row = append(row, v)
		}
		row = append(row, r.Trend)
		t.AddRow(row...)
	}
	return t
}

// ValueTable renders the corporation value.
func ValueTable(year int, lines []reports.ValueLine) Table {
	t := Table{
		Title:   fmt.Sprintf("Corporation Value %d", year),
		Columns: []Column{{"Category", Text}, {"Amount", Amount}, {"Per Share", Amount}},
	}
	for _, l := range lines {
		var share any
		if l.Discounted {
			share = l.ShareValue
		}
		t.AddRow(l.Category, l.Amount, share)
	}
	return t
}

// SanityTable renders the cash reconciliation.
func SanityTable(res reports.SanityResult) Table {
	t := Table{
		Title:   fmt.Sprintf("Sanity Check %d", res.Year),
		Columns: []Column{{"Figure", Text}, {"Amount", Amount}},
	}
	t.AddRow("Prior year cash", res.LastYearCash)
	t.AddRow("Prior year AR/AP", res.LastYearARAP)
	t.AddRow("Farm net cash flow", res.NetCashFlow)
	t.AddRow("Ending AR/AP", res.EndingARAP)
	t.AddRow("Net", res.Net)
	t.AddRow("Ending cash", res.EndingCash)
	t.AddRow("Difference", res.Difference)
	t.AddRow("Balanced", res.Balanced)
	return t
}

// AccountsTable renders the resolved account hierarchy.
func AccountsTable(hier *accounts.Hierarchy) Table {
	t := Table{
		Title: "Accounts",
		Columns: []Column{{"Code", Text}, {"Name", Text}, {"Type", Text}, {"Bucket", Text},
			{"Descriptor", Text}, {"Parents", Text}},
	}
	for _, a := range hier.All() {
		t.AddRow(a.Code, a.Name, string(a.Type), a.Bucket, a.Descriptor, a.ParentChain())
	}
	return t
}
