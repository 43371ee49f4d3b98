package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/notes"
)

// Grain inventory code prefixes; invoice lines on these accounts are
// contracted bushels.
var grainPrefixes = []string{"133", "134"}

// paidTolerance is how far an invoice may be from settled and still count as paid.
var paidTolerance = decimal.RequireFromString("0.02")

// GrainContract is the contracted grain of one invoice, grouped by delivery
// date, crop and account. Discount and Payments are invoice totals, repeated
// on each row of a multi-row invoice.
type GrainContract struct {
	ContractDate time.Time
	DeliveryDate time.Time
	ContractID   string
	Crop         string
	Account      string
	Buyer        string
	Lot          string
	Bushels      decimal.Decimal
	Amount       decimal.Decimal
	Price        decimal.Decimal // Amount / Bushels
	Discount     decimal.Decimal // non-grain lines of the invoice, e.g. checkoff
	Payments     decimal.Decimal // payments applied to the invoice's lot
	Paid         bool
}

func isGrain(hier *accounts.Hierarchy, l model.InvoiceLine) (accounts.Resolved, bool) {
	a, ok := hier.Get(l.AccountGUID)
	if !ok {
		return a, false
	}
	for _, p := range grainPrefixes {
		if strings.HasPrefix(a.Code, p) {
			return a, true
		}
	}
	return a, false
}

// GrainContracts lists the grain invoices posted in year with their
// discounts and whether payments have settled them.
func (r *Reporter) GrainContracts(ctx context.Context, year int) ([]GrainContract, error) {
	hier, err := r.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := r.invoices(ctx, farm.Year(year))
	if err != nil {
		return nil, err
	}
	splits, err := r.src.Splits(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading splits: %w", err)
	}

	type key struct {
		id, crop, account, buyer, lot string
		posted, due                   time.Time
	}
	idx := make(map[key]int)
	discount := make(map[string]decimal.Decimal)
	invoiceTotal := make(map[string]decimal.Decimal)
	postTxn := make(map[string]string) // lot -> posting transaction
	var out []GrainContract
	for _, l := range lines {
		if l.InvType != model.InvoiceTypeInvoice {
			continue
		}
		a, ok := isGrain(hier, l)
		if !ok {
			discount[l.InvID] = discount[l.InvID].Add(l.Net())
			continue
		}
		invoiceTotal[l.InvID] = invoiceTotal[l.InvID].Add(l.Net())
		if l.PostLot != "" {
			postTxn[l.PostLot] = l.TxGUID
		}
		k := key{l.InvID, a.Descriptor, a.Name, l.OrgName, l.PostLot, l.DatePosted, l.DueDate}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, GrainContract{ContractDate: k.posted, DeliveryDate: k.due, ContractID: k.id,
				Crop: k.crop, Account: k.account, Buyer: k.buyer, Lot: k.lot})
		}
		out[i].Bushels = out[i].Bushels.Add(l.Quantity)
		out[i].Amount = out[i].Amount.Add(l.Net())
	}

	payments := make(map[string]decimal.Decimal)
	for _, sp := range splits {
		tx, ok := postTxn[sp.LotGUID]
		if !ok || sp.TxGUID == tx {
			continue
		}
		payments[sp.LotGUID] = payments[sp.LotGUID].Add(sp.Value)
	}

	for i := range out {
		c := &out[i]
		c.Bushels = c.Bushels.Round(2)
		c.Amount = c.Amount.Round(2)
		if !c.Bushels.IsZero() {
			c.Price = c.Amount.Div(c.Bushels).Round(2)
		}
		c.Discount = discount[c.ContractID].Round(2)
		if c.Lot != "" {
			c.Payments = payments[c.Lot].Round(2)
		}
		c.Paid = invoiceTotal[c.ContractID].Add(c.Discount).Add(c.Payments).Abs().LessThanOrEqual(paidTolerance)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ContractDate.Equal(b.ContractDate) {
			return a.ContractDate.Before(b.ContractDate)
		}
		if a.ContractID != b.ContractID {
			return a.ContractID < b.ContractID
		}
		return a.DeliveryDate.Before(b.DeliveryDate)
	})
	return out, nil
}

// Vendor1099 is what one 1099 vendor was billed in a year under one report bucket.
type Vendor1099 struct {
	Bucket   string
	Vendor   string
	VendorID string
	Address  string
	Amount   decimal.Decimal
}

// Vendors1099 sums the bills posted in year for vendors whose notes set
// Receive_1099, by report bucket and vendor.
func (r *Reporter) Vendors1099(ctx context.Context, year int) ([]Vendor1099, error) {
	hier, err := r.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := r.invoices(ctx, farm.Year(year))
	if err != nil {
		return nil, err
	}

	receives := make(map[string]bool) // by vendor name
	type key struct {
		bucket, vendor, id, address string
	}
	idx := make(map[key]int)
	var out []Vendor1099
	for _, l := range lines {
		if l.InvType != model.InvoiceTypeBill {
			continue
		}
		ok, seen := receives[l.OrgName]
		if !seen {
			ok = r.receives1099(l)
			receives[l.OrgName] = ok
		}
		if !ok {
			continue
		}
		bucket := ""
		if a, found := hier.Get(l.AccountGUID); found {
			bucket = a.Bucket
		}
		k := key{bucket, l.OrgName, l.OrgID, l.OrgAddress}
		i, found := idx[k]
		if !found {
			i = len(out)
			idx[k] = i
			out = append(out, Vendor1099{Bucket: k.bucket, Vendor: k.vendor, VendorID: k.id, Address: k.address})
		}
		out[i].Amount = out[i].Amount.Add(l.Net())
	}
	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bucket != out[j].Bucket {
			return out[i].Bucket < out[j].Bucket
		}
		return out[i].Vendor < out[j].Vendor
	})
	return out, nil
}

func (r *Reporter) receives1099(l model.InvoiceLine) bool {
	terms, err := notes.ParseLeaseTerms(l.OrgNotes)
	if errors.Is(err, notes.ErrNoTerms) {
		return false
	}
	if err != nil {
		r.log.Warn("ignoring unreadable vendor notes", "vendor", l.OrgName, "err", err)
		return false
	}
	return terms.Receive1099
}
