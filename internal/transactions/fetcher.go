// Package transactions turns raw ledger splits into annotated view rows for a
// set of account types.
//
// With the inverse multiplier each row is a counter split of a transaction
// touching one of the selected accounts, negated, so a payment out of a bank
// account reports the expense as a negative amount. Without it each row is
// the selected account's own split as recorded.
package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// Source supplies ledger splits and invoice lines.
type Source interface {
	Splits(ctx context.Context) ([]model.Split, error)
	Invoices(ctx context.Context) ([]model.InvoiceLine, error)
}

// Fetcher builds view rows. Ledger data is read once and reused until
// Invalidate is called.
type Fetcher struct {
	src      Source
	accounts *accounts.Cache
	log      *slog.Logger

	mu   sync.Mutex
	book *book
}

type lineKey struct {
	tx, account string
}

type book struct {
	txOrder  []string
	legs     map[string][]model.Split // by tx guid, ledger order
	touching map[string][]string      // account guid -> tx guids
	quantity map[lineKey]decimal.Decimal
}

// New returns a Fetcher over src. A nil logger uses slog.Default.
func New(src Source, accts *accounts.Cache, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{src: src, accounts: accts, log: log}
}

// Invalidate drops the cached ledger data.
func (f *Fetcher) Invalidate() {
	f.mu.Lock()
	f.book = nil
	f.mu.Unlock()
}

func (f *Fetcher) load(ctx context.Context) (*book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.book != nil {
		return f.book, nil
	}

	splits, err := f.src.Splits(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading splits: %w", err)
	}
	lines, err := f.src.Invoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	b := &book{
		legs:     make(map[string][]model.Split),
		touching: make(map[string][]string),
		quantity: make(map[lineKey]decimal.Decimal),
	}
	for _, sp := range splits {
		if _, ok := b.legs[sp.TxGUID]; !ok {
			b.txOrder = append(b.txOrder, sp.TxGUID)
		}
		prev := b.legs[sp.TxGUID]
		b.legs[sp.TxGUID] = append(prev, sp)
		if !touches(prev, sp.AccountGUID) {
			b.touching[sp.AccountGUID] = append(b.touching[sp.AccountGUID], sp.TxGUID)
		}
	}
	for _, l := range lines {
		k := lineKey{l.TxGUID, l.AccountGUID}
		b.quantity[k] = b.quantity[k].Add(l.Quantity)
	}
	f.log.Debug("loaded ledger", "transactions", len(b.txOrder), "splits", len(splits), "invoice_lines", len(lines))
	f.book = b
	return b, nil
}

func touches(legs []model.Split, account string) bool {
	for _, l := range legs {
		if l.AccountGUID == account {
			return true
		}
	}
	return false
}

// Fetch returns the view rows for every account of each type in types.
// Rows for each type are appended in turn; a transaction reachable from two
// selected types appears once per type.
func (f *Fetcher) Fetch(ctx context.Context, types []model.AccountType, inverse bool) ([]model.Transaction, error) {
	hier, err := f.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	b, err := f.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Transaction
	for _, typ := range types {
		n := len(out)
		for _, acct := range hier.ByType(typ) {
			for _, tx := range b.touching[acct.GUID] {
				out = append(out, rows(hier, b, b.legs[tx], acct.GUID, inverse)...)
			}
		}
		f.log.Debug("fetched transactions", "type", typ, "inverse", inverse, "rows", len(out)-n)
	}
	return out, nil
}

func rows(hier *accounts.Hierarchy, b *book, legs []model.Split, src string, inverse bool) []model.Transaction {
	var out []model.Transaction
	if inverse {
		for _, l := range legs {
			if l.AccountGUID == src {
				continue
			}
			out = append(out, row(hier, b, l, src, l.Value.Neg(), l.Quantity.Neg()))
		}
		return out
	}

	counter := src
	for _, l := range legs {
		if l.AccountGUID != src {
			counter = l.AccountGUID
			break
		}
	}
	for _, l := range legs {
		if l.AccountGUID == src {
			out = append(out, row(hier, b, l, counter, l.Value, l.Quantity))
		}
	}
	return out
}

func row(hier *accounts.Hierarchy, b *book, l model.Split, src string, amount, units decimal.Decimal) model.Transaction {
	t := model.Transaction{
		TxGUID:       l.TxGUID,
		SplitGUID:    l.GUID,
		AccountGUID:  l.AccountGUID,
		SrcGUID:      src,
		PostDate:     l.PostDate,
		Num:          l.Num,
		Description:  l.Description,
		Memo:         l.Memo,
		Action:       l.Action,
		Amount:       amount,
		Units:        units,
		Quantity:     b.quantity[lineKey{l.TxGUID, l.AccountGUID}],
		CurrencyGUID: l.CurrencyGUID,
	}
	if a, ok := hier.Get(l.AccountGUID); ok {
		t.AccountName = a.Name
		t.AccountCode = a.Code
		t.AccountType = a.Type
		t.AccountDesc = a.Description
		t.ReportBucket = a.Bucket
		t.ParentChain = a.ParentChain()
		t.CommodityGUID = a.CommodityGUID
	}
	if s, ok := hier.Get(src); ok {
		t.SrcName = s.Name
		t.SrcCode = s.Code
		t.SrcType = s.Type
	}
	return t
}
