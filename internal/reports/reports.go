// Package reports aggregates the farm view into balance sheets, summaries,
// lease settlements, trends and the cash sanity check.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/depreciation"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/pricing"
	"github.com/farmbooks-dev/farmbooks/internal/transactions"
)

// Source is everything a report reads from a book.
type Source interface {
	accounts.Source
	transactions.Source
	pricing.Source
}

// Reporter produces reports for one book. Account resolution and ledger
// reads are cached for the Reporter's lifetime.
type Reporter struct {
	src          Source
	accounts     *accounts.Cache
	fetcher      *transactions.Fetcher
	depreciation *depreciation.Scheduler
	pipeline     *farm.Pipeline
	log          *slog.Logger
}

// New wires a Reporter over src. A nil logger uses slog.Default.
func New(src Source, opts accounts.Options, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	cache := accounts.NewCache(src, opts)
	f := transactions.New(src, cache, log)
	depr := depreciation.NewScheduler(cache, nil, log)
	return &Reporter{
		src:          src,
		accounts:     cache,
		fetcher:      f,
		depreciation: depr,
		pipeline:     farm.NewPipeline(f, cache, depr, log),
		log:          log,
	}
}

// Accounts returns the resolved account hierarchy.
func (r *Reporter) Accounts(ctx context.Context) (*accounts.Hierarchy, error) {
	return r.accounts.Get(ctx)
}

// Pipeline returns the farm view pipeline.
func (r *Reporter) Pipeline() *farm.Pipeline {
	return r.pipeline
}

// Depreciation returns the depreciation schedule for scope.
func (r *Reporter) Depreciation(ctx context.Context, scope farm.Scope) ([]model.Transaction, error) {
	return r.depreciation.Entries(ctx, scope)
}

// Invalidate drops cached accounts and ledger rows, e.g. after an import.
func (r *Reporter) Invalidate() {
	r.accounts.Invalidate()
	r.fetcher.Invalidate()
}

func (r *Reporter) prices(ctx context.Context) (*pricing.Service, error) {
	return pricing.Load(ctx, r.src)
}

func (r *Reporter) invoices(ctx context.Context, scope farm.Scope) ([]model.InvoiceLine, error) {
	lines, err := r.src.Invoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}
	out := lines[:0:0]
	for _, l := range lines {
		if scope.Contains(l.DatePosted) {
			out = append(out, l)
		}
	}
	return out, nil
}

// AccountSummary is one row of the summary by account code.
type AccountSummary struct {
	Code     string
	Account  string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// BucketSummary is one row of the summary by report bucket.
type BucketSummary struct {
	Type     model.AccountType
	Account  string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// SummaryByAccount sums the farm view for year by account code and name.
func (r *Reporter) SummaryByAccount(ctx context.Context, year int, includeDepreciation bool) ([]AccountSummary, error) {
	txs, err := r.pipeline.FarmTransactions(ctx, farm.Year(year), includeDepreciation)
	if err != nil {
		return nil, err
	}
	type key struct{ code, name string }
	idx := make(map[key]int)
	var out []AccountSummary
	for _, t := range txs {
		k := key{t.AccountCode, t.AccountName}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, AccountSummary{Code: t.AccountCode, Account: t.AccountName})
		}
		out[i].Quantity = out[i].Quantity.Add(t.Quantity)
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Account < out[j].Account
	})
	return out, nil
}

// SummaryByBucket sums the farm view for year by account type and report bucket.
func (r *Reporter) SummaryByBucket(ctx context.Context, year int, includeDepreciation bool) ([]BucketSummary, error) {
	txs, err := r.pipeline.FarmTransactions(ctx, farm.Year(year), includeDepreciation)
	if err != nil {
		return nil, err
	}
	type key struct {
		typ    model.AccountType
		bucket string
	}
	idx := make(map[key]int)
	var out []BucketSummary
	for _, t := range txs {
		k := key{t.AccountType, t.ReportBucket}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, BucketSummary{Type: t.AccountType, Account: t.ReportBucket})
		}
		out[i].Quantity = out[i].Quantity.Add(t.Quantity)
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Account < out[j].Account
	})
	return out, nil
}

// SummaryLine is one row of the executive summary.
type SummaryLine struct {
	Account string
	Amount  decimal.Decimal
	Order   int
}

var summaryOrder = map[model.AccountType]int{
	model.AccountTypeIncome:       10,
	model.AccountTypeExpense:      20,
	model.AccountTypeOIBDA:        30,
	model.AccountTypeDepreciation: 40,
	model.AccountTypeNetIncome:    50,
}

const (
	otherOrder      = 100
	summaryRowLimit = 5
)

// ExecutiveSummary sums the farm view for year by account type and derives
// OIBDA (income plus expense) and, with depreciation, net income. It returns
// at most five rows in display order.
func (r *Reporter) ExecutiveSummary(ctx context.Context, year int, includeDepreciation bool) ([]SummaryLine, error) {
	txs, err := r.pipeline.FarmTransactions(ctx, farm.Year(year), includeDepreciation)
	if err != nil {
		return nil, err
	}
	return executiveSummary(txs, includeDepreciation), nil
}

func executiveSummary(txs []model.Transaction, includeDepreciation bool) []SummaryLine {
	totals := make(map[model.AccountType]decimal.Decimal)
	for _, t := range txs {
		totals[t.AccountType] = totals[t.AccountType].Add(t.Amount)
	}
	oibda := totals[model.AccountTypeIncome].Add(totals[model.AccountTypeExpense])
	totals[model.AccountTypeOIBDA] = oibda
	if includeDepreciation {
		totals[model.AccountTypeDepreciation] = totals[model.AccountTypeDepreciation]
		totals[model.AccountTypeNetIncome] = oibda.Add(totals[model.AccountTypeDepreciation])
	}

	out := make([]SummaryLine, 0, len(totals))
	for typ, amt := range totals {
		order, ok := summaryOrder[typ]
		if !ok {
			order = otherOrder
		}
		out = append(out, SummaryLine{Account: string(typ), Amount: amt, Order: order})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Account < out[j].Account
	})
	if len(out) > summaryRowLimit {
		out = out[:summaryRowLimit]
	}
	return out
}
