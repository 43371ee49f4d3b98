// Package farm derives the cash-basis farm view from fetched transactions:
// it removes transfers between cash accounts and bill payments, then
// reclassifies inventory, prepaid and non-farm accounts by account code.
package farm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// ActionPayment marks splits that settle a bill or invoice.
const ActionPayment = "Payment"

// Rule rewrites or drops rows by account code. A rule matches when the code
// is one of Codes or starts with one of Prefixes.
type Rule struct {
	Codes    []string
	Prefixes []string

	Exclude    bool
	TargetType model.AccountType
	TargetCode string
	TargetName string
}

// Matches reports whether code is selected by the rule.
func (r Rule) Matches(code string) bool {
	for _, c := range r.Codes {
		if code == c {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func (r Rule) apply(t *model.Transaction) {
	if r.TargetType != "" {
		t.AccountType = r.TargetType
	}
	if r.TargetCode != "" {
		t.AccountCode = r.TargetCode
	}
	if r.TargetName != "" {
		t.AccountName = r.TargetName
	}
}

// Farm account codes.
const (
	CodeCornIncome     = "301c"
	CodeSoybeansIncome = "303b"
)

// DefaultRules returns the farm reclassification in the order it must run.
// Harvest income is posted to inventory from receivables and is not cash, so
// it is dropped before inventory sales are renamed into its codes.
func DefaultRules() []Rule {
	return []Rule{
		{Codes: []string{CodeCornIncome, CodeSoybeansIncome}, Exclude: true},
		{Prefixes: []string{"133"}, TargetType: model.AccountTypeIncome, TargetCode: CodeCornIncome, TargetName: "Corn"},
		{Prefixes: []string{"134"}, TargetType: model.AccountTypeIncome, TargetCode: CodeSoybeansIncome, TargetName: "Soybeans"},
		{Prefixes: []string{"146", "147"}, TargetType: model.AccountTypeExpense},
		{Prefixes: []string{"9"}, TargetType: model.AccountTypeNonFarmExpense},
	}
}

// Clean drops rows booked to a cash account and bill or invoice payments.
func Clean(txs []model.Transaction, cash map[string]bool) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, t := range txs {
		if cash[t.AccountGUID] || t.Action == ActionPayment {
			continue
		}
		out = append(out, t)
	}
	return out
}

// InScope returns the rows posted within scope.
func InScope(txs []model.Transaction, scope Scope) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, t := range txs {
		if scope.Contains(t.PostDate) {
			out = append(out, t)
		}
	}
	return out
}

// Reclassify applies rules in order to a copy of txs and returns it sorted by
// account code, then post date. An excluded row is gone for later rules.
func Reclassify(txs []model.Transaction, rules []Rule) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
next:
	for _, t := range txs {
		for _, r := range rules {
			if !r.Matches(t.AccountCode) {
				continue
			}
			if r.Exclude {
				continue next
			}
			r.apply(&t)
		}
		out = append(out, t)
	}
	SortByCode(out)
	return out
}

// SortByCode orders rows by account code, then post date.
func SortByCode(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].AccountCode != txs[j].AccountCode {
			return txs[i].AccountCode < txs[j].AccountCode
		}
		return txs[i].PostDate.Before(txs[j].PostDate)
	})
}

// Fetcher supplies view rows for account types.
type Fetcher interface {
	Fetch(ctx context.Context, types []model.AccountType, inverse bool) ([]model.Transaction, error)
}

// Depreciation supplies depreciation entries for a scope.
type Depreciation interface {
	Entries(ctx context.Context, scope Scope) ([]model.Transaction, error)
}

// Pipeline composes fetch, clean, scope and reclassify.
type Pipeline struct {
	fetcher  Fetcher
	accounts *accounts.Cache
	rules    []Rule
	depr     Depreciation
	log      *slog.Logger
}

// NewPipeline returns a Pipeline using DefaultRules. depr may be nil when
// depreciation is never requested.
func NewPipeline(f Fetcher, accts *accounts.Cache, depr Depreciation, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{fetcher: f, accounts: accts, rules: DefaultRules(), depr: depr, log: log}
}

// WithRules replaces the reclassification rules.
func (p *Pipeline) WithRules(rules []Rule) *Pipeline {
	p.rules = rules
	return p
}

// CashTransactions returns every row reachable from a cash account, across
// all years, ordered by post date.
func (p *Pipeline) CashTransactions(ctx context.Context) ([]model.Transaction, error) {
	txs, err := p.fetcher.Fetch(ctx, model.CashAccountTypes, true)
	if err != nil {
		return nil, fmt.Errorf("fetching cash transactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].PostDate.Before(txs[j].PostDate) })
	return txs, nil
}

// CleanedCash returns the cash rows in scope without transfers or payments.
func (p *Pipeline) CleanedCash(ctx context.Context, scope Scope) ([]model.Transaction, error) {
	hier, err := p.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := p.CashTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return InScope(Clean(txs, hier.GUIDs(model.CashAccountTypes...)), scope), nil
}

// FarmTransactions returns the reclassified farm view for scope, followed by
// the depreciation entries for scope when includeDepreciation is set.
func (p *Pipeline) FarmTransactions(ctx context.Context, scope Scope, includeDepreciation bool) ([]model.Transaction, error) {
	cleaned, err := p.CleanedCash(ctx, scope)
	if err != nil {
		return nil, err
	}
	rows := Reclassify(cleaned, p.rules)
	p.log.Debug("farm transactions", "year", scope.Year, "rows", len(rows))
	if !includeDepreciation {
		return rows, nil
	}
	if p.depr == nil {
		return nil, fmt.Errorf("depreciation requested but no schedule is configured")
	}
	entries, err := p.depr.Entries(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("building depreciation schedule: %w", err)
	}
	return append(rows, entries...), nil
}
