package depreciation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/id"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/notes"
)

// Assets returns the accounts of hier whose notes parse as asset terms.
// Accounts without terms are ignored; malformed terms are logged and skipped.
func Assets(hier *accounts.Hierarchy, log *slog.Logger) []Asset {
	if log == nil {
		log = slog.Default()
	}
	var out []Asset
	for _, a := range hier.All() {
		if !strings.Contains(a.Notes, notes.SectionDepreciation) {
			continue
		}
		terms, err := notes.ParseAssetTerms(a.Notes)
		if errors.Is(err, notes.ErrNoTerms) {
			continue
		}
		if err != nil {
			log.Warn("skipping asset with unreadable depreciation terms", "account", a.Name, "guid", a.GUID, "err", err)
			continue
		}
		out = append(out, Asset{Account: a, Terms: terms})
	}
	return out
}

// Build schedules every asset in hier and returns the entries sorted by
// account code, then post date.
func Build(hier *accounts.Hierarchy, newID id.Generator, log *slog.Logger) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, a := range Assets(hier, log) {
		entries, err := Schedule(a, newID)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	farm.SortByCode(out)
	return out, nil
}

// Scheduler serves depreciation entries for the farm view.
type Scheduler struct {
	accounts *accounts.Cache
	newID    id.Generator
	log      *slog.Logger
}

// NewScheduler returns a Scheduler. A nil generator uses id.New.
func NewScheduler(accts *accounts.Cache, newID id.Generator, log *slog.Logger) *Scheduler {
	if newID == nil {
		newID = id.New
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{accounts: accts, newID: newID, log: log}
}

// All returns the full schedule of every asset.
func (s *Scheduler) All(ctx context.Context) ([]model.Transaction, error) {
	hier, err := s.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := Build(hier, s.newID, s.log)
	if err != nil {
		return nil, fmt.Errorf("building depreciation schedule: %w", err)
	}
	return entries, nil
}

// Entries returns the entries posted within scope.
func (s *Scheduler) Entries(ctx context.Context, scope farm.Scope) ([]model.Transaction, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return farm.InScope(all, scope), nil
}
