package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/id"
	"github.com/farmbooks-dev/farmbooks/internal/importlog"
	"github.com/farmbooks-dev/farmbooks/internal/ledger"
	"github.com/farmbooks-dev/farmbooks/internal/model"
	"github.com/farmbooks-dev/farmbooks/internal/pricing"
)

// Split conventions for imported tickets.
const (
	Memo          = "imported from CSV"
	ActionBuy     = "Buy"
	ActionSell    = "Sell"
	termHarvested = "Harvested"
	termDelivered = "Delivered"
)

// Book is the ledger an Importer reads from and writes to.
type Book interface {
	accounts.Source
	pricing.Source
	ExistingNums(ctx context.Context, nums []string) (map[string]bool, error)
	InsertTransactions(ctx context.Context, splits []model.Split) error
}

// Options configure an Importer.
type Options struct {
	// Elevator becomes the description of every imported transaction.
	Elevator string
	// DataDir, when set, receives an import log row per file.
	DataDir string
	NewID   id.Generator
	Now     func() time.Time
	Logger  *slog.Logger
}

// Importer turns loads into ledger transactions.
type Importer struct {
	book     Book
	accounts *accounts.Cache
	opts     Options
	log      *slog.Logger
}

// New returns an Importer writing to book.
func New(book Book, accts *accounts.Cache, opts Options) *Importer {
	if opts.NewID == nil {
		opts.NewID = id.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Importer{book: book, accounts: accts, opts: opts, log: log}
}

// Plan is the set of transactions built from a batch of loads.
type Plan struct {
	Splits []model.Split
	// Tickets is the number of transactions in Splits.
	Tickets int
	// Existing lists tickets already booked.
	Existing []string
	// Unresolved lists tickets without a crop, price or account.
	Unresolved []string
}

// Build plans a transaction per new ticket: a Buy split into the delivered
// account of the crop's commodity and a matching Sell split out of the
// harvested account, valued at the mean bid of the ticket's year.
func (im *Importer) Build(ctx context.Context, loads []Load) (*Plan, error) {
	hier, err := im.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := pricing.Load(ctx, im.book)
	if err != nil {
		return nil, err
	}
	harvested := byCommodity(hier.Search(termHarvested))
	delivered := byCommodity(hier.Search(termDelivered))

	nums := make([]string, len(loads))
	for i, l := range loads {
		nums[i] = l.Ticket
	}
	existing, err := im.book.ExistingNums(ctx, nums)
	if err != nil {
		return nil, err
	}

	bids := make(map[int][]pricing.CommodityPrice)
	plan := &Plan{}
	now := im.opts.Now()
	for _, l := range loads {
		if existing[l.Ticket] {
			plan.Existing = append(plan.Existing, l.Ticket)
			continue
		}
		log := im.log.With("ticket", l.Ticket, "crop", l.CropDescription)
		if l.Crop == "" {
			log.Warn("skipping ticket with unknown crop")
			plan.Unresolved = append(plan.Unresolved, l.Ticket)
			continue
		}

		year := l.TareTime.Year()
		if _, ok := bids[year]; !ok {
			mean, err := svc.Aggregate(pricing.MethodMean, farm.Year(year))
			if err != nil {
				return nil, err
			}
			if len(mean) == 0 {
				im.log.Warn("no bids for year, tickets cannot be valued", "year", year)
			}
			bids[year] = mean
		}
		cp, ok := pricing.ForCrop(bids[year], l.Crop)
		if !ok {
			log.Warn("skipping ticket without a bid", "year", year, "err", pricing.ErrNoBids)
			plan.Unresolved = append(plan.Unresolved, l.Ticket)
			continue
		}
		from, okFrom := harvested[cp.CommodityGUID]
		to, okTo := delivered[cp.CommodityGUID]
		if !okFrom || !okTo {
			log.Warn("skipping ticket without harvested and delivered accounts", "commodity", cp.CommodityGUID)
			plan.Unresolved = append(plan.Unresolved, l.Ticket)
			continue
		}

		tx := im.opts.NewID()
		value := l.NetUnits.Mul(cp.Price).Round(2)
		leg := func(account, action string, value, qty decimal.Decimal) model.Split {
			return model.Split{
				GUID:           im.opts.NewID(),
				TxGUID:         tx,
				AccountGUID:    account,
				CurrencyGUID:   cp.CurrencyGUID,
				PostDate:       l.TareTime,
				EnterDate:      now,
				Num:            l.Ticket,
				Description:    im.opts.Elevator,
				Memo:           Memo,
				Action:         action,
				ReconcileState: "n",
				Value:          value,
				Quantity:       qty,
			}
		}
		plan.Splits = append(plan.Splits,
			leg(to, ActionBuy, value, l.NetUnits),
			leg(from, ActionSell, value.Neg(), l.NetUnits.Neg()),
		)
		plan.Tickets++
	}
	return plan, nil
}

func byCommodity(accts []accounts.Resolved) map[string]string {
	m := make(map[string]string)
	for _, a := range accts {
		if a.CommodityGUID == "" {
			continue
		}
		if _, ok := m[a.CommodityGUID]; !ok {
			m[a.CommodityGUID] = a.GUID
		}
	}
	return m
}

// Check verifies that a plan balances and has exactly two splits per ticket.
func (p *Plan) Check() error {
	if len(p.Splits) != 2*p.Tickets {
		return fmt.Errorf("%d splits for %d tickets", len(p.Splits), p.Tickets)
	}
	sum := decimal.Zero
	for _, sp := range p.Splits {
		sum = sum.Add(sp.Value)
	}
	if !sum.IsZero() {
		return fmt.Errorf("splits do not balance: %s", sum)
	}
	return nil
}

// Import builds and writes loads. A plan with no new tickets writes nothing.
// It returns ledger.ErrLocked, unwritten, while GnuCash holds the book.
func (im *Importer) Import(ctx context.Context, loads []Load) (*Plan, error) {
	plan, err := im.Build(ctx, loads)
	if err != nil {
		return nil, err
	}
	if err := plan.Check(); err != nil {
		return plan, err
	}
	if plan.Tickets == 0 {
		im.log.Info("no new tickets to import", "existing", len(plan.Existing), "unresolved", len(plan.Unresolved))
		return plan, nil
	}
	if err := im.book.InsertTransactions(ctx, plan.Splits); err != nil {
		return plan, err
	}
	im.log.Info("imported tickets", "tickets", plan.Tickets, "splits", len(plan.Splits))
	return plan, nil
}

// ImportFile parses path with p and imports the loads, recording the outcome
// in the import log when a data dir is configured.
func (im *Importer) ImportFile(ctx context.Context, path string, p Parser) (*Plan, error) {
	plan, err := im.importFile(ctx, path, p)
	im.record(path, plan, err)
	return plan, err
}

func (im *Importer) importFile(ctx context.Context, path string, p Parser) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening load file: %w", err)
	}
	defer f.Close()

	loads, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return im.Import(ctx, loads)
}

func (im *Importer) record(path string, plan *Plan, err error) {
	if im.opts.DataDir == "" {
		return
	}
	e := importlog.Entry{Timestamp: im.opts.Now(), File: filepath.Base(path), Details: im.opts.Elevator}
	switch {
	case errors.Is(err, ledger.ErrLocked):
		e.Action = importlog.ActionLocked
		e.Details = err.Error()
	case err != nil:
		e.Action = importlog.ActionFailed
		e.Details = err.Error()
	case plan.Tickets == 0:
		e.Action = importlog.ActionSkipped
	default:
		e.Action = importlog.ActionImported
	}
	if plan != nil && err == nil {
		e.Tickets = plan.Tickets
		e.Splits = len(plan.Splits)
	}
	if lerr := importlog.Append(im.opts.DataDir, e); lerr != nil {
		im.log.Warn("could not write import log", "err", lerr)
	}
}
