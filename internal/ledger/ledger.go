// Package ledger reads and writes a GnuCash book stored in SQLite.
//
// Reads return every row of the relevant tables; filtering, sign conventions
// and joins against the account hierarchy happen in the callers. The only
// write path is InsertTransactions, which refuses to run while gnclock holds
// a row.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// ErrLocked is returned by write operations while another client holds the book.
var ErrLocked = errors.New("ledger is locked")

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// DateFormat is how GnuCash's SQL backend stores timestamps.
const DateFormat = "2006-01-02 15:04:05"

// legacyDateFormat appears in books created by GnuCash 2.x.
const legacyDateFormat = "20060102150405"

// Store is a GnuCash SQLite book.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the book at path and verifies the connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to ledger %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

const accountsQuery = `
SELECT a.guid, a.name, COALESCE(a.code, ''), a.account_type,
       COALESCE(a.parent_guid, ''), COALESCE(a.commodity_guid, ''),
       COALESCE(a.description, ''), COALESCE(n.string_val, '')
FROM accounts a
LEFT JOIN slots n ON n.obj_guid = a.guid AND n.name = 'notes'
ORDER BY a.code, a.name`

// Accounts returns every account with its notes slot.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, accountsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		var typ string
		if err := rows.Scan(&a.GUID, &a.Name, &a.Code, &typ, &a.ParentGUID, &a.CommodityGUID, &a.Description, &a.Notes); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Type = model.AccountType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}

const splitsQuery = `
SELECT s.guid, s.tx_guid, s.account_guid, COALESCE(t.currency_guid, ''),
       t.post_date, t.enter_date, COALESCE(t.num, ''), COALESCE(t.description, ''),
       COALESCE(s.memo, ''), COALESCE(s.action, ''), COALESCE(s.reconcile_state, ''),
       s.value_num, s.value_denom, s.quantity_num, s.quantity_denom, COALESCE(s.lot_guid, '')
FROM splits s
JOIN transactions t ON t.guid = s.tx_guid
ORDER BY t.post_date, s.tx_guid, s.guid`

// Splits returns every split joined with its transaction header.
func (s *Store) Splits(ctx context.Context) ([]model.Split, error) {
	rows, err := s.db.QueryContext(ctx, splitsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying splits: %w", err)
	}
	defer rows.Close()

	var out []model.Split
	for rows.Next() {
		var sp model.Split
		var postDate, enterDate sql.NullString
		var valueNum, valueDenom, qtyNum, qtyDenom int64
		if err := rows.Scan(&sp.GUID, &sp.TxGUID, &sp.AccountGUID, &sp.CurrencyGUID,
			&postDate, &enterDate, &sp.Num, &sp.Description,
			&sp.Memo, &sp.Action, &sp.ReconcileState,
			&valueNum, &valueDenom, &qtyNum, &qtyDenom, &sp.LotGUID); err != nil {
			return nil, fmt.Errorf("scanning split: %w", err)
		}
		if sp.PostDate, err = ParseDate(postDate.String); err != nil {
			return nil, fmt.Errorf("split %s post_date: %w", sp.GUID, err)
		}
		if sp.EnterDate, err = ParseDate(enterDate.String); err != nil {
			return nil, fmt.Errorf("split %s enter_date: %w", sp.GUID, err)
		}
		sp.Value = Rational(valueNum, valueDenom)
		sp.Quantity = Rational(qtyNum, qtyDenom)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Owner types from GnuCash's gncOwner.h.
const (
	ownerCustomer = 2
	ownerVendor   = 4
	ownerEmployee = 5
)

const invoicesQuery = `
SELECT i.id, COALESCE(i.owner_type, 0), COALESCE(i.post_txn, ''),
       COALESCE(CASE WHEN e.bill IS NOT NULL THEN e.b_acct ELSE e.i_acct END, ''),
       i.date_posted, e.date,
       COALESCE(e.quantity_num, 0), COALESCE(e.quantity_denom, 1), COALESCE(e.action, ''),
       COALESCE(v.name, c.name, ''), COALESCE(v.id, c.id, ''),
       COALESCE(v.addr_addr1, ''), COALESCE(v.addr_addr2, ''), COALESCE(v.addr_addr3, ''),
       COALESCE(v.notes, c.notes, ''),
       COALESCE(e.description, ''), COALESCE(i.billing_id, ''),
       COALESCE(CASE WHEN e.bill IS NOT NULL THEN e.b_price_num ELSE e.i_price_num END, 0),
       COALESCE(CASE WHEN e.bill IS NOT NULL THEN e.b_price_denom ELSE e.i_price_denom END, 1),
       COALESCE(e.i_disc_type, ''), COALESCE(e.i_discount_num, 0), COALESCE(e.i_discount_denom, 1),
       COALESCE(i.post_lot, '')
FROM invoices i
JOIN entries e ON e.invoice = i.guid OR e.bill = i.guid
LEFT JOIN vendors v ON v.guid = i.owner_guid
LEFT JOIN customers c ON c.guid = i.owner_guid
WHERE i.post_txn IS NOT NULL
ORDER BY i.date_posted, i.id, e.guid`

// Invoices returns one line per entry of every posted invoice or bill.
func (s *Store) Invoices(ctx context.Context) ([]model.InvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx, invoicesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	var out []model.InvoiceLine
	for rows.Next() {
		var l model.InvoiceLine
		var ownerType int
		var datePosted, entryDate sql.NullString
		var qtyNum, qtyDenom, priceNum, priceDenom, discNum, discDenom int64
		var discType string
		var addr [3]string
		if err := rows.Scan(&l.InvID, &ownerType, &l.TxGUID,
			&l.AccountGUID, &datePosted, &entryDate,
			&qtyNum, &qtyDenom, &l.QuantityType,
			&l.OrgName, &l.OrgID, &addr[0], &addr[1], &addr[2],
			&l.OrgNotes, &l.Operation, &l.OperationID,
			&priceNum, &priceDenom, &discType, &discNum, &discDenom,
			&l.PostLot); err != nil {
			return nil, fmt.Errorf("scanning invoice entry: %w", err)
		}
		if l.DatePosted, err = ParseDate(datePosted.String); err != nil {
			return nil, fmt.Errorf("invoice %s date_posted: %w", l.InvID, err)
		}
		if l.DueDate, err = ParseDate(entryDate.String); err != nil {
			return nil, fmt.Errorf("invoice %s entry date: %w", l.InvID, err)
		}
		l.InvType = invoiceType(ownerType)
		l.OrgAddress = joinAddress(addr[:])
		l.Quantity = Rational(qtyNum, qtyDenom)
		l.Amount = l.Quantity.Mul(Rational(priceNum, priceDenom)).Round(2)
		disc := Rational(discNum, discDenom)
		if discType == "PERCENT" {
			disc = l.Amount.Mul(disc).Div(decimal.NewFromInt(100)).Round(2)
		}
		l.DiscAmount = disc
		out = append(out, l)
	}
	return out, rows.Err()
}

func joinAddress(lines []string) string {
	var parts []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", ")
}

func invoiceType(ownerType int) string {
	switch ownerType {
	case ownerCustomer:
		return model.InvoiceTypeInvoice
	case ownerVendor:
		return model.InvoiceTypeBill
	case ownerEmployee:
		return "VOUCHER"
	default:
		return ""
	}
}

const pricesQuery = `
SELECT p.guid, p.commodity_guid, COALESCE(c.fullname, ''), p.currency_guid,
       p.date, COALESCE(p.source, ''), COALESCE(p.type, ''), p.value_num, p.value_denom
FROM prices p
LEFT JOIN commodities c ON c.guid = p.commodity_guid
ORDER BY p.date, p.guid`

// Prices returns every price quote with its commodity name.
func (s *Store) Prices(ctx context.Context) ([]model.Price, error) {
	rows, err := s.db.QueryContext(ctx, pricesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	var out []model.Price
	for rows.Next() {
		var p model.Price
		var date sql.NullString
		if err := rows.Scan(&p.GUID, &p.CommodityGUID, &p.Commodity, &p.CurrencyGUID,
			&date, &p.Source, &p.Type, &p.ValueNum, &p.ValueDenom); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		if p.Date, err = ParseDate(date.String); err != nil {
			return nil, fmt.Errorf("price %s date: %w", p.GUID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Locks returns the rows of gnclock. An open GnuCash session holds one.
func (s *Store) Locks(ctx context.Context) ([]model.Lock, error) {
	return locks(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func locks(ctx context.Context, q querier) ([]model.Lock, error) {
	rows, err := q.QueryContext(ctx, `SELECT Hostname, PID FROM gnclock`)
	if err != nil {
		return nil, fmt.Errorf("querying gnclock: %w", err)
	}
	defer rows.Close()

	var out []model.Lock
	for rows.Next() {
		var l model.Lock
		if err := rows.Scan(&l.Hostname, &l.PID); err != nil {
			return nil, fmt.Errorf("scanning lock: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ExistingNums reports which of nums are already used as transactions.num.
func (s *Store) ExistingNums(ctx context.Context, nums []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(nums) == 0 {
		return found, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(nums)), ",")
	args := make([]any, len(nums))
	for i, n := range nums {
		args[i] = n
	}
	rows, err := s.db.QueryContext(ctx, `SELECT num FROM transactions WHERE num IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transaction nums: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning transaction num: %w", err)
		}
		found[n] = true
	}
	return found, rows.Err()
}

// InsertTransactions writes splits and one transaction header per distinct
// TxGUID (taken from its first split) inside a single SQL transaction.
// It returns ErrLocked without writing anything when gnclock has a row.
func (s *Store) InsertTransactions(ctx context.Context, splits []model.Split) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	held, err := locks(ctx, tx)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		return fmt.Errorf("%w by %s (pid %d)", ErrLocked, held[0].Hostname, held[0].PID)
	}

	seen := make(map[string]bool)
	for _, sp := range splits {
		if seen[sp.TxGUID] {
			continue
		}
		seen[sp.TxGUID] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (guid, currency_guid, num, post_date, enter_date, description) VALUES (?, ?, ?, ?, ?, ?)`,
			sp.TxGUID, sp.CurrencyGUID, sp.Num, FormatDate(sp.PostDate), FormatDate(sp.EnterDate), sp.Description); err != nil {
			return fmt.Errorf("inserting transaction %s: %w", sp.TxGUID, err)
		}
	}

	for _, sp := range splits {
		valueNum, valueDenom := CentsOf(sp.Value)
		qtyNum, qtyDenom := CentsOf(sp.Quantity)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO splits (guid, tx_guid, account_guid, memo, action, reconcile_state, reconcile_date,
			                     value_num, value_denom, quantity_num, quantity_denom, lot_guid)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			sp.GUID, sp.TxGUID, sp.AccountGUID, sp.Memo, sp.Action, sp.ReconcileState, "1970-01-01 00:00:00",
			valueNum, valueDenom, qtyNum, qtyDenom); err != nil {
			return fmt.Errorf("inserting split %s: %w", sp.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing write: %w", err)
	}
	return nil
}

// Rational converts a GnuCash num/denom pair. A zero denominator yields zero.
func Rational(num, denom int64) decimal.Decimal {
	if denom == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(denom))
}

// CentsOf converts d to a num/denom pair with denominator 100.
func CentsOf(d decimal.Decimal) (num, denom int64) {
	return d.Shift(2).Round(0).IntPart(), 100
}

// ParseDate parses a GnuCash timestamp. Empty input yields the zero time;
// fractional seconds or a trailing zone are ignored.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) >= len(DateFormat) {
		if t, err := time.Parse(DateFormat, s[:len(DateFormat)]); err == nil {
			return t, nil
		}
	}
	if len(s) == len(legacyDateFormat) {
		if t, err := time.Parse(legacyDateFormat, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders t the way GnuCash stores it.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}
