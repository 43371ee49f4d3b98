// Package ledgertest builds throwaway GnuCash SQLite books for tests.
package ledgertest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/ledger"
)

// Schema is the subset of the GnuCash SQLite schema farmbooks touches.
const Schema = `
CREATE TABLE accounts (
	guid text PRIMARY KEY NOT NULL, name text NOT NULL, account_type text NOT NULL,
	commodity_guid text, commodity_scu integer NOT NULL DEFAULT 100, non_std_scu integer NOT NULL DEFAULT 0,
	parent_guid text, code text, description text, hidden integer DEFAULT 0, placeholder integer DEFAULT 0
);
CREATE TABLE slots (
	id integer PRIMARY KEY AUTOINCREMENT NOT NULL, obj_guid text NOT NULL, name text NOT NULL,
	slot_type integer NOT NULL DEFAULT 4, int64_val bigint, string_val text, double_val float8,
	timespec_val text, guid_val text, numeric_val_num bigint, numeric_val_denom bigint, gdate_val text
);
CREATE TABLE transactions (
	guid text PRIMARY KEY NOT NULL, currency_guid text NOT NULL, num text NOT NULL,
	post_date text, enter_date text, description text
);
CREATE TABLE splits (
	guid text PRIMARY KEY NOT NULL, tx_guid text NOT NULL, account_guid text NOT NULL,
	memo text NOT NULL, action text NOT NULL, reconcile_state text NOT NULL, reconcile_date text,
	value_num bigint NOT NULL, value_denom bigint NOT NULL,
	quantity_num bigint NOT NULL, quantity_denom bigint NOT NULL, lot_guid text
);
CREATE TABLE commodities (
	guid text PRIMARY KEY NOT NULL, namespace text NOT NULL, mnemonic text NOT NULL, fullname text,
	cusip text, fraction integer NOT NULL DEFAULT 100, quote_flag integer NOT NULL DEFAULT 0,
	quote_source text, quote_tz text
);
CREATE TABLE prices (
	guid text PRIMARY KEY NOT NULL, commodity_guid text NOT NULL, currency_guid text NOT NULL,
	date text NOT NULL, source text, type text, value_num bigint NOT NULL, value_denom bigint NOT NULL
);
CREATE TABLE invoices (
	guid text PRIMARY KEY NOT NULL, id text NOT NULL, date_opened text, date_posted text,
	notes text NOT NULL DEFAULT '', active integer NOT NULL DEFAULT 1, currency text NOT NULL DEFAULT '',
	owner_type integer, owner_guid text, terms text, billing_id text,
	post_txn text, post_lot text, post_acc text
);
CREATE TABLE entries (
	guid text PRIMARY KEY NOT NULL, date text NOT NULL, date_entered text, description text,
	action text, notes text, quantity_num bigint, quantity_denom bigint,
	i_acct text, i_price_num bigint, i_price_denom bigint, i_discount_num bigint, i_discount_denom bigint,
	invoice text, i_disc_type text, i_disc_how text,
	b_acct text, b_price_num bigint, b_price_denom bigint, bill text
);
CREATE TABLE vendors (
	guid text PRIMARY KEY NOT NULL, name text NOT NULL, id text NOT NULL,
	notes text NOT NULL DEFAULT '', currency text NOT NULL DEFAULT '', active integer NOT NULL DEFAULT 1,
	addr_name text, addr_addr1 text, addr_addr2 text, addr_addr3 text, addr_addr4 text
);
CREATE TABLE customers (
	guid text PRIMARY KEY NOT NULL, name text NOT NULL, id text NOT NULL,
	notes text NOT NULL DEFAULT '', active integer NOT NULL DEFAULT 1
);
CREATE TABLE gnclock (Hostname varchar(255), PID int);
`

// USD is the currency guid used by every fixture.
const USD = "usd00000000000000000000000000000"

// Book is a GnuCash book under construction.
type Book struct {
	t    testing.TB
	db   *sql.DB
	Path string
}

// New creates an empty book in a temp dir.
func New(t testing.TB) *Book {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.gnucash")
	db, err := sql.Open(ledger.DriverName, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return &Book{t: t, db: db, Path: path}
}

// Open opens the book through ledger.Store and closes it at cleanup.
func (b *Book) Open() *ledger.Store {
	b.t.Helper()
	s, err := ledger.Open(b.Path)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { _ = s.Close() })
	return s
}

// Exec runs arbitrary SQL against the book.
func (b *Book) Exec(query string, args ...any) {
	b.t.Helper()
	_, err := b.db.Exec(query, args...)
	require.NoError(b.t, err)
}

// Account adds an account. parent and code may be empty.
func (b *Book) Account(guid, name, code, accountType, parent string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO accounts (guid, name, account_type, parent_guid, code, description) VALUES (?, ?, ?, NULLIF(?, ''), ?, '')`,
		guid, name, accountType, parent, code)
	return b
}

// CommodityAccount adds a STOCK account holding commodity.
func (b *Book) CommodityAccount(guid, name, code, parent, commodity string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO accounts (guid, name, account_type, parent_guid, code, commodity_guid) VALUES (?, ?, 'STOCK', NULLIF(?, ''), ?, ?)`,
		guid, name, parent, code, commodity)
	return b
}

// Notes attaches a notes slot to an object.
func (b *Book) Notes(guid, notes string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO slots (obj_guid, name, slot_type, string_val) VALUES (?, 'notes', 4, ?)`, guid, notes)
	return b
}

// Commodity adds a commodity, e.g. Commodity("corn", "Corn").
func (b *Book) Commodity(guid, fullname string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO commodities (guid, namespace, mnemonic, fullname) VALUES (?, 'GRAIN', ?, ?)`, guid, fullname, fullname)
	return b
}

// Price adds a quote priced in USD.
func (b *Book) Price(guid, commodity string, date time.Time, quoteType string, num, denom int64) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO prices (guid, commodity_guid, currency_guid, date, source, type, value_num, value_denom) VALUES (?, ?, ?, ?, 'user:price', ?, ?, ?)`,
		guid, commodity, USD, ledger.FormatDate(date), quoteType, num, denom)
	return b
}

// Leg is one split of a fixture transaction. Value and Quantity are decimal strings;
// an empty Quantity copies Value.
type Leg struct {
	GUID     string
	Account  string
	Action   string
	Memo     string
	Value    string
	Quantity string
	Lot      string
}

// Transaction adds a transaction with its splits.
func (b *Book) Transaction(guid, num string, date time.Time, description string, legs ...Leg) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO transactions (guid, currency_guid, num, post_date, enter_date, description) VALUES (?, ?, ?, ?, ?, ?)`,
		guid, USD, num, ledger.FormatDate(date), ledger.FormatDate(date), description)
	for _, l := range legs {
		qty := l.Quantity
		if qty == "" {
			qty = l.Value
		}
		vn, vd := ledger.CentsOf(decimal.RequireFromString(l.Value))
		qn, qd := ledger.CentsOf(decimal.RequireFromString(qty))
		b.Exec(`INSERT INTO splits (guid, tx_guid, account_guid, memo, action, reconcile_state, value_num, value_denom, quantity_num, quantity_denom, lot_guid) VALUES (?, ?, ?, ?, ?, 'n', ?, ?, ?, ?, NULLIF(?, ''))`,
			l.GUID, guid, l.Account, l.Memo, l.Action, vn, vd, qn, qd, l.Lot)
	}
	return b
}

// Vendor adds a vendor whose notes may carry lease terms.
func (b *Book) Vendor(guid, name, notes string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO vendors (guid, name, id, notes) VALUES (?, ?, ?, ?)`, guid, name, guid, notes)
	return b
}

// VendorAddress sets the first address lines of a vendor.
func (b *Book) VendorAddress(guid string, lines ...string) *Book {
	b.t.Helper()
	addr := make([]any, 3)
	for i := range addr {
		addr[i] = ""
		if i < len(lines) {
			addr[i] = lines[i]
		}
	}
	b.Exec(`UPDATE vendors SET addr_addr1 = ?, addr_addr2 = ?, addr_addr3 = ? WHERE guid = ?`, append(addr, guid)...)
	return b
}

// Customer adds a customer.
func (b *Book) Customer(guid, name string) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO customers (guid, name, id) VALUES (?, ?, ?)`, guid, name, guid)
	return b
}

// Entry is one line of a fixture invoice or bill. Quantity and Price are decimal strings.
type Entry struct {
	GUID        string
	Account     string
	Action      string
	Description string
	Quantity    string
	Price       string
	Date        time.Time
}

// Bill adds a posted vendor bill.
func (b *Book) Bill(guid, id, vendor, billingID, postTxn string, posted time.Time, entries ...Entry) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO invoices (guid, id, date_opened, date_posted, owner_type, owner_guid, billing_id, post_txn) VALUES (?, ?, ?, ?, 4, ?, ?, ?)`,
		guid, id, ledger.FormatDate(posted), ledger.FormatDate(posted), vendor, billingID, postTxn)
	for _, e := range entries {
		qn, qd := ledger.CentsOf(decimal.RequireFromString(e.Quantity))
		pn, pd := ledger.CentsOf(decimal.RequireFromString(e.Price))
		b.Exec(`INSERT INTO entries (guid, date, description, action, quantity_num, quantity_denom, b_acct, b_price_num, b_price_denom, bill) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.GUID, ledger.FormatDate(e.Date), e.Description, e.Action, qn, qd, e.Account, pn, pd, guid)
	}
	return b
}

// Invoice adds a posted customer invoice.
func (b *Book) Invoice(guid, id, customer, billingID, postTxn string, posted time.Time, entries ...Entry) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO invoices (guid, id, date_opened, date_posted, owner_type, owner_guid, billing_id, post_txn) VALUES (?, ?, ?, ?, 2, ?, ?, ?)`,
		guid, id, ledger.FormatDate(posted), ledger.FormatDate(posted), customer, billingID, postTxn)
	for _, e := range entries {
		qn, qd := ledger.CentsOf(decimal.RequireFromString(e.Quantity))
		pn, pd := ledger.CentsOf(decimal.RequireFromString(e.Price))
		b.Exec(`INSERT INTO entries (guid, date, description, action, quantity_num, quantity_denom, i_acct, i_price_num, i_price_denom, i_discount_num, i_discount_denom, invoice, i_disc_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, 'VALUE')`,
			e.GUID, ledger.FormatDate(e.Date), e.Description, e.Action, qn, qd, e.Account, pn, pd, guid)
	}
	return b
}

// PostLot records the lot GnuCash opened when the invoice or bill was posted.
func (b *Book) PostLot(invoice, lot string) *Book {
	b.t.Helper()
	b.Exec(`UPDATE invoices SET post_lot = ? WHERE guid = ?`, lot, invoice)
	return b
}

// Lock adds a gnclock row as an open GnuCash session would.
func (b *Book) Lock(hostname string, pid int) *Book {
	b.t.Helper()
	b.Exec(`INSERT INTO gnclock (Hostname, PID) VALUES (?, ?)`, hostname, pid)
	return b
}

// Date is shorthand for a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
