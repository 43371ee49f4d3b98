package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice types as derived from invoices.owner_type.
const (
	InvoiceTypeInvoice = "INVOICE"
	InvoiceTypeBill    = "BILL"
)

// QuantityTypeProject marks base-rent entries; "Hours" and "Material" are the other choices.
const QuantityTypeProject = "Project"

// InvoiceLine is one entry of a posted invoice or bill.
type InvoiceLine struct {
	InvID        string
	InvType      string
	TxGUID       string // post_txn, join key to transactions
	AccountGUID  string
	DatePosted   time.Time
	DueDate      time.Time
	Quantity     decimal.Decimal
	QuantityType string
	OrgName      string
	OrgID        string
	OrgAddress   string // vendor address lines joined with ", "
	OrgNotes     string
	Operation    string // entry description, e.g. the field name
	OperationID  string // invoice billing id
	Amount       decimal.Decimal
	DiscAmount   decimal.Decimal
	PostLot      string // lot of the posting split; payments land in it
}

// Net is the line amount less its discount.
func (l InvoiceLine) Net() decimal.Decimal {
	return l.Amount.Sub(l.DiscAmount)
}
