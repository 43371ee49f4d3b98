package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Split is one raw leg of a ledger transaction joined with its transaction header.
type Split struct {
	GUID           string
	TxGUID         string
	AccountGUID    string
	CurrencyGUID   string
	PostDate       time.Time
	EnterDate      time.Time
	Num            string
	Description    string
	Memo           string
	Action         string
	ReconcileState string
	Value          decimal.Decimal // value_num / value_denom
	Quantity       decimal.Decimal // quantity_num / quantity_denom
	LotGUID        string          // "" when the split belongs to no lot
}

// Transaction is a fetched, annotated view row. Account fields describe the
// split being reported; Src fields describe the account the view was pulled from.
type Transaction struct {
	TxGUID      string
	SplitGUID   string
	AccountGUID string
	AccountName string
	AccountCode string
	AccountType AccountType
	AccountDesc string

	SrcGUID string
	SrcName string
	SrcCode string
	SrcType AccountType

	PostDate    time.Time
	Num         string
	Description string
	Memo        string
	Action      string

	Amount   decimal.Decimal // signed per the view's multiplier
	Units    decimal.Decimal // split quantity (bushels for grain stock)
	Quantity decimal.Decimal // invoice quantity, zero when unmatched

	ReportBucket  string
	ParentChain   string
	CommodityGUID string
	CurrencyGUID  string

	DepreciationCode string // "800" regular, "801" Section 179; empty for ledger rows
}
