package model

// AccountType classifies accounts the way GnuCash stores them in accounts.account_type,
// plus the derived types produced by farm reclassification and reporting.
type AccountType string

const (
	AccountTypeRoot       AccountType = "ROOT"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeReceivable AccountType = "RECEIVABLE"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeStock      AccountType = "STOCK"
	AccountTypeMutual     AccountType = "MUTUAL"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeEquity     AccountType = "EQUITY"
	AccountTypeTrading    AccountType = "TRADING"

	// Derived by the farm view.
	AccountTypeNonFarmExpense AccountType = "NF EXPENSE"
	AccountTypeDepreciation   AccountType = "DEPRECIATION"

	// Summary rows of the executive summary.
	AccountTypeOIBDA     AccountType = "OIBDA"
	AccountTypeNetIncome AccountType = "NET INCOME"
)

// CashAccountTypes are the account types whose splits make up the cash view.
var CashAccountTypes = []AccountType{
	AccountTypeReceivable,
	AccountTypePayable,
	AccountTypeBank,
	AccountTypeCredit,
	AccountTypeCash,
}

// Account is a row of the GnuCash accounts table joined with its notes slot.
type Account struct {
	GUID          string
	Name          string
	Code          string // may be alphanumeric, e.g. "301c"
	Type          AccountType
	ParentGUID    string // "" = top-level
	CommodityGUID string
	Description   string
	Notes         string // free text, may embed TOML terms
}
