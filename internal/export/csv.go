package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// TransactionHeader is the header row of a transaction snapshot.
var TransactionHeader = []string{
	"post_date", "num", "description", "account_code", "account_name", "account_type",
	"report_bucket", "src_name", "src_type", "memo", "action",
	"amount", "units", "quantity", "depreciation_code", "parent_chain", "tx_guid", "split_guid",
}

const snapshotDateFormat = "2006-01-02"

// MarshalTransaction converts a view row to a CSV record.
func MarshalTransaction(t model.Transaction) []string {
	return []string{
		t.PostDate.Format(snapshotDateFormat),
		t.Num,
		t.Description,
		t.AccountCode,
		t.AccountName,
		string(t.AccountType),
		t.ReportBucket,
		t.SrcName,
		string(t.SrcType),
		t.Memo,
		t.Action,
		t.Amount.StringFixed(2),
		t.Units.String(),
		t.Quantity.String(),
		t.DepreciationCode,
		t.ParentChain,
		t.TxGUID,
		t.SplitGUID,
	}
}

// WriteTransactions writes txs as CSV with a header row.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txs {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTransactions writes txs to <dir>/<name>.csv and returns the path.
func SaveTransactions(dir, name string, txs []model.Transaction) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating snapshot: %w", err)
	}
	if err := WriteTransactions(f, txs); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot: %w", err)
	}
	return path, nil
}
