package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// SnapshotFile is the name of the resolved account table in the data dir.
const SnapshotFile = "accounts.csv"

const (
	numFields     = 9
	colGUID       = 0
	colName       = 1
	colCode       = 2
	colType       = 3
	colParent     = 4
	colCommodity  = 5
	colBucket     = 6
	colDescriptor = 7
	colChain      = 8
)

var header = []string{"guid", "name", "code", "account_type", "parent_guid", "commodity_guid", "report_bucket", "descriptor", "parent_chain"}

// ReadResolved reads a resolved account snapshot.
func ReadResolved(r io.Reader) ([]Resolved, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accts []Resolved
	for _, rec := range records[1:] {
		accts = append(accts, UnmarshalResolved(rec))
	}
	return accts, nil
}

// WriteResolved writes a resolved account snapshot.
func WriteResolved(w io.Writer, accts []Resolved) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, a := range accts {
		if err := cw.Write(MarshalResolved(a)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalResolved converts a Resolved account to a CSV row.
func MarshalResolved(a Resolved) []string {
	row := make([]string, numFields)
	row[colGUID] = a.GUID
	row[colName] = a.Name
	row[colCode] = a.Code
	row[colType] = string(a.Type)
	row[colParent] = a.ParentGUID
	row[colCommodity] = a.CommodityGUID
	row[colBucket] = a.Bucket
	row[colDescriptor] = a.Descriptor
	row[colChain] = a.ParentChain()
	return row
}

// UnmarshalResolved converts a CSV row back to a Resolved account.
func UnmarshalResolved(record []string) Resolved {
	var chain []string
	if record[colChain] != "" {
		chain = strings.Split(record[colChain], Delimiter)
	}
	return Resolved{
		Account: model.Account{
			GUID:          record[colGUID],
			Name:          record[colName],
			Code:          record[colCode],
			Type:          model.AccountType(record[colType]),
			ParentGUID:    record[colParent],
			CommodityGUID: record[colCommodity],
		},
		Chain:      chain,
		Bucket:     record[colBucket],
		Descriptor: record[colDescriptor],
	}
}

// Save writes the hierarchy to dir/accounts.csv.
func (h *Hierarchy) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dir, SnapshotFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating accounts snapshot: %w", err)
	}
	defer f.Close()

	if err := WriteResolved(f, h.accounts); err != nil {
		return fmt.Errorf("writing accounts snapshot: %w", err)
	}
	return nil
}
