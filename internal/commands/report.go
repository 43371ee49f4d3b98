package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/farmbooks-dev/farmbooks/internal/export"
	"github.com/farmbooks-dev/farmbooks/internal/farm"
	"github.com/farmbooks-dev/farmbooks/internal/reports"
)

// reportFlags select where a report goes.
type reportFlags struct {
	xlsx bool
	csv  bool
}

func newReportCommand(g *globals) *cobra.Command {
	rf := &reportFlags{}
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Produce farm reports",
	}
	reportCmd.PersistentFlags().BoolVar(&rf.xlsx, "xlsx", false, "write a workbook to the export dir instead of the terminal")
	reportCmd.PersistentFlags().BoolVar(&rf.csv, "csv", false, "also snapshot the farm transactions to the data dir")

	reportCmd.AddCommand(
		newBalanceSheetCommand(g, rf),
		newSummaryCommand(g, rf),
		newDepreciationCommand(g, rf),
		newLeaseCommand(g, rf),
		newGrainContractsCommand(g, rf),
		newVendors1099Command(g, rf),
		newTrendCommand(g, rf),
		newSanityCommand(g, rf),
		newValueCommand(g, rf),
		newAccountsCommand(g, rf),
	)
	return reportCmd
}

// reportRun is one report invocation: a session, a Reporter over its book and
// the tables collected for output.
type reportRun struct {
	*session
	g      *globals
	flags  *reportFlags
	rep    *reports.Reporter
	out    io.Writer
	tables []export.Table
}

// runReport opens the book and calls build, then writes what build added.
func runReport(cmd *cobra.Command, g *globals, rf *reportFlags, name string, build func(*reportRun) error) error {
	s, err := g.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	run := &reportRun{
		session: s,
		g:       g,
		flags:   rf,
		rep:     reports.New(s.store, s.accountOptions(), s.log),
		out:     cmd.OutOrStdout(),
	}
	if err := build(run); err != nil {
		return err
	}
	if rf.csv {
		if err := run.snapshot(cmd, name); err != nil {
			return err
		}
	}
	return run.flush(name)
}

func (r *reportRun) add(tables ...export.Table) {
	r.tables = append(r.tables, tables...)
}

func (r *reportRun) flush(name string) error {
	if !r.flags.xlsx {
		term := export.NewTerminal(r.out)
		for i, t := range r.tables {
			if i > 0 {
				fmt.Fprintln(r.out)
			}
			if err := term.Render(t); err != nil {
				return fmt.Errorf("rendering %s: %w", t.Title, err)
			}
		}
		return nil
	}

	wb, err := export.NewWorkbook(r.cfg.Excel)
	if err != nil {
		return err
	}
	defer wb.Close()
	for _, t := range r.tables {
		if err := wb.AddSheet(t); err != nil {
			return err
		}
	}
	path := filepath.Join(r.exportDir(), fmt.Sprintf("%s-%d.xlsx", name, r.g.year))
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := wb.SaveAs(path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Wrote %s (%d sheets)\n", path, len(wb.Sheets()))
	return nil
}

func (r *reportRun) snapshot(cmd *cobra.Command, name string) error {
	txs, err := r.rep.Pipeline().FarmTransactions(cmd.Context(), farm.Year(r.g.year), true)
	if err != nil {
		return err
	}
	path, err := export.SaveTransactions(r.dataDir(), fmt.Sprintf("%s-%d", name, r.g.year), txs)
	if err != nil {
		return err
	}
	r.log.Info("saved transaction snapshot", "path", path, "rows", len(txs))
	return nil
}

func newBalanceSheetCommand(g *globals, rf *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, cash, liabilities and grain on hand at year end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "balance-sheet", func(r *reportRun) error {
				bs, err := r.rep.BalanceSheet(cmd.Context(), g.year)
				if err != nil {
					return err
				}
				r.add(export.BalanceSheetTables(bs)...)
				return nil
			})
		},
	}
}

const (
	byAccount = "account"
	byBucket  = "bucket"
)

func newSummaryCommand(g *globals, rf *reportFlags) *cobra.Command {
	var by string
	var withDepreciation bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Executive summary plus totals per account or report bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if by != byAccount && by != byBucket {
				return fmt.Errorf("--by must be %q or %q, got %q", byAccount, byBucket, by)
			}
			return runReport(cmd, g, rf, "summary", func(r *reportRun) error {
				ctx := cmd.Context()
				lines, err := r.rep.ExecutiveSummary(ctx, g.year, withDepreciation)
				if err != nil {
					return err
				}
				r.add(export.ExecutiveSummaryTable(g.year, lines))
				if by == byBucket {
					rows, err := r.rep.SummaryByBucket(ctx, g.year, withDepreciation)
					if err != nil {
						return err
					}
					r.add(export.BucketSummaryTable(g.year, rows))
					return nil
				}
				rows, err := r.rep.SummaryByAccount(ctx, g.year, withDepreciation)
				if err != nil {
					return err
				}
				r.add(export.AccountSummaryTable(g.year, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", byAccount, "group totals by account or bucket")
	cmd.Flags().BoolVar(&withDepreciation, "depreciation", false, "include depreciation entries")

	return cmd
}

func newDepreciationCommand(g *globals, rf *reportFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "depreciation",
		Short: "Depreciation schedule entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "depreciation", func(r *reportRun) error {
				scope, title := farm.Year(g.year), fmt.Sprintf("Depreciation %d", g.year)
				if all {
					scope, title = farm.AllYears, "Depreciation"
				}
				entries, err := r.rep.Depreciation(cmd.Context(), scope)
				if err != nil {
					return err
				}
				r.add(export.DepreciationTable(title, entries))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "show every scheduled year")

	return cmd
}

func newLeaseCommand(g *globals, rf *reportFlags) *cobra.Command {
	var rented, planted, production, byOperation bool

	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Flexible lease settlements per crop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "lease", func(r *reportRun) error {
				ctx := cmd.Context()
				leases, err := r.rep.FlexibleLeases(ctx, g.year)
				if err != nil {
					return err
				}
				r.add(export.LeaseTables(g.year, leases)...)
				if rented {
					rows, err := r.rep.RentedAcres(ctx, g.year)
					if err != nil {
						return err
					}
					r.add(export.RentedAcresTable(g.year, rows))
				}
				if planted {
					rows, err := r.rep.PlantedAcres(ctx, g.year, byOperation)
					if err != nil {
						return err
					}
					r.add(export.PlantedAcresTable(g.year, rows))
				}
				if production {
					rows, err := r.rep.Production(ctx, g.year, byOperation)
					if err != nil {
						return err
					}
					r.add(export.ProductionTable(g.year, rows))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&rented, "rented", false, "include rented acres")
	cmd.Flags().BoolVar(&planted, "planted", false, "include planted acres")
	cmd.Flags().BoolVar(&production, "production", false, "include production per field")
	cmd.Flags().BoolVar(&byOperation, "by-operation", false, "split planted acres and production by operation id")

	return cmd
}

func newGrainContractsCommand(g *globals, rf *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "grain-contracts",
		Short: "Grain invoices with discounts and payment status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "grain-contracts", func(r *reportRun) error {
				rows, err := r.rep.GrainContracts(cmd.Context(), g.year)
				if err != nil {
					return err
				}
				r.add(export.GrainContractsTable(g.year, rows))
				return nil
			})
		},
	}
}

func newVendors1099Command(g *globals, rf *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "1099",
		Short: "Bills per report bucket for vendors flagged Receive_1099",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "1099", func(r *reportRun) error {
				rows, err := r.rep.Vendors1099(cmd.Context(), g.year)
				if err != nil {
					return err
				}
				r.add(export.Vendors1099Table(g.year, rows))
				return nil
			})
		},
	}
}

func newTrendCommand(g *globals, rf *reportFlags) *cobra.Command {
	var years int
	var by string
	var withDepreciation bool

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Year-over-year totals ending at --year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "trend", func(r *reportRun) error {
				fn, title := r.rep.SummaryTrend(withDepreciation), "Summary Trend"
				switch by {
				case byAccount:
					fn, title = r.rep.AccountTrend(withDepreciation), "Account Trend"
				case "", "type":
				default:
					return fmt.Errorf("--by must be %q or %q, got %q", "type", byAccount, by)
				}
				tbl, err := reports.Trend(cmd.Context(), years, g.year, fn)
				if err != nil {
					return err
				}
				r.add(export.TrendTable(title+" "+strconv.Itoa(g.year), tbl))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&years, "years", 3, "number of years")
	cmd.Flags().StringVar(&by, "by", "type", "trend per account type or per account")
	cmd.Flags().BoolVar(&withDepreciation, "depreciation", false, "include depreciation entries")

	return cmd
}

func newSanityCommand(g *globals, rf *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sanity",
		Short: "Check the farm cash flow against cash and payable balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "sanity", func(r *reportRun) error {
				res, err := r.rep.SanityCheck(cmd.Context(), g.year)
				if err != nil {
					return err
				}
				r.add(export.SanityTable(res))
				return nil
			})
		},
	}
}

func newValueCommand(g *globals, rf *reportFlags) *cobra.Command {
	var shares int64

	cmd := &cobra.Command{
		Use:   "value",
		Short: "Corporation value per share from the balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "value", func(r *reportRun) error {
				n := r.cfg.Valuation.Shares
				if shares > 0 {
					n = shares
				}
				lines, err := r.rep.CorporationValue(cmd.Context(), g.year, n, r.cfg.Valuation.Discounts)
				if err != nil {
					return err
				}
				r.add(export.ValueTable(g.year, lines))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&shares, "shares", 0, "share count (overrides valuation.shares)")

	return cmd
}

func newAccountsCommand(g *globals, rf *reportFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Resolved account tree; snapshots accounts.csv to the data dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, g, rf, "accounts", func(r *reportRun) error {
				hier, err := r.rep.Accounts(cmd.Context())
				if err != nil {
					return err
				}
				if err := hier.Save(r.dataDir()); err != nil {
					return err
				}
				r.add(export.AccountsTable(hier))
				return nil
			})
		},
	}
}
