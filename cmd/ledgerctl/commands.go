package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gameroom-backend/internal/config"
	"gameroom-backend/internal/database"
	"gameroom-backend/internal/models"
	"gameroom-backend/internal/services"
)

// ErrInconsistent is returned by reconcile when any balance disagrees with its history
var ErrInconsistent = errors.New("balance history is inconsistent")

type opener func(ctx context.Context) (database.Repository, *config.Config, func(), error)

type app struct {
	out  io.Writer
	log  *logrus.Logger
	open opener
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operator tools for the gameroom bank ledger",
		Long: `Inspect and verify owner ledgers directly against the database.

Available subcommands:
  reconcile - Replay balance history and compare it with the cached balance
  history   - Print the most recent balance entries
  report    - Print or export a monthly profit/loss report`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("owner", "", "owner id")

	root.AddCommand(newReconcileCmd(a), newHistoryCmd(a), newReportCmd(a))
	return root
}

func ownerFlag(cmd *cobra.Command) (string, error) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		return "", errors.New("--owner is required")
	}
	return owner, nil
}

func newReconcileCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay balance history and compare it with the cached balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			if owner == "" && !all {
				return errors.New("--owner or --all is required")
			}

			ctx := cmd.Context()
			repo, _, closeFn, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			owners := []string{owner}
			if all {
				if owners, err = repo.ListOwnerIDs(ctx); err != nil {
					return fmt.Errorf("failed to list owners: %w", err)
				}
			}

			ledger := services.NewBankLedger(repo, nil, a.log)
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OWNER\tCACHED\tREPLAYED\tENTRIES\tSTATUS")
			bad := 0
			for _, id := range owners {
				rec, err := ledger.Reconcile(ctx, id)
				if err != nil {
					return err
				}
				status := "ok"
				if !rec.Consistent {
					bad++
					status = "MISMATCH"
					if rec.FirstDivergentID != nil {
						status += " at " + *rec.FirstDivergentID
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", id, rec.CachedBalance.StringFixed(2), rec.ReplayedBalance.StringFixed(2), rec.EntryCount, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if bad > 0 {
				return fmt.Errorf("%w: %d of %d owners", ErrInconsistent, bad, len(owners))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every owner")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent balance entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, cfg, closeFn, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := services.NewBankLedger(repo, nil, a.log).History(ctx, owner, limit, 0)
			if err != nil {
				return err
			}
			return printEntries(a.out, entries, locationOf(cfg))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to print, 0 for all")
	return cmd
}

func printEntries(out io.Writer, entries []models.BalanceEntry, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tAMOUNT\tBALANCE\tNOTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.In(loc).Format("2006-01-02 15:04"), e.Type, e.Amount.StringFixed(2), e.NewBalance.StringFixed(2), e.Notes)
	}
	return tw.Flush()
}

func newReportCmd(a *app) *cobra.Command {
	var month, xlsxPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print or export a monthly profit/loss report",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, cfg, closeFn, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := services.NewReportService(repo, a.log, locationOf(cfg)).BuildMonthlyReport(ctx, owner, month)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				buf, _, err := services.ExportMonthlyReport(report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
				}
				fmt.Fprintf(a.out, "wrote %s\n", xlsxPath)
				return nil
			}
			return printReport(a.out, report)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM, defaults to the current month")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the report to this .xlsx file instead of printing it")
	return cmd
}

func printReport(out io.Writer, report *models.MonthlyReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Report for %s\n", report.Month)
	fmt.Fprintln(tw, "DATE\tSHIFTS\tSHIFT P/L\tMATCHED\tEXPENSES\tNET")
	for _, d := range report.DailyReports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", d.Date, d.ShiftCount,
			d.ShiftProfitLoss.StringFixed(2), d.TotalMatchedAmount.StringFixed(2), d.TotalExpenses.StringFixed(2), d.NetProfit.StringFixed(2))
	}
	fmt.Fprintf(tw, "Total\t%d\t%s\t%s\t%s\t%s\n", report.ShiftCount,
		report.TotalProfitLoss.StringFixed(2), report.TotalMatched.StringFixed(2), report.TotalExpenses.StringFixed(2), report.MonthlyNetProfit.StringFixed(2))
	return tw.Flush()
}

func locationOf(cfg *config.Config) *time.Location {
	if cfg == nil || cfg.Location == nil {
		return time.UTC
	}
	return cfg.Location
}
