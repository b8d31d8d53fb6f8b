package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/report"
	"github.com/fintel-group/report-extract/internal/store"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect report job history",
	Long:  "Commands for listing and viewing report extraction jobs.",
}

// -- reports list --

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		reports, err := st.ListReports(ctx, store.ReportFilter{
			Status: model.ReportStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "reports list")
		}

		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}

		formatReportsList(os.Stdout, reports)
		return nil
	},
}

// -- reports show --

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show full details of a report job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rep, err := st.GetReport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reports show")
		}

		out := map[string]any{"report": rep}
		if len(rep.Result) > 0 {
			final, err := report.UnmarshalResult(rep.Result)
			if err != nil {
				return eris.Wrap(err, "reports show")
			}
			out["result"] = final
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// -- reports export --

var reportsExportCmd = &cobra.Command{
	Use:   "export <report-id> <path.xlsx>",
	Short: "Export a completed report to a spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rep, err := st.GetReport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reports export")
		}
		if rep.Status != model.ReportStatusCompleted {
			return eris.Errorf("report %s is %s, not completed", rep.ID, rep.Status)
		}

		final, err := report.UnmarshalResult(rep.Result)
		if err != nil {
			return eris.Wrap(err, "reports export")
		}
		return report.ExportXLSX(final, args[1])
	},
}

func formatReportsList(w io.Writer, reports []model.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCREATED\tUPDATED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FileName, r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func init() {
	reportsListCmd.Flags().String("status", "", "filter by status (PENDING, PROCESSING, COMPLETED, FAILED)")
	reportsListCmd.Flags().Int("limit", 50, "max number of reports to display")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsExportCmd)
	rootCmd.AddCommand(reportsCmd)
}
