package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/report"
	"github.com/sells-group/underwriting-cli/internal/store"
)

var evaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "Inspect and export evaluation history",
}

// -- evaluations list --

var evaluationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "export")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		evs, err := st.ListEvaluations(ctx, evaluationFilter(cmd))
		if err != nil {
			return eris.Wrap(err, "evaluations list")
		}
		if len(evs) == 0 {
			fmt.Fprintln(os.Stderr, "No evaluations found.")
			return nil
		}
		formatEvaluationsList(cmd.OutOrStdout(), evs)
		return nil
	},
}

// -- evaluations export --

var evaluationsExportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Write evaluations to an XLSX audit workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "export")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		evs, err := st.ListEvaluations(ctx, evaluationFilter(cmd))
		if err != nil {
			return eris.Wrap(err, "evaluations export")
		}
		if err := report.Save(args[0], evs); err != nil {
			return err
		}
		zap.L().Info("workbook written", zap.String("path", args[0]), zap.Int("evaluations", len(evs)))
		return nil
	},
}

func evaluationFilter(cmd *cobra.Command) store.EvaluationFilter {
	caseID, _ := cmd.Flags().GetString("case")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	return store.EvaluationFilter{
		CaseID: caseID,
		Status: model.Status(status),
		Limit:  limit,
	}
}

func formatEvaluationsList(w io.Writer, evs []model.Evaluation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCASE\tSTATUS\tSCORE\tNAMES\tPASSPORT\tCREATED")
	for _, ev := range evs {
		passport := "-"
		if ev.ImageFraud != nil {
			passport = string(ev.ImageFraud.RiskLevel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			shortID(ev.ID),
			ev.CaseID,
			ev.Decision.Status,
			ev.Decision.Score,
			ev.TextFraud.Type,
			passport,
			ev.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	for _, c := range []*cobra.Command{evaluationsListCmd, evaluationsExportCmd} {
		c.Flags().String("case", "", "filter by case id")
		c.Flags().String("status", "", "filter by status (approved, manual_review, rejected)")
		c.Flags().Int("limit", 50, "max number of evaluations")
	}
	evaluationsCmd.AddCommand(evaluationsListCmd)
	evaluationsCmd.AddCommand(evaluationsExportCmd)
	rootCmd.AddCommand(evaluationsCmd)
}
