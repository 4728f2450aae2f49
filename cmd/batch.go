package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/pipeline"
	"github.com/sells-group/underwriting-cli/internal/report"
)

var (
	batchCSV         string
	batchConcurrency int
	batchXLSX        string
)

var batchCmd = &cobra.Command{
	Use:   "batch [case-id...]",
	Short: "Evaluate many cases concurrently",
	Long: `Evaluates the given cases, or the cases listed in a CSV file, with bounded concurrency.

The CSV has a case_id column and an optional dti column:

  case_id,dti
  case-001,0.31
  case-002,`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reqs := make([]pipeline.CaseRequest, 0, len(args))
		for _, id := range args {
			reqs = append(reqs, pipeline.CaseRequest{CaseID: id})
		}
		if batchCSV != "" {
			f, err := os.Open(batchCSV)
			if err != nil {
				return eris.Wrap(err, "batch: open csv")
			}
			fromCSV, err := parseCaseCSV(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			reqs = append(reqs, fromCSV...)
		}
		if len(reqs) == 0 {
			return eris.New("batch: no cases given")
		}

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrentCases = batchConcurrency
		}
		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		results := env.Pipeline.EvaluateMany(ctx, reqs, cfg.Batch.MaxConcurrentCases)
		formatBatchResults(cmd.OutOrStdout(), results)

		if batchXLSX != "" {
			var evs []model.Evaluation
			for _, r := range results {
				if r.Evaluation != nil {
					evs = append(evs, *r.Evaluation)
				}
			}
			if err := report.Save(batchXLSX, evs); err != nil {
				return err
			}
			zap.L().Info("batch: workbook written", zap.String("path", batchXLSX), zap.Int("evaluations", len(evs)))
		}

		for _, r := range results {
			if r.Err != nil {
				return eris.New("batch: one or more cases failed")
			}
		}
		return nil
	},
}

// parseCaseCSV reads case_id[,dti] rows. A header row is skipped when its
// first cell is "case_id"; an empty dti means unknown.
func parseCaseCSV(r io.Reader) ([]pipeline.CaseRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "batch: parse csv")
	}

	var reqs []pipeline.CaseRequest
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id := strings.TrimSpace(row[0])
		if i == 0 && strings.EqualFold(id, "case_id") {
			continue
		}
		req := pipeline.CaseRequest{CaseID: id}
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
			if err != nil || v < 0 {
				return nil, eris.Errorf("batch: line %d: invalid dti %q", i+1, row[1])
			}
			req.DTI = &v
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func formatBatchResults(w io.Writer, results []pipeline.CaseResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tSTATUS\tSCORE\tREASON")
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\terror\t-\t%s\n", r.CaseID, r.Err)
			continue
		}
		d := r.Evaluation.Decision
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", r.CaseID, d.Status, d.Score, d.Reason)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d cases, %d failed\n", len(results), failed)
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "CSV file of case_id[,dti] rows")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max cases in flight (default from batch.max_concurrent_cases)")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "also write the evaluations to this workbook")
	rootCmd.AddCommand(batchCmd)
}
