package main

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var evaluateDTI float64

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <case-id>",
	Short: "Score a case and record the underwriting decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dti, err := dtiFlag(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "evaluate")
		if err != nil {
			return err
		}
		defer env.Close()

		ev, err := env.Pipeline.Evaluate(ctx, args[0], dti)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ev)
	},
}

// dtiFlag returns the --dti value, or nil when the flag was not given.
func dtiFlag(cmd *cobra.Command) (*float64, error) {
	if !cmd.Flags().Changed("dti") {
		return nil, nil
	}
	v, err := cmd.Flags().GetFloat64("dti")
	if err != nil {
		return nil, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, eris.Errorf("--dti must be a non-negative ratio, got %v", v)
	}
	return &v, nil
}

func init() {
	evaluateCmd.Flags().Float64Var(&evaluateDTI, "dti", 0, "applicant debt-to-income ratio (e.g. 0.35); omitted means unknown")
	rootCmd.AddCommand(evaluateCmd)
}
