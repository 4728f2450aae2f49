package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwriting-cli/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <case-id> <document-type> <extraction.json>",
	Short: "Store a document extraction and compute its KPIs",
	Long: "Stores the extracted JSON fields of one document with the case and prints the KPIs computed from it.\n" +
		"Document types: bank-statements, credit-reports, identity-documents, income-proof, tax-statements, utility-bills.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dt, err := model.ParseDocumentType(args[1])
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[2])
		if err != nil {
			return eris.Wrap(err, "ingest: read extraction")
		}

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		kpis, err := env.Pipeline.Ingest(ctx, args[0], dt, raw)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), kpis)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
