package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var passportCmd = &cobra.Command{
	Use:   "passport <case-id> <extraction.json> <image>",
	Short: "Ingest the identity document and check passport geometry",
	Long:  "Stores the identity document extraction, locates the passport landmarks in the image with the detection API, compares their layout with the reference passport and stores the fraud report and an annotated PNG.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrap(err, "passport: read extraction")
		}
		img, err := os.ReadFile(args[2])
		if err != nil {
			return eris.Wrap(err, "passport: read image")
		}

		env, err := initEnv(ctx, "passport")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.IngestIdentity(ctx, args[0], raw, img, filepath.Base(args[2]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(passportCmd)
}
