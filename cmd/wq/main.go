package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/abelzeko/water-quality-bot/internal/app"
	"github.com/abelzeko/water-quality-bot/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wq",
		Short: "Water quality risk checker",
		Long: `wq scores water samples against fixed safe bands, tags likely
contaminant elements, and keeps every evaluated sample in a dataset.

A random-forest classifier can be trained from the dataset, a labelled CSV,
or synthetic readings, and consulted alongside the threshold rules.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (WQ_* env vars override)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Show log output")

	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(presetsCmd())
	return rootCmd
}

// openApp loads configuration from the --config flag and wires the application
func openApp(cmd *cobra.Command) (*app.App, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		log.SetOutput(io.Discard)
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, false)
}
