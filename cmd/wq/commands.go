package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
	"github.com/abelzeko/water-quality-bot/internal/usecases"
	"github.com/spf13/cobra"
)

func addReadingFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("ph", 0, "pH (0-14)")
	cmd.Flags().Float64("tds", 0, "Total dissolved solids, mg/L")
	cmd.Flags().Float64("hardness", 0, "Hardness, mg/L")
	cmd.Flags().Float64("nitrate", 0, "Nitrate, mg/L")
	cmd.Flags().Float64("uranium", 0, "Uranium, mg/L (optional)")
	cmd.Flags().Float64("conductivity", 0, "Conductivity, µS/cm (optional)")
	cmd.Flags().String("location", "", "Sampling location")

	for _, name := range []string{"ph", "tds", "hardness", "nitrate"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// readingFromFlags builds a reading from flags and checks it against the input limits
func readingFromFlags(cmd *cobra.Command) (entities.Reading, error) {
	var r entities.Reading
	r.Location, _ = cmd.Flags().GetString("location")
	for _, p := range entities.Parameters {
		name := string(p)
		optional := p == entities.Uranium || p == entities.Conductivity
		if optional && !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64(name)
		if err != nil {
			return r, err
		}
		if err := r.Set(p, v); err != nil {
			return r, err
		}
	}
	return r, r.Validate()
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a water sample and record it in the dataset",
		Example: `  wq evaluate --ph 7.2 --tds 310 --hardness 140 --nitrate 12 --location "Garden well"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reading, err := readingFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			noSave, _ := cmd.Flags().GetBool("no-save")
			var assessment entities.Assessment
			if noSave {
				assessment = a.UseCase.Assess(reading)
			} else if assessment, err = a.UseCase.Evaluate(usecases.NewSession(0), reading); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.UseCase.FormatAssessment(assessment))
			return nil
		},
	}
	addReadingFlags(cmd)
	cmd.Flags().Bool("no-save", false, "Do not append the result to the dataset")
	return cmd
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask the trained classifier about a water sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			reading, err := readingFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			label, err := a.UseCase.Predict(usecases.NewSession(0), reading)
			if errors.Is(err, classifier.ErrModelUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), "Classifier unavailable: train a model first with `wq train`.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prediction: %s\n", label)
			return nil
		},
	}
	addReadingFlags(cmd)
	return cmd
}

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the random-forest classifier and save the model artifact",
		Long: `Train fits the classifier on --csv when given (every column except the
label is a feature), otherwise on the recorded dataset when it is large enough,
otherwise on synthetic readings labelled by the threshold rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.TrainingOptions()
			if cmd.Flags().Changed("csv") {
				opts.TrainingCSV, _ = cmd.Flags().GetString("csv")
			}
			if cmd.Flags().Changed("label") {
				opts.LabelColumn, _ = cmd.Flags().GetString("label")
			}
			if cmd.Flags().Changed("label-kind") {
				kind, _ := cmd.Flags().GetString("label-kind")
				opts.LabelKind = classifier.LabelKind(kind)
			}
			if cmd.Flags().Changed("trees") {
				opts.Forest.Trees, _ = cmd.Flags().GetInt("trees")
			}
			if cmd.Flags().Changed("seed") {
				opts.Forest.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("out") {
				opts.ModelPath, _ = cmd.Flags().GetString("out")
			}

			f, err := a.UseCase.RetrainModel(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Model trained with accuracy: %.2f\n", f.Accuracy)
			fmt.Fprintf(cmd.OutOrStdout(), "💾 Model saved at %s (classes: %s)\n", opts.ModelPath, strings.Join(f.Classes, ", "))
			return nil
		},
	}
	cmd.Flags().String("csv", "", "Labelled training CSV")
	cmd.Flags().String("label", classifier.DefaultLabelColumn, "Label column of the training CSV")
	cmd.Flags().String("label-kind", "band", "Label for dataset/synthetic training: band or element")
	cmd.Flags().Int("trees", 200, "Number of trees")
	cmd.Flags().Int64("seed", 42, "Random seed for split and training")
	cmd.Flags().String("out", classifier.DefaultModelPath, "Model artifact path")
	return cmd
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "View, export and edit the recorded dataset",
	}
	cmd.AddCommand(datasetListCmd())
	cmd.AddCommand(datasetExportCmd())
	cmd.AddCommand(datasetRemoveCmd())
	return cmd
}

func datasetListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			records, err := a.UseCase.Dataset()
			if errors.Is(err, repository.ErrDatasetNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No dataset found yet. Run an analysis first.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usecases.FormatDataset(records, limit))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Show at most this many of the latest records (0 for all)")
	return cmd
}

func datasetExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset as CSV, optionally selecting columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			columns, _ := cmd.Flags().GetStringSlice("columns")
			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			return a.UseCase.ExportCSV(out, columns)
		},
	}
	cmd.Flags().StringSlice("columns", nil, "Columns to include, e.g. Location,pH,\"Risk Score\"")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func datasetRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <location>...",
		Short: "Remove every record for the given locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.UseCase.RemoveLocations(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records ✅\n", n)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <url>",
		Short: "Evaluate and record every reading of an HTML lab report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			assessments, err := a.UseCase.ImportLabReport(usecases.NewSession(0), args[0])
			if err != nil {
				return err
			}
			for _, as := range assessments {
				fmt.Fprintln(cmd.OutOrStdout(), a.UseCase.FormatAssessment(as))
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d readings\n", len(assessments))
			return nil
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Show the built-in rule tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range rules.PresetNames() {
				t, err := rules.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", name)
				for _, r := range t.Ranges {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-13s %s  +%d\n", r.Parameter.Label(), describeRange(r), r.Penalty)
				}
			}
			return nil
		},
	}
}

func describeRange(r rules.SafeRange) string {
	switch {
	case r.Low != nil && r.High != nil:
		return fmt.Sprintf("%g-%g", *r.Low, *r.High)
	case r.Low != nil:
		return fmt.Sprintf(">= %g", *r.Low)
	default:
		return fmt.Sprintf("<= %g", *r.High)
	}
}
