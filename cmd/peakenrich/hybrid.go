package main

import (
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/loader"
	"github.com/inodb/peakenrich/internal/output"
)

func newHybridCmd(logger func() *zap.Logger) *cobra.Command {
	var (
		outputFile string
		alpha      float64
	)

	cmd := &cobra.Command{
		Use:   "hybrid <results-x> <results-y>",
		Short: "Combine two result tables into a hybrid table",
		Long: `Combine two enrichment result tables on Geneset.ID. The hybrid p-value
is twice the smaller of the two input p-values, and FDR is recomputed over
the common gene sets.`,
		Example: `  peakenrich hybrid exp_presence_results.tsv exp_fisher_results.tsv
  peakenrich hybrid -o hybrid.tsv a.tsv.gz b.tsv.gz`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHybrid(cmd, args[0], args[1], outputFile, alpha, logger())
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "FDR cutoff for the summary")
	return cmd
}

func runHybrid(cmd *cobra.Command, xPath, yPath, outputFile string, alpha float64, logger *zap.Logger) error {
	defer logger.Sync() //nolint:errcheck

	x, err := loader.LoadResults(xPath)
	if err != nil {
		return err
	}
	y, err := loader.LoadResults(yPath)
	if err != nil {
		return err
	}

	c := hybrid.NewCombiner()
	c.SetLogger(logger)
	res, err := c.Combine(
		hybrid.FromTable(x).WithLabel(xPath),
		hybrid.FromTable(y).WithLabel(yPath),
	)
	if err != nil {
		return err
	}

	output.WriteHybridSummary(cmd.ErrOrStderr(), res, alpha)
	if outputFile != "" {
		return output.WriteFile(outputFile, res.Frame)
	}
	return writeTable(cmd.OutOrStdout(), res.Frame)
}

func writeTable(w io.Writer, df dataframe.DataFrame) error {
	tw := output.NewTabWriter(w)
	if err := tw.WriteFrame(df); err != nil {
		return err
	}
	return tw.Flush()
}
