package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate reviews per business and merge with business metadata",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, closeStore, err := initOptionalStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := initPipeline(st)
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("source")
		src, err := newSource(kind, st)
		if err != nil {
			return err
		}

		out, err := p.Aggregate(ctx, src)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"businesses":      out.Businesses,
			"reviews":         out.Reviews,
			"skipped_reviews": out.SkippedReviews,
			"matched":         out.Matched,
			"below_minimum":   out.BelowMinimum,
			"rows":            len(out.Rows),
		})
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute the review power score for the merged dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, closeStore, err := initOptionalStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := initPipeline(st)
		if err != nil {
			return err
		}
		rows, err := p.Features(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "scored %d businesses\n", len(rows))
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster and classify the featured dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, closeStore, err := initOptionalStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := initPipeline(st)
		if err != nil {
			return err
		}
		out, err := p.Cluster(ctx)
		if err != nil {
			return err
		}
		formatReport(os.Stdout, out.Report)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run aggregate, features and cluster in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, closeStore, err := initOptionalStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		p, err := initPipeline(st)
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("source")
		src, err := newSource(kind, st)
		if err != nil {
			return err
		}

		report, err := p.Run(ctx, src)
		if err != nil {
			return err
		}
		formatReport(os.Stdout, report)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().String("source", "files", "document source: files or store")
	runCmd.Flags().String("source", "files", "document source: files or store")

	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(runCmd)
}
