package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/reviewpower/internal/monitoring"
)

var runsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Summarize recent stage runs and report alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback")
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackHours
		}
		notify, _ := cmd.Flags().GetBool("notify")
		asJSON, _ := cmd.Flags().GetBool("json")

		staleAfter := time.Duration(cfg.Monitoring.StaleAfterHours) * time.Hour
		snap, err := monitoring.NewCollector(st, staleAfter).Collect(ctx, lookback)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if notify {
			alerter.SendAlerts(ctx, alerts)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"metrics": snap, "alerts": alerts})
		}
		formatHealth(os.Stdout, snap, alerts)
		return nil
	},
}

func init() {
	runsHealthCmd.Flags().Int("lookback", 0, "lookback window in hours (default from config)")
	runsHealthCmd.Flags().Bool("notify", false, "send alerts to the configured webhook")
	runsHealthCmd.Flags().Bool("json", false, "print metrics and alerts as JSON")
	runsCmd.AddCommand(runsHealthCmd)
}

// formatHealth writes per-stage run stats followed by any alerts.
func formatHealth(out io.Writer, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	if len(snap.Stages) == 0 {
		_, _ = fmt.Fprintf(out, "No runs in the last %dh.\n", snap.LookbackHours)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tRUNS\tCOMPLETE\tFAILED\tRUNNING\tFAIL%\tSKIP%\tAVG")
	_, _ = fmt.Fprintln(w, "-----\t----\t--------\t------\t-------\t-----\t-----\t---")
	for _, s := range snap.Stages {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%.1f\t%s\n",
			s.Stage, s.Total, s.Complete, s.Failed, s.Running,
			s.FailRate*100, s.SkipRate*100, s.AvgDuration.Round(time.Millisecond))
	}
	_ = w.Flush()

	if len(alerts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", a.Severity, a.Message)
	}
}
