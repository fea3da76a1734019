package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
)

// formatReport writes a human-readable run report to out.
func formatReport(out io.Writer, r *dataset.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if r.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	}
	_, _ = fmt.Fprintf(w, "Businesses:\t%d\n", r.Rows)
	_, _ = fmt.Fprintf(w, "RPS p90:\t%.3f\n", r.Thresholds.RPS.P90)
	_, _ = fmt.Fprintf(w, "Rating p25 / p80:\t%.3f / %.3f\n", r.Thresholds.Rating.P25, r.Thresholds.Rating.P80)
	_, _ = fmt.Fprintf(w, "Reviews p25 / mean / p95:\t%.1f / %.1f / %.1f\n",
		r.Thresholds.ReviewCount.P25, r.Thresholds.MeanReviewCount, r.Thresholds.ReviewCount.P95)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SECTOR\tCOUNT")
	_, _ = fmt.Fprintln(w, "------\t-----")
	for _, s := range model.Sectors {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", s.Label(), r.SectorCounts[s])
	}
	_ = w.Flush()

	if r.Clusters == nil {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLUSTER\tNAME\tSIZE\tSTARS\tREVIEWS\tMEAN_RPS")
	_, _ = fmt.Fprintln(w, "-------\t----\t----\t-----\t-------\t--------")
	for _, p := range r.Clusters.Profiles {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.1f\t%.2f\n",
			p.Label, p.Name, p.Size, p.Stars, p.ReviewCount, p.MeanRPS)
	}
	_ = w.Flush()
}
