package calibration

import (
	"fmt"
	"sort"
	"strings"
)

// FormatReport renders a human-readable diagnostic summary of one run:
// terminal status, per-stage counts, confidence histogram, failure reason,
// and remediation suggestions.
func FormatReport(result *CalibrationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Calibration run %s for %q: %s (%.2fs)\n",
		result.RunID, result.ApplicationID, result.Status, result.Elapsed.Seconds())

	if result.BaselineMetrics != nil {
		fmt.Fprintf(&b, "Baseline:  %d regions, avg confidence %.3f\n",
			result.BaselineMetrics.RegionCount, result.BaselineMetrics.AverageConfidence)
	}
	if result.CandidateMetrics != nil {
		fmt.Fprintf(&b, "Candidate: %d regions, avg confidence %.3f\n",
			result.CandidateMetrics.RegionCount, result.CandidateMetrics.AverageConfidence)
		writeHistogram(&b, result.CandidateMetrics.ConfidenceHistogram)
	}

	b.WriteString("Stages:\n")
	for _, stage := range result.Stages {
		verdict := "failed"
		if stage.Passed {
			verdict = "ok"
		}
		fmt.Fprintf(&b, "  %-26s %-7s %s\n", stage.Stage, verdict, stage.Detail)
	}

	if len(result.RecommendedActions) > 0 {
		b.WriteString("Recommended actions:\n")
		for _, action := range result.RecommendedActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
	}

	if len(result.DiagnosticLog) > 0 {
		b.WriteString("Log:\n")
		for _, line := range result.DiagnosticLog {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	return b.String()
}

func writeHistogram(b *strings.Builder, histogram map[string]int) {
	if len(histogram) == 0 {
		return
	}

	buckets := make([]string, 0, len(histogram))
	for bucket := range histogram {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	b.WriteString("Histogram:")
	for _, bucket := range buckets {
		fmt.Fprintf(b, " %s=%d", bucket, histogram[bucket])
	}
	b.WriteByte('\n')
}
