package calibration

import (
	"fmt"
	"time"

	"github.com/overlens/calibration-worker/internal/ocr"
)

// Metrics are aggregate detection statistics for one measurement. Derived,
// never mutated after creation.
type Metrics struct {
	RegionCount         int            `json:"regionCount"`
	AverageConfidence   float64        `json:"averageConfidence"`
	ConfidenceHistogram map[string]int `json:"confidenceHistogram"`
}

// ComputeMetrics aggregates a detection result. AverageConfidence is 0 for
// an empty region list. The histogram uses ten equal-width buckets over
// [0.0, 1.0); a confidence of exactly 1.0 lands in the last bucket.
func ComputeMetrics(regions []ocr.TextRegion) Metrics {
	m := Metrics{
		RegionCount:         len(regions),
		ConfidenceHistogram: make(map[string]int),
	}

	if len(regions) == 0 {
		return m
	}

	var sum float64
	for _, r := range regions {
		sum += r.Confidence
		m.ConfidenceHistogram[bucketLabel(r.Confidence)]++
	}
	m.AverageConfidence = sum / float64(len(regions))

	return m
}

// bucketLabel places a confidence into its histogram bucket.
func bucketLabel(confidence float64) string {
	bucket := int(confidence * 10)
	if bucket < 0 {
		bucket = 0
	}
	if bucket > 9 {
		bucket = 9
	}
	return fmt.Sprintf("%.1f-%.1f", float64(bucket)/10, float64(bucket+1)/10)
}

func timestamped(format string, args ...interface{}) string {
	return fmt.Sprintf("%s %s", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
