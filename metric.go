package graphseg

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
)

// Metric selects the dissimilarity used for edge weights.
type Metric int

const (
	// MetricEuclidean is the L2 distance over all channels.
	MetricEuclidean Metric = iota
	// MetricManhattan is the sum of absolute channel differences.
	MetricManhattan
	// MetricLab converts RGB samples in [0,255] to CIE L*a*b* and uses the
	// CIE76 distance. Requires exactly three channels.
	MetricLab
)

func (m Metric) String() string {
	switch m {
	case MetricManhattan:
		return "manhattan"
	case MetricLab:
		return "lab"
	default:
		return "euclidean"
	}
}

// ParseMetric maps a metric name back to its value.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "euclidean", "l2":
		return MetricEuclidean, nil
	case "manhattan", "l1":
		return MetricManhattan, nil
	case "lab", "cie76":
		return MetricLab, nil
	}
	return 0, fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, s)
}

func (m Metric) distance() func(a, b []float64) float64 {
	if m == MetricManhattan {
		return manhattan
	}
	// Lab samples are compared with L2 once converted.
	return euclidean
}

func euclidean(a, b []float64) float64 { return floats.Distance(a, b, 2) }

func manhattan(a, b []float64) float64 { return floats.Distance(a, b, 1) }

// labInto converts a 3-channel RGB buffer into L*a*b* with L in [0,100].
func labInto(dst, src *SampleBuffer) {
	dst.reshape(src.w, src.h, 3)
	for i := 0; i < len(src.pix); i += 3 {
		c := colorful.Color{
			R: src.pix[i] / 255.0,
			G: src.pix[i+1] / 255.0,
			B: src.pix[i+2] / 255.0,
		}
		l, a, b := c.Clamped().Lab()
		dst.pix[i] = l * 100
		dst.pix[i+1] = a * 100
		dst.pix[i+2] = b * 100
	}
}
