package graphseg

import (
	"image"

	"github.com/sirupsen/logrus"
)

type Options struct {
	// Gaussian blur applied before edge weights are computed.
	// Ideal start: 0.5-1.0. 0 disables smoothing.
	Sigma float64
	// Scale of the adaptive threshold. Larger values favour larger segments.
	// Ideal start: 300 for 320×240 RGB; grows with image size.
	K float64
	// Smallest allowed segment, in pixels. Smaller fragments are merged
	// into a neighbour after the main pass. 0 disables the pass.
	MinSize int
	// Pixel neighbourhood.
	Conn Connectivity
	// Edge weight metric.
	Metric Metric
}

func DefaultOptions() Options {
	return Options{
		Sigma:   0.8,
		K:       300,
		MinSize: 20,
		Conn:    Conn4,
		Metric:  MetricEuclidean,
	}
}

// OptionsFromSize returns DefaultOptions with K and MinSize scaled for an
// image of the given size.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := size.X * size.Y
	if pixels <= 512*512 {
		return opt
	} else if pixels > 1920*1080 {
		opt.K = 1000
		opt.MinSize = 200
	} else {
		opt.K = 500
		opt.MinSize = 50
	}
	return opt
}

// Segmenter runs the whole pipeline on images. It keeps one Graph and
// renews it on every call, so segmenting a sequence of same-sized images
// reuses the sample storage. A Segmenter is not safe for concurrent use.
type Segmenter struct {
	opts  Options
	log   logrus.FieldLogger
	graph *Graph
}

// NewSegmenter returns a Segmenter using opts. A nil logger discards output.
func NewSegmenter(opts Options, logger logrus.FieldLogger) *Segmenter {
	if logger == nil {
		logger = discardLogger()
	}
	return &Segmenter{opts: opts, log: logger}
}

// Options returns the segmenter's options.
func (s *Segmenter) Options() Options { return s.opts }

// Graph returns the graph of the last Do call, or nil.
func (s *Segmenter) Graph() *Graph { return s.graph }

// Do segments img and renders the result with mode.
func (s *Segmenter) Do(img image.Image, mode RenderMode) (*image.NRGBA, *Result, error) {
	if s.graph == nil {
		g, err := NewGraphFromImage(img,
			WithSigma(s.opts.Sigma),
			WithConnectivity(s.opts.Conn),
			WithMetric(s.opts.Metric),
			WithLogger(s.log),
		)
		if err != nil {
			return nil, nil, err
		}
		s.graph = g
	} else if err := s.graph.RenewImage(img); err != nil {
		return nil, nil, err
	}

	res, err := s.graph.Segment(s.opts.K, s.opts.MinSize)
	if err != nil {
		return nil, nil, err
	}
	buf, err := res.Render(mode)
	if err != nil {
		return nil, nil, err
	}
	out, err := buf.Image()
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{
		"segments": res.Len(),
		"mode":     mode.String(),
	}).Debug("image segmented")
	return out, res, nil
}
