package threshold

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/lanemask/logging"
	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/utils"
)

// Pipeline runs the configured detectors on one image at a time. It holds no per-image state
// and may be shared between goroutines.
type Pipeline struct {
	cfg    Config
	orient Orientation
	logger logging.Logger
}

// NewPipeline validates cfg and returns a pipeline using it.
func NewPipeline(cfg Config, logger logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orient, err := ParseOrientation(cfg.AbsSobel.Orientation)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, orient: orient, logger: logger}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run converts img to gray once, computes one Sobel field per distinct kernel size and then runs
// the four detectors concurrently before combining them. img must be a 3 channel color image.
func (p *Pipeline) Run(ctx context.Context, img *rimage.Image) (*Result, error) {
	if img.Channels() != 3 {
		return nil, NewInputShapeError("combined_thresh", 3, img.Channels())
	}
	start := time.Now()
	gray := img.Gray()

	fields, err := p.sobelFields(ctx, gray)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	_, err = utils.RunInParallel(ctx, []utils.SimpleFunc{
		func(ctx context.Context) error {
			var degenerate bool
			res.Abs, degenerate = absSobelMask(fields[p.cfg.AbsSobel.KernelSize], p.orient, p.cfg.AbsSobel.Range())
			if degenerate {
				p.logger.CDebugw(ctx, "no gradient, abs sobel mask left empty", "orientation", p.orient.String())
			}
			return nil
		},
		func(ctx context.Context) error {
			var degenerate bool
			res.Mag, degenerate = magMask(fields[p.cfg.Magnitude.KernelSize], p.cfg.Magnitude.Range())
			if degenerate {
				p.logger.CDebugw(ctx, "no gradient, magnitude mask left empty")
			}
			return nil
		},
		func(ctx context.Context) error {
			res.Dir = dirMask(fields[p.cfg.Direction.KernelSize], p.cfg.Direction.Range())
			return nil
		},
		func(ctx context.Context) error {
			var err error
			res.Color, err = HLSThresh(img, p.cfg.Color.Range())
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Combined, err = Combine(res.Abs, res.Mag, res.Dir, res.Color)
	if err != nil {
		return nil, err
	}
	p.logger.CDebugw(ctx, "thresholded image",
		"width", img.Width(),
		"height", img.Height(),
		"elapsed", time.Since(start).String(),
		"abs", res.Abs.Count(),
		"mag", res.Mag.Count(),
		"dir", res.Dir.Count(),
		"color", res.Color.Count(),
		"combined", res.Combined.Count(),
	)
	return res, nil
}

// sobelFields computes the derivative fields for every kernel size the config uses.
func (p *Pipeline) sobelFields(ctx context.Context, gray *rimage.Image) (map[int]*rimage.VectorField2D, error) {
	sizes := map[int]bool{
		p.cfg.AbsSobel.KernelSize:  true,
		p.cfg.Magnitude.KernelSize: true,
		p.cfg.Direction.KernelSize: true,
	}
	ordered := make([]int, 0, len(sizes))
	for ksize := range sizes {
		ordered = append(ordered, ksize)
	}
	sort.Ints(ordered)

	var mu sync.Mutex
	fields := make(map[int]*rimage.VectorField2D, len(ordered))
	funcs := make([]utils.SimpleFunc, 0, len(ordered))
	for _, ksize := range ordered {
		funcs = append(funcs, func(ctx context.Context) error {
			vf, err := rimage.NewSobelField(gray, ksize)
			if err != nil {
				return errors.Wrapf(err, "sobel field with kernel %d", ksize)
			}
			mu.Lock()
			fields[ksize] = vf
			mu.Unlock()
			return nil
		})
	}
	if _, err := utils.RunInParallel(ctx, funcs); err != nil {
		return nil, err
	}
	return fields, nil
}
