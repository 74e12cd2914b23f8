// Package tile runs the edge detector over a frame in horizontal stripes.
//
// A frame of height H cut into n stripes gives stripes of H/n rows, the
// last one taking the rest. Each stripe borrows one row of context from
// its neighbours so the 3x3 kernel sees the same pixels it would see on
// the whole frame. After the kernel runs, every stripe loses its outer
// ring (the halo rows or the frame border) and the stripes are glued
// back, giving a (W-2)x(H-2) edge map.
package tile

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sobelfarm/sobelfarm/pkg/convolution"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"golang.org/x/sync/errgroup"
)

const radius = 1

var (
	ErrTooSmall = errors.New("frame is smaller than the kernel")
	ErrStitch   = errors.New("stripes do not fit together")
)

// CheckSize fails with ErrTooSmall for frames without interior pixels.
func CheckSize(f frame.Frame) error {
	if f.Width < 2*radius+1 || f.Height < 2*radius+1 {
		return fmt.Errorf("%w: %vx%v", ErrTooSmall, f.Width, f.Height)
	}
	return nil
}

// Split cuts the frame into n stripes, n is clamped to [1, height].
// An empty frame has no stripes.
func Split(f *frame.Frame, n int) []frame.Stripe {
	if f.Height < 1 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > f.Height {
		n = f.Height
	}
	h := f.Height / n
	stripes := make([]frame.Stripe, n)
	for i := range stripes {
		start, end := i*h, (i+1)*h
		if i == n-1 {
			end = f.Height
		}
		top, bottom := radius, radius
		if i == 0 {
			top = 0
		}
		if i == n-1 {
			bottom = 0
		}
		stripes[i] = frame.NewStripe(f, i, start, end, top, bottom)
	}
	return stripes
}

// Process returns the edge map of the stripe rows, halos included.
func Process(engine convolution.Engine, s frame.Stripe) (frame.Frame, error) {
	return edges(engine, s.Frame())
}

func edges(engine convolution.Engine, f frame.Frame) (frame.Frame, error) {
	gray := f.Data
	switch f.Channels {
	case frame.Gray:
	case frame.BGR:
		var err error
		if gray, err = engine.Grayscale(f.Data); err != nil {
			return frame.Frame{}, err
		}
	default:
		return frame.Frame{}, fmt.Errorf("%w: %d", frame.ErrChannels, f.Channels)
	}
	out, err := engine.Sobel(gray, f.Width, f.Height)
	if err != nil {
		return frame.Frame{}, err
	}
	return frame.Frame{Width: f.Width, Height: f.Height, Channels: frame.Gray, Data: out}, nil
}

// Trim drops one row at the top and bottom and one column at each side.
// The result does not share memory with the input.
func Trim(f frame.Frame) frame.Frame {
	w, h := f.Width-2*radius, f.Height-2*radius
	if w <= 0 || h <= 0 {
		return frame.Frame{Width: max(w, 0), Height: 0, Channels: f.Channels}
	}
	out := frame.New(w, h, f.Channels)
	src, dst := f.View(), out.View()
	for y := 0; y < h; y++ {
		row := src.Row(y + radius)
		copy(dst.Row(y), row[radius*f.Channels:(radius+w)*f.Channels])
	}
	return out
}

// Stitch stacks the parts vertically in the given order.
func Stitch(parts []frame.Frame) (frame.Frame, error) {
	if len(parts) == 0 {
		return frame.Frame{}, fmt.Errorf("%w: nothing to stitch", ErrStitch)
	}
	w, ch, h := parts[0].Width, parts[0].Channels, 0
	for i, p := range parts {
		if p.Width != w || p.Channels != ch {
			return frame.Frame{}, fmt.Errorf("%w: part %d is %v, expected width %d", ErrStitch, i, p, w)
		}
		h += p.Height
	}
	data := make([]byte, 0, w*h*ch)
	for _, p := range parts {
		data = append(data, p.Data...)
	}
	return frame.Frame{Width: w, Height: h, Channels: ch, Data: data}, nil
}

// EdgeMap is the whole-frame edge map with its zero border.
func EdgeMap(engine convolution.Engine, f frame.Frame) (frame.Frame, error) {
	return edges(engine, f)
}

// Processor runs split, process, trim and stitch with a bounded number of
// stripes in flight.
type Processor struct {
	engine  convolution.Engine
	stripes int
	workers int
}

// NewProcessor makes a processor, zero stripes or workers
// means one per CPU.
func NewProcessor(engine convolution.Engine, stripes, workers int) *Processor {
	if stripes <= 0 {
		stripes = runtime.NumCPU()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if engine == nil {
		engine = convolution.Scalar{}
	}
	return &Processor{engine: engine, stripes: stripes, workers: workers}
}

func (p *Processor) Engine() convolution.Engine { return p.engine }

// Process returns the (W-2)x(H-2) edge map of the frame.
func (p *Processor) Process(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	if err := CheckSize(f); err != nil {
		return frame.Frame{}, err
	}
	if len(f.Data) != f.Width*f.Height*f.Channels {
		return frame.Frame{}, fmt.Errorf("%w: %v with %d bytes", frame.ErrLength, f, len(f.Data))
	}

	stripes := Split(&f, p.stripes)
	parts := make([]frame.Frame, len(stripes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, s := range stripes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := Process(p.engine, s)
			if err != nil {
				return fmt.Errorf("stripe %d: %w", s.Index, err)
			}
			parts[s.Index] = Trim(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return frame.Frame{}, err
	}
	return Stitch(parts)
}
