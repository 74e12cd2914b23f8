package source

import (
	"io"

	"github.com/sobelfarm/sobelfarm/pkg/frame"
)

// Pattern draws a moving checkerboard with a diagonal gradient.
// Useful to run the farm without any video at hand.
type Pattern struct {
	w, h   int
	frames int
	n      int
}

// NewPattern makes a pattern source, frames <= 0 never ends.
func NewPattern(w, h, frames int) *Pattern { return &Pattern{w: w, h: h, frames: frames} }

func (p *Pattern) NextFrame() (frame.Frame, error) {
	if p.frames > 0 && p.n >= p.frames {
		return frame.Frame{}, io.EOF
	}
	f := frame.New(p.w, p.h, frame.BGR)
	cell := max(min(p.w, p.h)/4, 2)
	shift := p.n * 2
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			i := (y*p.w + x) * 3
			if ((x+shift)/cell+y/cell)%2 == 0 {
				f.Data[i], f.Data[i+1], f.Data[i+2] = 230, 230, 230
				continue
			}
			f.Data[i] = byte((x + shift) * 255 / max(p.w, 1))
			f.Data[i+1] = byte(y * 255 / max(p.h, 1))
			f.Data[i+2] = byte((x + y) & 0xff)
		}
	}
	p.n++
	return f, nil
}

func (p *Pattern) Close() error { return nil }
