// Package present shows finished edge maps.
package present

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
)

// Presenter consumes frames in display order.
type Presenter interface {
	// Show takes the frame without waiting for it to be displayed.
	Show(f frame.Frame)
	// PollExitKey waits up to timeout for a key press.
	PollExitKey(timeout time.Duration) (Key, bool)
	io.Closer
}

const (
	KindPng     = "png"
	KindWebp    = "webp"
	KindDiscard = "discard"
)

var ErrKind = errors.New("unknown presenter")

// New makes the presenter of the configured kind.
// Exit keys come from process signals.
func New(conf config.Presenter, log *logger.Logger) (Presenter, error) {
	log = log.Component("present")
	keys := SignalKeys()
	switch strings.ToLower(conf.Kind) {
	case KindPng:
		return NewPngDir(conf.Out, conf.Label, keys, log)
	case KindWebp:
		return NewWebpFile(conf.Out, conf, keys, log)
	case KindDiscard, "":
		return NewDiscard(keys), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKind, conf.Kind)
}

// toImage wraps a gray frame into an image without copying,
// BGR frames are converted.
func toImage(f frame.Frame) image.Image {
	if f.Channels == frame.Gray {
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: image.Rect(0, 0, f.Width, f.Height)}
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Data); i, j = i+3, j+4 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = f.Data[i+2], f.Data[i+1], f.Data[i], 0xff
	}
	return img
}

// Discard drops all frames, it only counts them.
type Discard struct {
	*Keys
	n int
}

func NewDiscard(keys *Keys) *Discard { return &Discard{Keys: keys} }

func (d *Discard) Show(frame.Frame) { d.n++ }

func (d *Discard) Shown() int { return d.n }

func (d *Discard) Close() error { return nil }
