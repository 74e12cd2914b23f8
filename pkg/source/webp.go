package source

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/deepteams/webp"
	"github.com/deepteams/webp/animation"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
)

// WebP plays an animated WebP file frame by frame.
// Still WebP files give one frame.
type WebP struct {
	dec   *animation.AnimDecoder
	still *Image
}

func NewWebP(path string) (*WebP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	feat, err := webp.GetFeatures(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if !feat.HasAnimation {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &WebP{still: &Image{f: ToBGR(img)}}, nil
	}
	anim, err := animation.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	if err = anim.DecodeFramesParallel(); err != nil {
		return nil, err
	}
	dec, err := animation.NewAnimDecoder(anim)
	if err != nil {
		return nil, err
	}
	return &WebP{dec: dec}, nil
}

func (w *WebP) NextFrame() (frame.Frame, error) {
	if w.still != nil {
		return w.still.NextFrame()
	}
	if !w.dec.HasNext() {
		return frame.Frame{}, io.EOF
	}
	img, _, err := w.dec.NextFrame()
	if err != nil {
		if errors.Is(err, animation.ErrNoFrames) {
			return frame.Frame{}, io.EOF
		}
		return frame.Frame{}, err
	}
	return ToBGR(img), nil
}

func (w *WebP) Close() error { return nil }
