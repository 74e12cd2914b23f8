// Package convolution implements the grayscale and Sobel transforms.
//
// Grayscale uses BT.709 luma weights in fixed point,
// (2126R + 7152G + 722B) / 10000, which is exactly the floor of the
// real-valued formula. Sobel leaves the one pixel frame border at zero
// and writes min(|Gx|+|Gy|, 255) everywhere else.
package convolution

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChannels = errors.New("input is not a whole number of BGR pixels")
	ErrSize     = errors.New("input size does not match width*height")
	ErrEngine   = errors.New("unknown engine")
)

const (
	wR    = 2126
	wG    = 7152
	wB    = 722
	wNorm = 10000

	maxMagnitude = 255
)

// Engine is one implementation of the transforms.
// Every engine must produce the same bytes for the same input.
type Engine interface {
	// Grayscale converts packed BGR pixels into one luma byte per pixel.
	Grayscale(bgr []byte) ([]byte, error)
	// Sobel computes the edge magnitude of a width x height gray image.
	Sobel(gray []byte, width, height int) ([]byte, error)
	String() string
}

func checkBGR(bgr []byte) error {
	if len(bgr)%3 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrChannels, len(bgr))
	}
	return nil
}

func checkGray(gray []byte, width, height int) error {
	if width < 0 || height < 0 || len(gray) != width*height {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrSize, len(gray), width, height)
	}
	return nil
}

const (
	ScalarName = "scalar"
	VectorName = "vector"
	AutoName   = "auto"
)

// Select returns the engine by its name.
// Auto picks the vector engine if the CPU has a usable SIMD unit.
func Select(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScalarName:
		return Scalar{}, nil
	case VectorName:
		return Vector{}, nil
	case AutoName, "":
		if HasSIMD() {
			return Vector{}, nil
		}
		return Scalar{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEngine, name)
}

// Grayscale and Sobel with the reference engine.
func Grayscale(bgr []byte) ([]byte, error) { return Scalar{}.Grayscale(bgr) }
func Sobel(gray []byte, width, height int) ([]byte, error) {
	return Scalar{}.Sobel(gray, width, height)
}
