// Package frame holds the pixel containers passed between pipeline stages.
package frame

import (
	"errors"
	"fmt"
)

const (
	Gray = 1
	BGR  = 3
)

var (
	ErrLength   = errors.New("pixel buffer length does not match frame shape")
	ErrShape    = errors.New("bad frame shape")
	ErrChannels = errors.New("unsupported channel count")
)

// Frame is a row-major pixel buffer.
// Multichannel pixels are stored interleaved, BGR order for 3 channels.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Data     []byte
}

// New allocates a zeroed frame.
func New(width, height, channels int) Frame {
	return Frame{Width: width, Height: height, Channels: channels, Data: make([]byte, width*height*channels)}
}

// Wrap takes ownership of data as the pixels of a frame with the given shape.
func Wrap(width, height, channels int, data []byte) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("%w: %dx%d", ErrShape, width, height)
	}
	if channels != Gray && channels != BGR {
		return Frame{}, fmt.Errorf("%w: %d", ErrChannels, channels)
	}
	if len(data) != width*height*channels {
		return Frame{}, fmt.Errorf("%w: %d != %dx%dx%d", ErrLength, len(data), width, height, channels)
	}
	return Frame{Width: width, Height: height, Channels: channels, Data: data}, nil
}

func (f Frame) Stride() int { return f.Width * f.Channels }

func (f Frame) Empty() bool { return len(f.Data) == 0 }

// View returns a bounds-checked 2D view over the frame pixels.
func (f Frame) View() View {
	return View{data: f.Data, rows: f.Height, cols: f.Width, ch: f.Channels}
}

func (f Frame) String() string {
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Height, f.Channels)
}

// View indexes a pixel buffer by (row, col, channel).
// Any access outside the shape panics.
type View struct {
	data           []byte
	rows, cols, ch int
}

func (v View) Rows() int     { return v.rows }
func (v View) Cols() int     { return v.cols }
func (v View) Channels() int { return v.ch }

func (v View) At(row, col, channel int) byte { return v.data[v.index(row, col, channel)] }

func (v View) Set(row, col, channel int, value byte) { v.data[v.index(row, col, channel)] = value }

// Row returns the pixels of one row, all channels.
func (v View) Row(row int) []byte {
	if row < 0 || row >= v.rows {
		panic(fmt.Sprintf("frame: row %d out of range [0:%d]", row, v.rows))
	}
	stride := v.cols * v.ch
	return v.data[row*stride : (row+1)*stride : (row+1)*stride]
}

func (v View) index(row, col, channel int) int {
	if row < 0 || row >= v.rows || col < 0 || col >= v.cols || channel < 0 || channel >= v.ch {
		panic(fmt.Sprintf("frame: index [%d,%d,%d] out of range [%d,%d,%d]",
			row, col, channel, v.rows, v.cols, v.ch))
	}
	return (row*v.cols+col)*v.ch + channel
}
