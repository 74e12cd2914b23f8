// Package wire is the task and result message format.
//
// A message is a msgpack map with the keys rows, cols, pixel_format,
// sequence, send_time and data. pixel_format uses the OpenCV type codes,
// 0 for 8UC1 and 16 for 8UC3. The whole encoded message may be wrapped
// into a zstd frame, decoders detect that by the zstd magic number.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/vmihailenco/msgpack/v5"
)

// PixelFormat is an OpenCV matrix type code.
type PixelFormat int32

const (
	CV8UC1 PixelFormat = 0
	CV8UC3 PixelFormat = 16
)

func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case CV8UC1:
		return 1
	case CV8UC3:
		return 3
	}
	return 0
}

func (p PixelFormat) String() string {
	switch p {
	case CV8UC1:
		return "8UC1"
	case CV8UC3:
		return "8UC3"
	}
	return fmt.Sprintf("unknown(%d)", int32(p))
}

func FormatOf(channels int) (PixelFormat, error) {
	switch channels {
	case frame.Gray:
		return CV8UC1, nil
	case frame.BGR:
		return CV8UC3, nil
	}
	return 0, fmt.Errorf("%w: %d channels", ErrFormat, channels)
}

var (
	ErrShape  = errors.New("non-positive rows or cols")
	ErrFormat = errors.New("unknown pixel format")
	ErrLength = errors.New("data length does not match shape")
	ErrDecode = errors.New("malformed message")
	ErrEncode = errors.New("message encoding failed")
)

type Message struct {
	Rows        int32       `msgpack:"rows"`
	Cols        int32       `msgpack:"cols"`
	PixelFormat PixelFormat `msgpack:"pixel_format"`
	Sequence    uint64      `msgpack:"sequence"`
	SendTime    int32       `msgpack:"send_time"`
	Data        []byte      `msgpack:"data"`
}

// Validate checks that the data fits the declared shape.
func (m *Message) Validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShape, m.Cols, m.Rows)
	}
	bpp := m.PixelFormat.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %v", ErrFormat, m.PixelFormat)
	}
	if want := int(m.Rows) * int(m.Cols) * bpp; len(m.Data) != want {
		return fmt.Errorf("%w: %d != %d", ErrLength, len(m.Data), want)
	}
	return nil
}

// Frame returns the message pixels as a frame without copying.
func (m *Message) Frame() frame.Frame {
	return frame.Frame{Width: int(m.Cols), Height: int(m.Rows), Channels: m.PixelFormat.BytesPerPixel(), Data: m.Data}
}

func fromFrame(seq uint64, sendTime int32, f frame.Frame) (Message, error) {
	format, err := FormatOf(f.Channels)
	if err != nil {
		return Message{}, err
	}
	m := Message{
		Rows:        int32(f.Height),
		Cols:        int32(f.Width),
		PixelFormat: format,
		Sequence:    seq,
		SendTime:    sendTime,
		Data:        f.Data,
	}
	return m, m.Validate()
}

func FromTask(t frame.Task) (Message, error) { return fromFrame(t.Seq, t.SendTime, t.Frame) }

func FromResult(r frame.Result) (Message, error) { return fromFrame(r.Seq, r.SendTime, r.Edges) }

func (m *Message) Task() frame.Task {
	return frame.Task{Seq: m.Sequence, SendTime: m.SendTime, Frame: m.Frame()}
}

func (m *Message) Result() frame.Result {
	return frame.Result{Seq: m.Sequence, SendTime: m.SendTime, Edges: m.Frame()}
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(256<<20))
)

// Codec turns messages into bytes and back.
// Both the plain and the compressed form are always accepted on decode.
type Codec struct {
	Compress bool
}

func (c Codec) Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	b, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if c.Compress {
		b = encoder.EncodeAll(b, make([]byte, 0, len(b)/2))
	}
	return b, nil
}

func (c Codec) Decode(b []byte) (Message, error) {
	if bytes.HasPrefix(b, zstdMagic) {
		raw, err := decoder.DecodeAll(b, nil)
		if err != nil {
			return Message{}, fmt.Errorf("%w: zstd: %w", ErrDecode, err)
		}
		b = raw
	}
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (c Codec) EncodeTask(t frame.Task) ([]byte, error) {
	m, err := FromTask(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return c.Encode(m)
}

func (c Codec) EncodeResult(r frame.Result) ([]byte, error) {
	m, err := FromResult(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return c.Encode(m)
}

func (c Codec) DecodeTask(b []byte) (frame.Task, error) {
	m, err := c.Decode(b)
	if err != nil {
		return frame.Task{}, err
	}
	return m.Task(), nil
}

func (c Codec) DecodeResult(b []byte) (frame.Result, error) {
	m, err := c.Decode(b)
	if err != nil {
		return frame.Result{}, err
	}
	return m.Result(), nil
}
