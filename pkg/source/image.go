package source

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "github.com/deepteams/webp"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
)

// ToBGR converts any image into a 3 channel BGR frame.
// Alpha is dropped.
func ToBGR(img image.Image) frame.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := frame.New(w, h, frame.BGR)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			o := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[o : o+w*4]
			dst := out.Data[y*w*3 : (y+1)*w*3]
			for x, i := 0, 0; x < w; x, i = x+1, i+4 {
				dst[3*x], dst[3*x+1], dst[3*x+2] = row[i+2], row[i+1], row[i]
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			o := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[o : o+w*4]
			dst := out.Data[y*w*3 : (y+1)*w*3]
			for x, i := 0, 0; x < w; x, i = x+1, i+4 {
				dst[3*x], dst[3*x+1], dst[3*x+2] = row[i+2], row[i+1], row[i]
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			o := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[o : o+w]
			dst := out.Data[y*w*3 : (y+1)*w*3]
			for x, v := range row {
				dst[3*x], dst[3*x+1], dst[3*x+2] = v, v, v
			}
		}
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bb, _ := img.At(x, y).RGBA()
				out.Data[i], out.Data[i+1], out.Data[i+2] = byte(bb>>8), byte(g>>8), byte(r>>8)
				i += 3
			}
		}
	}
	return out
}

func decodeFile(path string) (frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return frame.Frame{}, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return frame.Frame{}, err
	}
	return ToBGR(img), nil
}

// Image is a single still picture.
type Image struct {
	f    frame.Frame
	done bool
}

func NewImage(path string) (*Image, error) {
	f, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{f: f}, nil
}

func (i *Image) NextFrame() (frame.Frame, error) {
	if i.done {
		return frame.Frame{}, io.EOF
	}
	i.done = true
	return i.f, nil
}

func (i *Image) Close() error { return nil }
