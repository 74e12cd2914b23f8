package convolution

import (
	"runtime"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/klauspost/cpuid"
)

// Vector runs the transforms over int32 lanes with go-highway.
// Leftover pixels that do not fill a vector go through the scalar path.
type Vector struct{}

func (Vector) String() string { return VectorName }

// HasSIMD reports whether the vector engine runs on real SIMD units here.
func HasSIMD() bool {
	return cpuid.CPU.AVX2() || runtime.GOARCH == "arm64"
}

func lanes() int { return hwy.Zero[int32]().NumLanes() }

func (Vector) Grayscale(bgr []byte) ([]byte, error) {
	if err := checkBGR(bgr); err != nil {
		return nil, err
	}
	n := len(bgr) / 3
	out := make([]byte, n)

	l := lanes()
	bs, gs, rs, acc := make([]int32, l), make([]int32, l), make([]int32, l), make([]int32, l)
	vR, vG, vB := hwy.Set[int32](wR), hwy.Set[int32](wG), hwy.Set[int32](wB)

	i := 0
	for ; i+l <= n; i += l {
		for k, j := 0, i*3; k < l; k, j = k+1, j+3 {
			bs[k], gs[k], rs[k] = int32(bgr[j]), int32(bgr[j+1]), int32(bgr[j+2])
		}
		sum := hwy.Add(hwy.Add(hwy.Mul(hwy.Load(rs), vR), hwy.Mul(hwy.Load(gs), vG)), hwy.Mul(hwy.Load(bs), vB))
		hwy.Store(sum, acc)
		for k := 0; k < l; k++ {
			v := acc[k] / wNorm
			if v > 255 {
				v = 255
			}
			out[i+k] = byte(v)
		}
	}
	for j := i * 3; i < n; i, j = i+1, j+3 {
		out[i] = luma(bgr[j], bgr[j+1], bgr[j+2])
	}
	return out, nil
}

func (Vector) Sobel(gray []byte, width, height int) ([]byte, error) {
	if err := checkGray(gray, width, height); err != nil {
		return nil, err
	}
	out := make([]byte, len(gray))
	if width < 3 || height < 3 {
		return out, nil
	}

	wide := make([]int32, len(gray))
	for i, v := range gray {
		wide[i] = int32(v)
	}

	l := lanes()
	res := make([]int32, l)
	two, limit := hwy.Set[int32](2), hwy.Set[int32](maxMagnitude)

	for y := 1; y < height-1; y++ {
		p0, p1, p2 := wide[(y-1)*width:y*width], wide[y*width:(y+1)*width], wide[(y+1)*width:(y+2)*width]
		dst := out[y*width : (y+1)*width]

		x := 1
		for ; x+l <= width-1; x += l {
			a, b, c := hwy.Load(p0[x-1:]), hwy.Load(p0[x:]), hwy.Load(p0[x+1:])
			d, f := hwy.Load(p1[x-1:]), hwy.Load(p1[x+1:])
			g, h, i := hwy.Load(p2[x-1:]), hwy.Load(p2[x:]), hwy.Load(p2[x+1:])

			gx := hwy.Add(hwy.Add(hwy.Sub(c, a), hwy.Mul(two, hwy.Sub(f, d))), hwy.Sub(i, g))
			gy := hwy.Sub(hwy.Add(hwy.Add(a, hwy.Mul(two, b)), c), hwy.Add(hwy.Add(g, hwy.Mul(two, h)), i))
			hwy.Store(hwy.Min(hwy.Add(hwy.Abs(gx), hwy.Abs(gy)), limit), res)
			for k := 0; k < l; k++ {
				dst[x+k] = byte(res[k])
			}
		}
		r0, r1, r2 := gray[(y-1)*width:y*width], gray[y*width:(y+1)*width], gray[(y+1)*width:(y+2)*width]
		for ; x < width-1; x++ {
			dst[x] = sobelAt(r0, r1, r2, x)
		}
	}
	return out, nil
}
