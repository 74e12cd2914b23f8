package convolution

// Scalar is the plain loop engine.
type Scalar struct{}

func (Scalar) String() string { return ScalarName }

func (Scalar) Grayscale(bgr []byte) ([]byte, error) {
	if err := checkBGR(bgr); err != nil {
		return nil, err
	}
	out := make([]byte, len(bgr)/3)
	for i, j := 0, 0; i < len(out); i, j = i+1, j+3 {
		out[i] = luma(bgr[j], bgr[j+1], bgr[j+2])
	}
	return out, nil
}

func luma(b, g, r byte) byte {
	v := (wR*int32(r) + wG*int32(g) + wB*int32(b)) / wNorm
	if v > 255 {
		v = 255
	}
	return byte(v)
}

func (Scalar) Sobel(gray []byte, width, height int) ([]byte, error) {
	if err := checkGray(gray, width, height); err != nil {
		return nil, err
	}
	out := make([]byte, len(gray))
	if width < 3 || height < 3 {
		return out, nil
	}
	for y := 1; y < height-1; y++ {
		r0, r1, r2 := gray[(y-1)*width:y*width], gray[y*width:(y+1)*width], gray[(y+1)*width:(y+2)*width]
		dst := out[y*width : (y+1)*width]
		for x := 1; x < width-1; x++ {
			dst[x] = sobelAt(r0, r1, r2, x)
		}
	}
	return out, nil
}

// sobelAt applies both kernels at column x of the middle row r1.
func sobelAt(r0, r1, r2 []byte, x int) byte {
	a, b, c := int32(r0[x-1]), int32(r0[x]), int32(r0[x+1])
	d, f := int32(r1[x-1]), int32(r1[x+1])
	g, h, i := int32(r2[x-1]), int32(r2[x]), int32(r2[x+1])

	gx := (c - a) + 2*(f-d) + (i - g)
	gy := (a + 2*b + c) - (g + 2*h + i)
	return magnitude(gx, gy)
}

func magnitude(gx, gy int32) byte {
	if gx < 0 {
		gx = -gx
	}
	if gy < 0 {
		gy = -gy
	}
	if m := gx + gy; m < maxMagnitude {
		return byte(m)
	}
	return maxMagnitude
}
