package inksep

// Floyd-Steinberg weights for the right, lower-left, lower and lower-right
// neighbors, in that order.
var fsWeights = [4]struct {
	dx, dy int
	w      float64
}{
	{1, 0, 7.0 / 16},
	{-1, 1, 3.0 / 16},
	{0, 1, 5.0 / 16},
	{1, 1, 1.0 / 16},
}

// diffuseError spreads err of sample (x,y) over the not yet visited
// neighbors of a raster-ordered plane with stride channels per pixel.
func diffuseError(buf []float64, w, h, stride, x, y int, err []float64) {
	for _, n := range fsWeights {
		nx, ny := x+n.dx, y+n.dy
		if nx < 0 || nx >= w || ny >= h {
			continue
		}
		off := (ny*w + nx) * stride
		for c := range stride {
			buf[off+c] += err[c] * n.w
		}
	}
}

// ditherGray binarizes a coverage plane in place: values above 127 become
// 255, the rest 0, with the quantization error diffused in raster order.
func ditherGray(pix []uint8, w, h int) {
	work := make([]float64, len(pix))
	for i, v := range pix {
		work[i] = float64(v)
	}
	var e [1]float64
	for y := range h {
		for x := range w {
			i := labelOffset(w, x, y)
			old := work[i]
			q := 0.0
			if old > 127 {
				q = 255
			}
			pix[i] = uint8(q)
			e[0] = old - q
			diffuseError(work, w, h, 1, x, y, e[:])
		}
	}
}
