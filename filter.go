package inksep

import "math"

// ============ FILTERS ============

// gaussianKernel returns a normalized 1D kernel of 2*half+1 taps.
func gaussianKernel(sigma float64, half int) []float64 {
	if sigma <= 0 || half <= 0 {
		return []float64{1}
	}
	k := make([]float64, 2*half+1)
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur smooths a single-channel plane with a kernel covering three
// standard deviations.
func gaussianBlur(src []float64, w, h int, sigma float64) []float64 {
	return convolveSeparable(src, w, h, gaussianKernel(sigma, int(math.Ceil(3*sigma))))
}

// convolveSeparable applies kernel horizontally then vertically. Samples
// outside the plane clamp to the nearest edge.
func convolveSeparable(src []float64, w, h int, kernel []float64) []float64 {
	if len(kernel) == 1 {
		return append([]float64(nil), src...)
	}
	half := len(kernel) / 2
	tmp := make([]float64, len(src))
	for y := range h {
		row := y * w
		for x := range w {
			s := 0.0
			for k, kv := range kernel {
				sx := clampInt(x+k-half, 0, w-1)
				s += src[row+sx] * kv
			}
			tmp[row+x] = s
		}
	}
	dst := make([]float64, len(src))
	for y := range h {
		for x := range w {
			s := 0.0
			for k, kv := range kernel {
				sy := clampInt(y+k-half, 0, h-1)
				s += tmp[sy*w+x] * kv
			}
			dst[y*w+x] = s
		}
	}
	return dst
}

// centralGradient is the magnitude of the central-difference gradient, with
// one-sided differences on the borders.
func centralGradient(src []float64, w, h int) []float64 {
	out := make([]float64, len(src))
	for y := range h {
		for x := range w {
			x0, x1 := max(x-1, 0), min(x+1, w-1)
			y0, y1 := max(y-1, 0), min(y+1, h-1)
			gx, gy := 0.0, 0.0
			if x1 > x0 {
				gx = (src[y*w+x1] - src[y*w+x0]) / float64(x1-x0)
			}
			if y1 > y0 {
				gy = (src[y1*w+x] - src[y0*w+x]) / float64(y1-y0)
			}
			out[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

// sobelMagnitude is the 3x3 Sobel gradient magnitude, edges clamped.
func sobelMagnitude(src []float64, w, h int) []float64 {
	out := make([]float64, len(src))
	at := func(x, y int) float64 {
		return src[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)]
	}
	for y := range h {
		for x := range w {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			out[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

// localStdDev is the standard deviation over a size x size window, edges
// clamped.
func localStdDev(src []float64, w, h, size int) []float64 {
	box := make([]float64, size)
	for i := range box {
		box[i] = 1 / float64(size)
	}
	sq := make([]float64, len(src))
	for i, v := range src {
		sq[i] = v * v
	}
	mean := convolveSeparable(src, w, h, box)
	meanSq := convolveSeparable(sq, w, h, box)
	out := make([]float64, len(src))
	for i := range out {
		out[i] = math.Sqrt(max(meanSq[i]-mean[i]*mean[i], 0))
	}
	return out
}

// dilate grows a mask by a disk of the given radius.
func dilate(mask []bool, w, h, radius int) []bool {
	out := append([]bool(nil), mask...)
	if radius <= 0 {
		return out
	}
	r2 := radius * radius
	for y := range h {
		for x := range w {
			if !mask[y*w+x] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w || dx*dx+dy*dy > r2 {
						continue
					}
					out[ny*w+nx] = true
				}
			}
		}
	}
	return out
}

// components labels the 4-connected components of mask in raster order of
// their first pixel. Unset pixels get -1.
func components(mask []bool, w, h int) ([]int, int) {
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	dx4 := []int{-1, 0, 1, 0}
	dy4 := []int{0, -1, 0, 1}
	n := 0
	var queue []int
	for start, in := range mask {
		if !in || labels[start] != -1 {
			continue
		}
		labels[start] = n
		queue = append(queue[:0], start)
		for q := 0; q < len(queue); q++ {
			cur := queue[q]
			cx, cy := cur%w, cur/w
			for k := range 4 {
				nx, ny := cx+dx4[k], cy+dy4[k]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := labelOffset(w, nx, ny)
				if mask[ni] && labels[ni] == -1 {
					labels[ni] = n
					queue = append(queue, ni)
				}
			}
		}
		n++
	}
	return labels, n
}
