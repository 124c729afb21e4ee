package inksep

import "math"

// ============ SLIC ============

// slic clusters the LAB image into roughly numSuperpixels compact patches
// and returns a label per pixel. Labels are connected and numbered in
// raster order of their first pixel.
func slic(img *Image, numSuperpixels int, compactness float64) []int {
	lab := img.Lab
	h := img.H
	w := img.W
	if numSuperpixels <= 0 {
		numSuperpixels = 1
	}
	step := max(int(math.Sqrt(float64(h*w)/float64(numSuperpixels))), 1)
	nc := compactness
	ns := float64(step)

	clusters := make([]int, h*w)
	distances := make([]float64, h*w)
	for i := range clusters {
		clusters[i] = -1
	}

	type center struct{ l, a, b, cx, cy float64 }
	var centers []center
	for cy := step / 2; cy < h; cy += step {
		for cx := step / 2; cx < w; cx += step {
			// Move the seed to the lowest gradient position in its 3x3 neighborhood.
			minGrad := math.MaxFloat64
			lx, ly := cx, cy
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || nx >= w-1 || ny < 0 || ny >= h-1 {
						continue
					}
					i1 := lab[pixOffset(w, nx, ny+1)]
					i2 := lab[pixOffset(w, nx+1, ny)]
					i3 := lab[pixOffset(w, nx, ny)]
					grad := math.Abs(i1-i3) + math.Abs(i2-i3)
					if grad < minGrad {
						minGrad = grad
						lx, ly = nx, ny
					}
				}
			}
			off := pixOffset(w, lx, ly)
			centers = append(centers, center{lab[off], lab[off+1], lab[off+2], float64(lx), float64(ly)})
		}
	}

	type acc struct {
		l, a, b, sx, sy float64
		n               int
	}
	sums := make([]acc, len(centers))
	for range 10 {
		for i := range distances {
			distances[i] = math.MaxFloat64
		}
		for ci, c := range centers {
			x0, x1 := max(int(c.cx)-step, 0), min(int(c.cx)+step, w)
			y0, y1 := max(int(c.cy)-step, 0), min(int(c.cy)+step, h)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					off := pixOffset(w, x, y)
					dL := lab[off] - c.l
					dA := lab[off+1] - c.a
					dB := lab[off+2] - c.b
					dx := float64(x) - c.cx
					dy := float64(y) - c.cy
					dc := math.Sqrt(dL*dL + dA*dA + dB*dB)
					ds := math.Sqrt(dx*dx + dy*dy)
					d := math.Sqrt((dc/nc)*(dc/nc) + (ds/ns)*(ds/ns))
					pIdx := labelOffset(w, x, y)
					if d < distances[pIdx] {
						distances[pIdx] = d
						clusters[pIdx] = ci
					}
				}
			}
		}
		clear(sums)
		for y := range h {
			for x := range w {
				ci := clusters[labelOffset(w, x, y)]
				if ci < 0 {
					continue
				}
				off := pixOffset(w, x, y)
				sums[ci].l += lab[off]
				sums[ci].a += lab[off+1]
				sums[ci].b += lab[off+2]
				sums[ci].sx += float64(x)
				sums[ci].sy += float64(y)
				sums[ci].n++
			}
		}
		for ci := range centers {
			if sums[ci].n > 0 {
				n := float64(sums[ci].n)
				centers[ci] = center{sums[ci].l / n, sums[ci].a / n, sums[ci].b / n, sums[ci].sx / n, sums[ci].sy / n}
			}
		}
	}

	return enforceConnectivity(clusters, w, h, len(centers))
}

// enforceConnectivity relabels 4-connected pieces of each cluster and folds
// fragments smaller than a quarter of the expected superpixel size into the
// previously labeled neighbor.
func enforceConnectivity(clusters []int, w, h, numCenters int) []int {
	lims := max((h*w)/max(numCenters, 1), 1)
	dx4 := []int{-1, 0, 1, 0}
	dy4 := []int{0, -1, 0, 1}
	labels := make([]int, h*w)
	for i := range labels {
		labels[i] = -1
	}
	label := 0
	elems := make([]int, 0, 64)
	for y := range h {
		for x := range w {
			start := labelOffset(w, x, y)
			if labels[start] != -1 {
				continue
			}
			elems = append(elems[:0], start)
			labels[start] = label
			adjLabel := -1
			for k := range 4 {
				nx, ny := x+dx4[k], y+dy4[k]
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					if l := labels[labelOffset(w, nx, ny)]; l >= 0 && l != label {
						adjLabel = l
						break
					}
				}
			}
			for c := 0; c < len(elems); c++ {
				cur := elems[c]
				cx, cy := cur%w, cur/w
				for k := range 4 {
					nx, ny := cx+dx4[k], cy+dy4[k]
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						nIdx := labelOffset(w, nx, ny)
						if labels[nIdx] == -1 && clusters[cur] == clusters[nIdx] {
							labels[nIdx] = label
							elems = append(elems, nIdx)
						}
					}
				}
			}
			if adjLabel >= 0 && len(elems) <= lims>>2 {
				for _, e := range elems {
					labels[e] = adjLabel
				}
				continue
			}
			label++
		}
	}
	return labels
}
