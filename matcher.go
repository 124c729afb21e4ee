package inksep

import "math"

// inverseDistanceEps keeps inverse-distance weights finite on exact matches.
const inverseDistanceEps = 1e-6

// DeltaE is the CIE76 color difference: Euclidean distance in LAB.
func DeltaE(a, b Lab) float64 {
	dL := a.L - b.L
	dA := a.A - b.A
	dB := a.B - b.B
	return math.Sqrt(dL*dL + dA*dA + dB*dB)
}

// Matcher answers nearest-color and soft-contribution queries against a
// fixed palette.
type Matcher struct {
	labs []Lab
}

func NewMatcher(p Palette) *Matcher {
	return &Matcher{labs: p.labs()}
}

// Closest returns the index of the nearest palette color and its Delta-E.
// Ties resolve to the earliest palette entry. An empty palette yields -1.
func (m *Matcher) Closest(lab Lab) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i, c := range m.labs {
		d := DeltaE(lab, c)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// Contributions fills out with the normalized inverse-distance weight of
// every palette color for lab. out is grown if needed and returned.
func (m *Matcher) Contributions(lab Lab, out []float64) []float64 {
	if cap(out) < len(m.labs) {
		out = make([]float64, len(m.labs))
	}
	out = out[:len(m.labs)]
	sum := 0.0
	for i, c := range m.labs {
		w := 1.0 / (DeltaE(lab, c) + inverseDistanceEps)
		out[i] = w
		sum += w
	}
	if sum == 0 {
		return out
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}
