package inksep

import "fmt"

// Method is the closed set of separation methods. The first five are engine
// variants; MethodHybrid runs the region-based pipeline over them.
type Method int

const (
	MethodSpotColor Method = iota
	MethodSimulatedProcess
	MethodIndexColor
	MethodCMYK
	MethodRGB
	MethodHybrid
)

var methodNames = [...]string{
	MethodSpotColor:        "spot_color",
	MethodSimulatedProcess: "simulated_process",
	MethodIndexColor:       "index_color",
	MethodCMYK:             "cmyk",
	MethodRGB:              "rgb",
	MethodHybrid:           "hybrid",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// IsEngine reports whether m names a single-engine variant.
func (m Method) IsEngine() bool {
	return m >= MethodSpotColor && m <= MethodRGB
}

// UsesPalette reports whether the method's output depends on the palette.
func (m Method) UsesPalette() bool {
	return m != MethodCMYK && m != MethodRGB
}

func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

func (m Method) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(methodNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(methodNames[m]), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	v, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// AvailableMethods lists every method in dispatch order.
func AvailableMethods() []Method {
	out := make([]Method, len(methodNames))
	for i := range methodNames {
		out[i] = Method(i)
	}
	return out
}

// EngineMethods lists the single-engine variants.
func EngineMethods() []Method {
	return []Method{MethodSpotColor, MethodSimulatedProcess, MethodIndexColor, MethodCMYK, MethodRGB}
}

// DefaultParameters lists the options a method reads, with their defaults.
// CMYK and RGB take none.
func (m Method) DefaultParameters() map[string]any {
	d := DefaultOptions()
	switch m {
	case MethodSpotColor:
		return map[string]any{"tolerance": d.Tolerance}
	case MethodSimulatedProcess:
		return map[string]any{"halftone": d.Halftone}
	case MethodIndexColor:
		return map[string]any{"dither": d.Dither}
	case MethodHybrid:
		return map[string]any{
			"min_region_size":  d.MinRegionSize,
			"edge_sensitivity": d.EdgeSensitivity,
			"detail_level":     d.DetailLevel,
			"blend_edges":      d.BlendEdges,
			"blend_radius":     d.BlendRadius,
		}
	}
	return map[string]any{}
}
