package inksep

import "errors"

// Input contract violations. These are the only errors Separate returns;
// everything else degrades to a lower-fidelity result.
var (
	ErrInvalidImage     = errors.New("inksep: invalid image")
	ErrEmptyPalette     = errors.New("inksep: empty palette")
	ErrDuplicateColorID = errors.New("inksep: duplicate palette color id")
	ErrUnknownMethod    = errors.New("inksep: unknown separation method")
	ErrInvalidOptions   = errors.New("inksep: invalid options")
)

// Advisory errors. They never leave the advisor; they are recorded as the
// fallback reason of a rule-based result.
var (
	ErrNoOracle      = errors.New("inksep: no oracle configured")
	ErrInvalidAdvice = errors.New("inksep: invalid advisory response")
)
