package main

import (
	"fmt"
	"math"
)

type samplerState int

const (
	samplerEmpty samplerState = iota
	samplerPopulated
	samplerPropagated
)

func (s samplerState) String() string {
	switch s {
	case samplerPopulated:
		return "populated"
	case samplerPropagated:
		return "propagated"
	default:
		return "empty"
	}
}

// fieldRunner runs a named capability. *dispatcher and the bundles built on
// it satisfy it.
type fieldRunner interface {
	Run(name string, req *dispatchRequest) (*rawResult, error)
}

// samplerCore owns an ordered coordinate set and the pressure field last
// computed for it.
type samplerCore struct {
	kind      string
	coords    []vec3
	field     []complex64
	state     samplerState
	sanitized int
	metrics   *metrics
}

// setCoordinates replaces the coordinate set and drops any field.
func (s *samplerCore) setCoordinates(pts []vec3) {
	s.coords = pts
	s.field = nil
	s.sanitized = 0
	if len(pts) == 0 {
		s.state = samplerEmpty
		return
	}
	s.state = samplerPopulated
}

// accept converts a raw interleaved buffer into the field.
func (s *samplerCore) accept(kernel string, res *rawResult) error {
	if res.Stride != 2 || res.Len() != len(s.coords) {
		return &ShapeMismatchError{Kernel: kernel, What: "result length", Want: 2 * len(s.coords), Got: len(res.Data)}
	}
	field, n := sanitizeField(res.Data)
	s.field = field
	s.sanitized = n
	s.state = samplerPropagated
	s.metrics.addSanitized(s.kind, n)
	return nil
}

func (s *samplerCore) run(r fieldRunner, name string, req *dispatchRequest) error {
	if s.state == samplerEmpty {
		s.field = nil
		return nil
	}
	res, err := r.Run(name, req)
	if err != nil {
		return err
	}
	return s.accept(name, res)
}

// Clear discards coordinates and field.
func (s *samplerCore) Clear() {
	s.setCoordinates(nil)
}

// Field returns the pressure field, aligned with Coordinates. It is empty
// unless the sampler is in the propagated state.
func (s *samplerCore) Field() []complex64 { return s.field }

func (s *samplerCore) Coordinates() []vec3 { return s.coords }

func (s *samplerCore) State() samplerState { return s.state }

func (s *samplerCore) Len() int { return len(s.coords) }

// Sanitized reports how many samples of the last field were zeroed.
func (s *samplerCore) Sanitized() int { return s.sanitized }

// Volume is the product of the bounding box spans of the coordinates. It
// is zero when any axis has fewer than two distinct values.
func (s *samplerCore) Volume() float64 {
	if len(s.coords) < 2 {
		return 0
	}
	lo, hi := s.coords[0], s.coords[0]
	for _, p := range s.coords[1:] {
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
		lo.Z, hi.Z = math.Min(lo.Z, p.Z), math.Max(hi.Z, p.Z)
	}
	return (hi.X - lo.X) * (hi.Y - lo.Y) * (hi.Z - lo.Z)
}

// sanitizeField pairs interleaved real/imaginary values. A sample with any
// NaN or infinite component becomes 0+0i.
func sanitizeField(raw []float32) ([]complex64, int) {
	field := make([]complex64, len(raw)/2)
	bad := 0
	for i := range field {
		re, im := raw[2*i], raw[2*i+1]
		if !finite32(re) || !finite32(im) {
			bad++
			continue
		}
		field[i] = complex(re, im)
	}
	return field, bad
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// clistSampler samples an explicit list of points.
type clistSampler struct {
	samplerCore
}

func newClistSampler(m *metrics) *clistSampler {
	return &clistSampler{samplerCore{kind: "clist", metrics: m}}
}

// AddPoints replaces the coordinate set with (xs[i], ys[i], zs[i]).
func (s *clistSampler) AddPoints(xs, ys, zs []float64) error {
	if len(xs) != len(ys) || len(xs) != len(zs) {
		return &DimensionMismatchError{X: len(xs), Y: len(ys), Z: len(zs)}
	}
	pts := make([]vec3, len(xs))
	for i := range xs {
		pts[i] = vec3{X: xs[i], Y: ys[i], Z: zs[i]}
	}
	s.setCoordinates(pts)
	return nil
}

// Propagate computes the field at the current coordinates. An empty
// sampler yields an empty field without dispatching.
func (s *clistSampler) Propagate(r fieldRunner, arr *txArray, shape workShape) error {
	if err := s.run(r, "clist_propagator", &dispatchRequest{Array: arr, Points: s.coords, Shape: shape}); err != nil {
		return fmt.Errorf("propagating %d points: %w", len(s.coords), err)
	}
	return nil
}

// Translate computes the field at the current coordinates from a sampled
// source field instead of the array. Sources with normals use the
// oriented translator, sources without use the +z planar one.
func (s *clistSampler) Translate(r fieldRunner, src *sourceField, shape workShape) error {
	name := "xy_translator"
	if src != nil && len(src.Normals) > 0 {
		name = "xyz_translator"
	}
	if err := s.run(r, name, &dispatchRequest{Source: src, Points: s.coords, Shape: shape}); err != nil {
		return fmt.Errorf("translating to %d points: %w", len(s.coords), err)
	}
	return nil
}
