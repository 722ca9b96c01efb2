package main

import "fmt"

// planeSampler samples a rectilinear or hexagonal plane. Its coordinates
// follow the grid in row order.
type planeSampler struct {
	samplerCore
	grid *planeGrid
	hex  bool
}

func newRectSampler(m *metrics) *planeSampler {
	return &planeSampler{samplerCore: samplerCore{kind: "rect", metrics: m}}
}

func newHexSampler(m *metrics) *planeSampler {
	return &planeSampler{samplerCore: samplerCore{kind: "hex", metrics: m}, hex: true}
}

// SetGrid replaces the sample plane.
func (s *planeSampler) SetGrid(g planeGrid) error {
	if g.NU < 0 || g.NV < 0 {
		return fmt.Errorf("%w: %d by %d cells", errInvalidGrid, g.NU, g.NV)
	}
	s.grid = &g
	s.setCoordinates(g.Points(s.hex))
	return nil
}

func (s *planeSampler) Grid() *planeGrid { return s.grid }

func (s *planeSampler) Clear() {
	s.grid = nil
	s.samplerCore.Clear()
}

func (s *planeSampler) capability() string {
	if s.hex {
		return "hex_propagator"
	}
	return "rect_propagator"
}

// Propagate computes the field on the plane.
func (s *planeSampler) Propagate(r fieldRunner, arr *txArray, shape workShape) error {
	if err := s.run(r, s.capability(), &dispatchRequest{Array: arr, Plane: s.grid, Shape: shape}); err != nil {
		return fmt.Errorf("propagating %s plane: %w", s.kind, err)
	}
	return nil
}

// lambertSampler samples a hemisphere on a Lambert equal-area grid. Cells
// outside the projection disk always read 0 and count as sanitized.
type lambertSampler struct {
	samplerCore
	hemi *hemisphereGrid
}

func newLambertSampler(m *metrics) *lambertSampler {
	return &lambertSampler{samplerCore: samplerCore{kind: "lambert", metrics: m}}
}

func (s *lambertSampler) SetHemisphere(h hemisphereGrid) error {
	if h.N < 0 {
		return fmt.Errorf("%w: %d by %d cells", errInvalidGrid, h.N, h.N)
	}
	s.hemi = &h
	s.setCoordinates(h.Points())
	return nil
}

func (s *lambertSampler) Clear() {
	s.hemi = nil
	s.samplerCore.Clear()
}

func (s *lambertSampler) Propagate(r fieldRunner, arr *txArray, shape workShape) error {
	if err := s.run(r, "lamb_propagator", &dispatchRequest{Array: arr, Hemi: s.hemi, Shape: shape}); err != nil {
		return fmt.Errorf("propagating hemisphere: %w", err)
	}
	return nil
}
