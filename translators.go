package main

import (
	"errors"
	"fmt"
)

var errNotPropagated = errors.New("sampler holds no propagated field")

// sourceField is a sampled pressure field reused as secondary sources.
// Area is the surface element of every sample. The xy translator assumes
// the samples lie on a plane facing +z and ignores Normals.
type sourceField struct {
	Points  []vec3
	Normals []vec3
	Field   []complex64
	Area    float64
}

func (s *sourceField) packField() []float32 {
	buf := make([]float32, 2*len(s.Field))
	for i, v := range s.Field {
		buf[2*i], buf[2*i+1] = real(v), imag(v)
	}
	return buf
}

// packOriented interleaves (x, y, z, area) and (nx, ny, nz, 0) per sample.
func (s *sourceField) packOriented() []float32 {
	buf := make([]float32, 8*len(s.Points))
	for i, p := range s.Points {
		rec := buf[8*i : 8*i+8]
		rec[0], rec[1], rec[2], rec[3] = float32(p.X), float32(p.Y), float32(p.Z), float32(s.Area)
		if i < len(s.Normals) {
			n := s.Normals[i]
			rec[4], rec[5], rec[6] = float32(n.X), float32(n.Y), float32(n.Z)
		}
	}
	return buf
}

// planeSource turns a propagated plane into a source field. Each sample
// covers one grid cell and faces along U x V.
func planeSource(s *planeSampler) (*sourceField, error) {
	if s.State() != samplerPropagated || s.grid == nil {
		return nil, errNotPropagated
	}
	normal := s.grid.U.Cross(s.grid.V)
	area := normal.Length()
	if area == 0 {
		return nil, fmt.Errorf("%w: plane axes are parallel", errInvalidGrid)
	}
	if s.hex {
		area *= hexRowPitch
	}
	unit := normal.Scale(1 / normal.Length())
	normals := make([]vec3, s.Len())
	for i := range normals {
		normals[i] = unit
	}
	return &sourceField{
		Points:  s.Coordinates(),
		Normals: normals,
		Field:   s.Field(),
		Area:    area,
	}, nil
}

// checkSource validates the shared inputs of both translators.
func checkSource(kernel string, req *dispatchRequest) error {
	if req.Source == nil {
		return fmt.Errorf("%s: %w: source field", kernel, errMissingInput)
	}
	return checkStride(kernel, "source field", req.Source.packField(), 2, len(req.Source.Points))
}

// xyTranslatorCapability carries a field sampled on a +z facing plane to
// a list of points.
type xyTranslatorCapability struct {
	kernelBinding
}

func newXYTranslatorCapability() *xyTranslatorCapability {
	return &xyTranslatorCapability{kernelBinding{layout: kernelLayout{
		Entry: "xy_translator", Args: 7, Dims: 1, OutStride: 2,
	}}}
}

func (c *xyTranslatorCapability) Name() string { return "xy_translator" }

func (c *xyTranslatorCapability) Units() []string { return []string{"common", "xy_translator"} }

func (c *xyTranslatorCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *xyTranslatorCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if err := checkSource(c.layout.Entry, req); err != nil {
		return nil, err
	}
	src := req.Source
	out := &outputBuffer{Data: make([]float32, 2*len(req.Points))}
	args := []any{
		packPoints(src.Points), src.packField(), int32(len(src.Points)), float32(src.Area),
		packPoints(req.Points), int32(len(req.Points)), out,
	}
	return c.dispatch(args, []int{len(req.Points)}, req.Shape)
}

// xyzTranslatorCapability carries a field sampled on any oriented surface
// to a list of points.
type xyzTranslatorCapability struct {
	kernelBinding
}

func newXYZTranslatorCapability() *xyzTranslatorCapability {
	return &xyzTranslatorCapability{kernelBinding{layout: kernelLayout{
		Entry: "xyz_translator", Args: 6, Dims: 1, OutStride: 2,
	}}}
}

func (c *xyzTranslatorCapability) Name() string { return "xyz_translator" }

func (c *xyzTranslatorCapability) Units() []string { return []string{"common", "xyz_translator"} }

func (c *xyzTranslatorCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *xyzTranslatorCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if err := checkSource(c.layout.Entry, req); err != nil {
		return nil, err
	}
	src := req.Source
	if len(src.Normals) != len(src.Points) {
		return nil, &ShapeMismatchError{Kernel: c.layout.Entry, What: "source normals", Want: len(src.Points), Got: len(src.Normals)}
	}
	out := &outputBuffer{Data: make([]float32, 2*len(req.Points))}
	args := []any{
		src.packOriented(), src.packField(), int32(len(src.Points)),
		packPoints(req.Points), int32(len(req.Points)), out,
	}
	return c.dispatch(args, []int{len(req.Points)}, req.Shape)
}

// translator bundles the field translation capabilities over one program.
type translator struct {
	*dispatcher
}

func newTranslator(rt computeRuntime, cfg contextConfig) (*translator, error) {
	d, err := newCapabilityDispatcher(rt, cfg, newXYTranslatorCapability(), newXYZTranslatorCapability())
	if err != nil {
		return nil, err
	}
	return &translator{d}, nil
}

// XY returns the raw field at pts radiated by a planar source facing +z.
func (t *translator) XY(src *sourceField, pts []vec3, shape workShape) (*rawResult, error) {
	return t.Run("xy_translator", &dispatchRequest{Source: src, Points: pts, Shape: shape})
}

// XYZ returns the raw field at pts radiated by an oriented source surface.
func (t *translator) XYZ(src *sourceField, pts []vec3, shape workShape) (*rawResult, error) {
	return t.Run("xyz_translator", &dispatchRequest{Source: src, Points: pts, Shape: shape})
}
