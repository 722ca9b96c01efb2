package main

import "fmt"

// clistCapability computes the field at an explicit list of points.
type clistCapability struct {
	kernelBinding
}

func newClistCapability() *clistCapability {
	return &clistCapability{kernelBinding{layout: kernelLayout{
		Entry: "clist_propagator", Args: 5, Dims: 1, OutStride: 2,
	}}}
}

func (c *clistCapability) Name() string { return "clist_propagator" }

func (c *clistCapability) Units() []string { return []string{"common", "clist_propagator"} }

func (c *clistCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *clistCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if req.Array == nil {
		return nil, fmt.Errorf("%s: %w: transducer array", c.Name(), errMissingInput)
	}
	out := &outputBuffer{Data: make([]float32, 2*len(req.Points))}
	args := []any{req.Array.pack(), int32(req.Array.Len()), packPoints(req.Points), int32(len(req.Points)), out}
	return c.dispatch(args, []int{len(req.Points)}, req.Shape)
}

// planeCapability computes the field on a rectilinear or hexagonal plane.
type planeCapability struct {
	kernelBinding
	hex bool
}

func newRectCapability() *planeCapability {
	return &planeCapability{kernelBinding: kernelBinding{layout: kernelLayout{
		Entry: "rect_propagator", Args: 6, Dims: 2, EvenPartition: true, OutStride: 2,
	}}}
}

func newHexCapability() *planeCapability {
	return &planeCapability{hex: true, kernelBinding: kernelBinding{layout: kernelLayout{
		Entry: "hex_propagator", Args: 6, Dims: 2, EvenPartition: true, OutStride: 2,
	}}}
}

func (c *planeCapability) Name() string { return c.layout.Entry }

func (c *planeCapability) Units() []string { return []string{"common", c.layout.Entry} }

func (c *planeCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *planeCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if req.Array == nil {
		return nil, fmt.Errorf("%s: %w: transducer array", c.Name(), errMissingInput)
	}
	if req.Plane == nil {
		return nil, fmt.Errorf("%s: %w: sample plane", c.Name(), errMissingInput)
	}
	g := req.Plane
	if g.NU < 0 || g.NV < 0 {
		return nil, &ShapeMismatchError{Kernel: c.layout.Entry, What: "grid size", Want: 0, Got: min(g.NU, g.NV)}
	}
	out := &outputBuffer{Data: make([]float32, 2*g.NU*g.NV)}
	args := []any{req.Array.pack(), int32(req.Array.Len()), g.pack(), int32(g.NU), int32(g.NV), out}
	return c.dispatch(args, []int{g.NU, g.NV}, req.Shape)
}

// lambertCapability computes the field on a hemisphere through the Lambert
// equal-area projection.
type lambertCapability struct {
	kernelBinding
}

func newLambertCapability() *lambertCapability {
	return &lambertCapability{kernelBinding{layout: kernelLayout{
		Entry: "lamb_propagator", Args: 5, Dims: 2, EvenPartition: true, OutStride: 2,
	}}}
}

func (c *lambertCapability) Name() string { return "lamb_propagator" }

func (c *lambertCapability) Units() []string { return []string{"common", "lamb_propagator"} }

func (c *lambertCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *lambertCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if req.Array == nil {
		return nil, fmt.Errorf("%s: %w: transducer array", c.Name(), errMissingInput)
	}
	if req.Hemi == nil {
		return nil, fmt.Errorf("%s: %w: hemisphere", c.Name(), errMissingInput)
	}
	n := req.Hemi.N
	if n < 0 {
		return nil, &ShapeMismatchError{Kernel: c.layout.Entry, What: "grid size", Want: 0, Got: n}
	}
	out := &outputBuffer{Data: make([]float32, 2*n*n)}
	args := []any{req.Array.pack(), int32(req.Array.Len()), req.Hemi.pack(), int32(n), out}
	return c.dispatch(args, []int{n, n}, req.Shape)
}

// propagator bundles the propagation capabilities over one program.
type propagator struct {
	*dispatcher
}

// newPropagator compiles the propagator units on the selected device and
// registers the list, rectilinear, hexagonal and Lambert capabilities.
func newPropagator(rt computeRuntime, cfg contextConfig) (*propagator, error) {
	d, err := newCapabilityDispatcher(rt, cfg,
		newClistCapability(),
		newRectCapability(),
		newHexCapability(),
		newLambertCapability(),
	)
	if err != nil {
		return nil, err
	}
	return &propagator{d}, nil
}

// Clist returns the raw field at pts.
func (p *propagator) Clist(arr *txArray, pts []vec3, shape workShape) (*rawResult, error) {
	return p.Run("clist_propagator", &dispatchRequest{Array: arr, Points: pts, Shape: shape})
}

// Rect returns the raw field on a rectilinear plane, row by row.
func (p *propagator) Rect(arr *txArray, plane *planeGrid, shape workShape) (*rawResult, error) {
	return p.Run("rect_propagator", &dispatchRequest{Array: arr, Plane: plane, Shape: shape})
}

// Hex returns the raw field on a hexagonal plane, row by row.
func (p *propagator) Hex(arr *txArray, plane *planeGrid, shape workShape) (*rawResult, error) {
	return p.Run("hex_propagator", &dispatchRequest{Array: arr, Plane: plane, Shape: shape})
}

// Lambert returns the raw field on a hemisphere grid.
func (p *propagator) Lambert(arr *txArray, hemi *hemisphereGrid, shape workShape) (*rawResult, error) {
	return p.Run("lamb_propagator", &dispatchRequest{Array: arr, Hemi: hemi, Shape: shape})
}
