package main

import "fmt"

// singleFocusCapability solves element drives that bring every enabled
// element into phase at one focal point.
type singleFocusCapability struct {
	kernelBinding
}

func newSingleFocusCapability() *singleFocusCapability {
	return &singleFocusCapability{kernelBinding{layout: kernelLayout{
		Entry: "sf_solver", Args: 4, Dims: 1, OutStride: 2,
	}}}
}

func (c *singleFocusCapability) Name() string { return "sf_solver" }

func (c *singleFocusCapability) Units() []string { return []string{"common", "sf_solver"} }

func (c *singleFocusCapability) Bind(ctx *computeContext) error { return c.bind(c.Name(), ctx) }

func (c *singleFocusCapability) Run(req *dispatchRequest) (*rawResult, error) {
	if req.Array == nil {
		return nil, fmt.Errorf("%s: %w: transducer array", c.Name(), errMissingInput)
	}
	if req.Focus == nil {
		return nil, fmt.Errorf("%s: %w: focal point", c.Name(), errMissingInput)
	}
	n := req.Array.Len()
	out := &outputBuffer{Data: make([]float32, 2*n)}
	args := []any{req.Array.pack(), int32(n), packPoints([]vec3{*req.Focus}), out}
	return c.dispatch(args, []int{n}, req.Shape)
}

// solver bundles the solving capabilities over one program.
type solver struct {
	*dispatcher
}

func newSolver(rt computeRuntime, cfg contextConfig) (*solver, error) {
	d, err := newCapabilityDispatcher(rt, cfg, newSingleFocusCapability())
	if err != nil {
		return nil, err
	}
	return &solver{d}, nil
}

// SingleFocus returns one drive per element, in element order.
func (s *solver) SingleFocus(arr *txArray, focus vec3, shape workShape) ([]elementDrive, error) {
	res, err := s.Run("sf_solver", &dispatchRequest{Array: arr, Focus: &focus, Shape: shape})
	if err != nil {
		return nil, err
	}
	drives := make([]elementDrive, res.Len())
	for i := range drives {
		drives[i] = elementDrive{
			Amplitude: float64(res.Data[2*i]),
			Phase:     float64(res.Data[2*i+1]),
		}
	}
	return drives, nil
}
