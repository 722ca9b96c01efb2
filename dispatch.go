package main

import (
	"fmt"
	"math"
	"time"
)

// hexRowPitch is the row spacing of a hexagonal grid in units of V.
const hexRowPitch = 0.8660254037844386

// workShape is a local work-group size. A zero shape selects the kernel's
// default; unused trailing dimensions may be 0 or 1.
type workShape [3]int

// kernelLayout describes how one entry point is dispatched.
type kernelLayout struct {
	Entry string
	Args  int
	Dims  int
	// EvenPartition kernels index a grid directly, so the local shape has to
	// divide the problem size. Other kernels get a padded global range and
	// guard the tail themselves.
	EvenPartition bool
	// OutStride is the number of float32 written per work item.
	OutStride int
}

// rawResult is a device output buffer, Stride values per work item.
type rawResult struct {
	Data    []float32
	Stride  int
	Elapsed time.Duration
}

// Len returns the number of work items in the result.
func (r *rawResult) Len() int {
	if r == nil || r.Stride == 0 {
		return 0
	}
	return len(r.Data) / r.Stride
}

// dispatchRequest carries the inputs of one capability call. Each
// capability reads the fields it needs and ignores the rest.
type dispatchRequest struct {
	Array  *txArray
	Points []vec3
	Plane  *planeGrid
	Hemi   *hemisphereGrid
	Focus  *vec3
	Source *sourceField
	Shape  workShape
}

// planeGrid is a rectilinear or hexagonal sample plane: Origin + i*U + j*V
// for i < NU, j < NV. Hexagonal grids shift odd rows by U/2 and scale the
// row pitch by sqrt(3)/2.
type planeGrid struct {
	Origin vec3
	U, V   vec3
	NU, NV int
}

func (g *planeGrid) pack() []float32 {
	return []float32{
		float32(g.Origin.X), float32(g.Origin.Y), float32(g.Origin.Z), 0,
		float32(g.U.X), float32(g.U.Y), float32(g.U.Z), 0,
		float32(g.V.X), float32(g.V.Y), float32(g.V.Z), 0,
	}
}

// Points returns the sample positions in output order.
func (g *planeGrid) Points(hex bool) []vec3 {
	pts := make([]vec3, 0, g.NU*g.NV)
	for j := 0; j < g.NV; j++ {
		for i := 0; i < g.NU; i++ {
			fi, fj := float64(i), float64(j)
			if hex {
				if j&1 == 1 {
					fi += 0.5
				}
				fj *= hexRowPitch
			}
			pts = append(pts, g.Origin.Add(g.U.Scale(fi)).Add(g.V.Scale(fj)))
		}
	}
	return pts
}

// hemisphereGrid samples a hemisphere of Radius around Centre, facing +z,
// on an N by N Lambert azimuthal equal-area grid.
type hemisphereGrid struct {
	Centre vec3
	Radius float64
	N      int
}

func (h *hemisphereGrid) pack() []float32 {
	return []float32{
		float32(h.Centre.X), float32(h.Centre.Y), float32(h.Centre.Z), 0,
		float32(h.Radius), 0, 0, 0,
	}
}

// Points returns the sample positions in output order. Cells outside the
// projection disk are placed on the rim; the kernels report no field for
// them.
func (h *hemisphereGrid) Points() []vec3 {
	pts := make([]vec3, 0, h.N*h.N)
	for j := 0; j < h.N; j++ {
		for i := 0; i < h.N; i++ {
			x, y := lambertGridPoint(i, j, h.N, math.Sqrt2)
			X, Y := float64(x), float64(y)
			rho2 := X*X + Y*Y
			if rho2 > 2 {
				scale := math.Sqrt2 / math.Sqrt(rho2)
				X, Y, rho2 = X*scale, Y*scale, 2
			}
			s := math.Sqrt(1 - rho2/4)
			dir := vec3{X: s * X, Y: s * Y, Z: 1 - rho2/2}
			pts = append(pts, h.Centre.Add(dir.Scale(h.Radius)))
		}
	}
	return pts
}

func packPoints(pts []vec3) []float32 {
	buf := make([]float32, 4*len(pts))
	for i, p := range pts {
		buf[4*i], buf[4*i+1], buf[4*i+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	return buf
}

// checkStride verifies a packed buffer holds count records of stride values.
func checkStride(kernel, what string, buf []float32, stride, count int) error {
	if len(buf) != stride*count {
		return &ShapeMismatchError{Kernel: kernel, What: what + " length", Want: stride * count, Got: len(buf)}
	}
	return nil
}

// defaultWorkShape picks the local shape used when the caller passes none.
// It stays within maxGroup work items when maxGroup is positive.
func defaultWorkShape(layout kernelLayout, problem []int, maxGroup int) workShape {
	var s workShape
	if !layout.EvenPartition {
		s[0] = defaultListLocalSize
		if maxGroup > 0 {
			s[0] = min(s[0], maxGroup)
		}
		for d := 1; d < layout.Dims; d++ {
			s[d] = 1
		}
		return s
	}
	size := 1
	for d := 0; d < layout.Dims; d++ {
		s[d] = 1
		for _, c := range defaultGridLocalSizes {
			if problem[d]%c == 0 && (maxGroup <= 0 || size*c <= maxGroup) {
				s[d] = c
				break
			}
		}
		size *= s[d]
	}
	return s
}

// resolveWorkShape validates shape against the problem and returns the
// global and local ranges to enqueue.
func resolveWorkShape(layout kernelLayout, problem []int, shape workShape, maxGroup int) ([]int, []int, error) {
	if shape == (workShape{}) {
		shape = defaultWorkShape(layout, problem, maxGroup)
	}
	invalid := func(reason string) error {
		return &InvalidWorkGroupShapeError{Kernel: layout.Entry, Shape: shape, Problem: problem, Reason: reason}
	}
	for d := layout.Dims; d < len(shape); d++ {
		if shape[d] > 1 {
			return nil, nil, invalid(fmt.Sprintf("kernel is %d-dimensional", layout.Dims))
		}
	}
	size := 1
	global := make([]int, layout.Dims)
	local := make([]int, layout.Dims)
	for d := 0; d < layout.Dims; d++ {
		if shape[d] < 1 {
			return nil, nil, invalid(fmt.Sprintf("dimension %d is not positive", d))
		}
		size *= shape[d]
		local[d] = shape[d]
		if problem[d]%shape[d] != 0 {
			if layout.EvenPartition {
				return nil, nil, invalid(fmt.Sprintf("%d does not divide %d", shape[d], problem[d]))
			}
			global[d] = (problem[d]/shape[d] + 1) * shape[d]
			continue
		}
		global[d] = problem[d]
	}
	if maxGroup > 0 && size > maxGroup {
		return nil, nil, invalid(fmt.Sprintf("%d work items exceed the kernel limit of %d", size, maxGroup))
	}
	return global, local, nil
}

// dispatchKernel runs h over problem and returns its output buffer. args
// must hold exactly one *outputBuffer sized for the problem. An empty
// problem returns an empty result without touching the device.
func dispatchKernel(ctx *computeContext, h *kernelHandle, layout kernelLayout, args []any, problem []int, shape workShape) (*rawResult, error) {
	if len(args) != h.NumArgs {
		return nil, &ShapeMismatchError{Kernel: h.Name, What: "argument count", Want: h.NumArgs, Got: len(args)}
	}
	if len(problem) != layout.Dims {
		return nil, &ShapeMismatchError{Kernel: h.Name, What: "problem dimensions", Want: layout.Dims, Got: len(problem)}
	}
	var out *outputBuffer
	for _, a := range args {
		if o, ok := a.(*outputBuffer); ok {
			out = o
		}
	}
	if out == nil {
		return nil, fmt.Errorf("kernel %s: %w: output buffer", h.Name, errMissingInput)
	}
	items := 1
	for _, n := range problem {
		items *= n
	}
	if err := checkStride(h.Name, "output", out.Data, layout.OutStride, items); err != nil {
		return nil, err
	}
	if items == 0 {
		return &rawResult{Data: out.Data, Stride: layout.OutStride}, nil
	}
	limit := h.MaxGroup
	if limit <= 0 {
		limit = ctx.Device().Info.MaxWorkGroupSize
	}
	global, local, err := resolveWorkShape(layout, problem, shape, limit)
	if err != nil {
		return nil, err
	}
	elapsed, err := ctx.launch(h, args, global, local)
	if err != nil {
		return nil, err
	}
	res := &rawResult{Data: out.Data, Stride: layout.OutStride}
	if ctx.Profiling() {
		res.Elapsed = elapsed
	}
	return res, nil
}
