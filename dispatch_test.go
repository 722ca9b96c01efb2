package main

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testGridLayout = kernelLayout{Entry: "grid", Args: 6, Dims: 2, EvenPartition: true, OutStride: 2}
	testListLayout = kernelLayout{Entry: "list", Args: 5, Dims: 1, OutStride: 2}
)

func TestResolveWorkShapeDefaults(t *testing.T) {
	global, local, err := resolveWorkShape(testGridLayout, []int{12, 8}, workShape{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8}, local)
	assert.Equal(t, []int{12, 8}, global)

	global, local, err = resolveWorkShape(testListLayout, []int{100}, workShape{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultListLocalSize}, local)
	assert.Equal(t, []int{128}, global)

	global, local, err = resolveWorkShape(testGridLayout, []int{7, 5}, workShape{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, local)
	assert.Equal(t, []int{7, 5}, global)
}

func TestResolveWorkShapeDefaultsFitKernelLimit(t *testing.T) {
	global, local, err := resolveWorkShape(testGridLayout, []int{32, 32}, workShape{}, 32)
	require.NoError(t, err)
	assert.Equal(t, []int{16, 2}, local)
	assert.Equal(t, []int{32, 32}, global)

	global, local, err = resolveWorkShape(testListLayout, []int{100}, workShape{}, 32)
	require.NoError(t, err)
	assert.Equal(t, []int{32}, local)
	assert.Equal(t, []int{128}, global)
}

func TestResolveWorkShapePadsListKernels(t *testing.T) {
	global, local, err := resolveWorkShape(testListLayout, []int{100}, workShape{32}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{32}, local)
	assert.Equal(t, []int{128}, global)
}

func TestResolveWorkShapeRejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name    string
		layout  kernelLayout
		problem []int
		shape   workShape
		max     int
	}{
		{"uneven grid partition", testGridLayout, []int{12, 8}, workShape{5, 4}, 0},
		{"non-positive dimension", testGridLayout, []int{12, 8}, workShape{0, 4}, 0},
		{"extra dimension", testGridLayout, []int{16, 16}, workShape{8, 8, 2}, 0},
		{"extra list dimension", testListLayout, []int{16}, workShape{8, 2}, 0},
		{"kernel limit", testGridLayout, []int{32, 32}, workShape{16, 16}, 128},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := resolveWorkShape(tc.layout, tc.problem, tc.shape, tc.max)
			var invalid *InvalidWorkGroupShapeError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tc.layout.Entry, invalid.Kernel)
			assert.Equal(t, tc.problem, invalid.Problem)
		})
	}
}

func TestDispatchKernelArgumentCountMismatch(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	p := newTestPropagator(t, m)
	h, err := p.ctx.Kernel("clist_propagator")
	require.NoError(t, err)

	out := &outputBuffer{Data: make([]float32, 2)}
	_, err = dispatchKernel(p.ctx, h, testListLayout, []any{[]float32{}, int32(0), []float32{0, 0, 0, 0}, out}, []int{1}, workShape{})

	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "argument count", mismatch.What)
	assert.Equal(t, 5, mismatch.Want)
	assert.Equal(t, 4, mismatch.Got)
	assert.Zero(t, testutil.ToFloat64(m.Dispatches.WithLabelValues("clist_propagator")))
}

func TestDispatchKernelOutputStrideMismatch(t *testing.T) {
	p := newTestPropagator(t, nil)
	h, err := p.ctx.Kernel("clist_propagator")
	require.NoError(t, err)

	out := &outputBuffer{Data: make([]float32, 3)}
	args := []any{[]float32{}, int32(0), []float32{0, 0, 0, 0}, int32(1), out}
	_, err = dispatchKernel(p.ctx, h, testListLayout, args, []int{1}, workShape{})

	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "output length", mismatch.What)
}

func TestDispatchEmptyProblemSkipsDevice(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	p := newTestPropagator(t, m)
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}

	res, err := p.Clist(arr, nil, workShape{})
	require.NoError(t, err)
	assert.Zero(t, res.Len())

	res, err = p.Rect(arr, &planeGrid{NU: 0, NV: 4}, workShape{})
	require.NoError(t, err)
	assert.Zero(t, res.Len())

	assert.Zero(t, testutil.ToFloat64(m.Dispatches.WithLabelValues("clist_propagator")))
	assert.Zero(t, testutil.ToFloat64(m.Dispatches.WithLabelValues("rect_propagator")))
}

func TestDispatchCountsLaunches(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	p := newTestPropagator(t, m)
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}

	for i := 0; i < 3; i++ {
		_, err := p.Clist(arr, []vec3{{Z: 0.1}}, workShape{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("clist_propagator")))
}

func TestDispatchHonoursKernelWorkGroupLimit(t *testing.T) {
	p := newTestPropagator(t, nil)
	h, err := p.ctx.Kernel("clist_propagator")
	require.NoError(t, err)
	h.MaxGroup = 32
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}
	pts := make([]vec3, 64)
	for i := range pts {
		pts[i] = vec3{Z: 0.01 * float64(i+1)}
	}

	_, err = p.Clist(arr, pts, workShape{64})

	var invalid *InvalidWorkGroupShapeError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Contains(t, invalid.Reason, "kernel limit of 32")

	res, err := p.Clist(arr, pts, workShape{32})
	require.NoError(t, err)
	assert.Equal(t, 64, res.Len())
}

func TestPlaneKernelRejectsUnevenShape(t *testing.T) {
	p := newTestPropagator(t, nil)
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}
	plane := &planeGrid{U: vec3{X: 0.01}, V: vec3{Y: 0.01}, NU: 10, NV: 10}

	_, err := p.Rect(arr, plane, workShape{4, 4})

	var invalid *InvalidWorkGroupShapeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "rect_propagator", invalid.Kernel)

	res, err := p.Rect(arr, plane, workShape{5, 2})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Len())
}

func TestHemisphereGridPointsOnSphere(t *testing.T) {
	h := hemisphereGrid{Centre: vec3{X: 1}, Radius: 0.5, N: 6}
	pts := h.Points()
	require.Len(t, pts, 36)
	for _, p := range pts {
		assert.InDelta(t, 0.5, p.Sub(h.Centre).Length(), 1e-5)
		assert.GreaterOrEqual(t, p.Z, -1e-6)
	}
}

func TestPlaneGridPoints(t *testing.T) {
	g := planeGrid{Origin: vec3{Z: 1}, U: vec3{X: 1}, V: vec3{Y: 1}, NU: 2, NV: 2}

	assert.Equal(t, []vec3{{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}, g.Points(false))

	hex := g.Points(true)
	assert.InDelta(t, 0.5, hex[2].X, 1e-12)
	assert.InDelta(t, hexRowPitch, hex[2].Y, 1e-12)
}
