package main

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldAt(res *rawResult, i int) complex128 {
	return complex(float64(res.Data[2*i]), float64(res.Data[2*i+1]))
}

func TestXYTranslatorSingleSource(t *testing.T) {
	tr := newTestTranslator(t)
	k := testMedium(t).Wavenumber
	const area, d = 1e-4, 0.1
	src := &sourceField{Points: []vec3{{}}, Field: []complex64{1}, Area: area}

	res, err := tr.XY(src, []vec3{{Z: d}, {Z: -d}}, workShape{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())

	want := complex(area/(2*math.Pi*d), 0) * complex(1/d, k) * cmplx.Exp(complex(0, -k*d))
	got := fieldAt(res, 0)
	assert.InDelta(t, real(want), real(got), 1e-5)
	assert.InDelta(t, imag(want), imag(got), 1e-5)

	behind := fieldAt(res, 1)
	assert.InDelta(t, -real(got), real(behind), 1e-6)
	assert.InDelta(t, -imag(got), imag(behind), 1e-6)
}

func TestXYZTranslatorMatchesPlanarTranslatorWhenRotated(t *testing.T) {
	tr := newTestTranslator(t)
	planar := &sourceField{Points: []vec3{{}}, Field: []complex64{0.5 - 0.25i}, Area: 2e-5}
	oriented := &sourceField{Points: []vec3{{}}, Normals: []vec3{{X: 1}}, Field: planar.Field, Area: planar.Area}

	a, err := tr.XY(planar, []vec3{{Z: 0.07}}, workShape{})
	require.NoError(t, err)
	b, err := tr.XYZ(oriented, []vec3{{X: 0.07}}, workShape{})
	require.NoError(t, err)

	assert.InDelta(t, a.Data[0], b.Data[0], 1e-6)
	assert.InDelta(t, a.Data[1], b.Data[1], 1e-6)
}

func TestTranslatorSuperposes(t *testing.T) {
	tr := newTestTranslator(t)
	pts := []vec3{{X: 0.01, Z: 0.05}, {Y: -0.02, Z: 0.08}}
	a := &sourceField{Points: []vec3{{X: -0.003}}, Field: []complex64{1}, Area: 1e-5}
	b := &sourceField{Points: []vec3{{X: 0.003}}, Field: []complex64{-0.5i}, Area: 1e-5}
	both := &sourceField{Points: append(a.Points, b.Points...), Field: append(a.Field, b.Field...), Area: 1e-5}

	ra, err := tr.XY(a, pts, workShape{})
	require.NoError(t, err)
	rb, err := tr.XY(b, pts, workShape{})
	require.NoError(t, err)
	rab, err := tr.XY(both, pts, workShape{})
	require.NoError(t, err)

	for i := range pts {
		sum := fieldAt(ra, i) + fieldAt(rb, i)
		assert.InDelta(t, real(sum), real(fieldAt(rab, i)), 1e-6)
		assert.InDelta(t, imag(sum), imag(fieldAt(rab, i)), 1e-6)
	}
}

func TestXYTranslatorReproducesDirectField(t *testing.T) {
	p := newTestPropagator(t, nil)
	tr := newTestTranslator(t)
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}
	const step = 0.0015
	plane := newRectSampler(nil)
	require.NoError(t, plane.SetGrid(planeGrid{
		Origin: vec3{X: -0.06, Y: -0.06, Z: 0.03},
		U:      vec3{X: step},
		V:      vec3{Y: step},
		NU:     80,
		NV:     80,
	}))
	require.NoError(t, plane.Propagate(p, arr, workShape{}))
	src, err := planeSource(plane)
	require.NoError(t, err)
	target := []vec3{{Z: 0.06}}

	direct, err := p.Clist(arr, target, workShape{})
	require.NoError(t, err)
	translated, err := tr.XY(src, target, workShape{})
	require.NoError(t, err)

	want, got := fieldAt(direct, 0), fieldAt(translated, 0)
	assert.Less(t, cmplx.Abs(got-want)/cmplx.Abs(want), 0.08, "direct %v, translated %v", want, got)
}

func TestTranslatorValidatesSource(t *testing.T) {
	tr := newTestTranslator(t)
	pts := []vec3{{Z: 0.05}}

	_, err := tr.XY(nil, pts, workShape{})
	assert.ErrorIs(t, err, errMissingInput)

	_, err = tr.XY(&sourceField{Points: []vec3{{}, {X: 0.01}}, Field: []complex64{1}}, pts, workShape{})
	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "source field length", mismatch.What)

	_, err = tr.XYZ(&sourceField{Points: []vec3{{}}, Field: []complex64{1}}, pts, workShape{})
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "source normals", mismatch.What)
}

func TestPlaneSourceFromPropagatedPlane(t *testing.T) {
	p := newTestPropagator(t, nil)
	arr := &txArray{Elements: []txElement{newOmniElement(vec3{}, 1)}}
	grid := planeGrid{Origin: vec3{Z: 0.05}, U: vec3{X: 0.002}, V: vec3{Y: 0.003}, NU: 4, NV: 2}

	rect := newRectSampler(nil)
	require.NoError(t, rect.SetGrid(grid))
	_, err := planeSource(rect)
	assert.ErrorIs(t, err, errNotPropagated)

	require.NoError(t, rect.Propagate(p, arr, workShape{}))
	src, err := planeSource(rect)
	require.NoError(t, err)
	assert.InDelta(t, 6e-6, src.Area, 1e-12)
	assert.Len(t, src.Field, 8)
	assert.Equal(t, rect.Coordinates(), src.Points)
	require.Len(t, src.Normals, 8)
	for _, n := range src.Normals {
		assert.InDelta(t, 1, n.Z, 1e-12)
		assert.Zero(t, n.X)
		assert.Zero(t, n.Y)
	}

	hex := newHexSampler(nil)
	require.NoError(t, hex.SetGrid(grid))
	require.NoError(t, hex.Propagate(p, arr, workShape{}))
	hsrc, err := planeSource(hex)
	require.NoError(t, err)
	assert.InDelta(t, 6e-6*hexRowPitch, hsrc.Area, 1e-12)
}

func TestClistSamplerTranslatePicksTranslator(t *testing.T) {
	r := &countingRunner{raw: func(req *dispatchRequest) []float32 {
		return make([]float32, 2*len(req.Points))
	}}
	s := newClistSampler(nil)
	require.NoError(t, s.AddPoints([]float64{0}, []float64{0}, []float64{0.1}))

	require.NoError(t, s.Translate(r, &sourceField{Points: []vec3{{}}, Field: []complex64{1}}, workShape{}))
	require.NoError(t, s.Translate(r, &sourceField{Points: []vec3{{}}, Normals: []vec3{{Z: 1}}, Field: []complex64{1}}, workShape{}))

	assert.Equal(t, []string{"xy_translator", "xyz_translator"}, r.names)
	assert.Equal(t, samplerPropagated, s.State())
}

func TestTranslatorRegistersBothCapabilities(t *testing.T) {
	tr := newTestTranslator(t)
	assert.Equal(t, []string{"xy_translator", "xyz_translator"}, tr.Capabilities())
	assert.Equal(t, []string{"common", "xy_translator", "xyz_translator"}, tr.ctx.Units()[1:])
}
