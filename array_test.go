package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxArrayPackLayout(t *testing.T) {
	e := txElement{
		Position:           vec3{X: 1, Y: 2, Z: 3},
		Normal:             vec3{Z: 1},
		Tangent:            vec3{X: 1},
		Amplitude:          0.5,
		Phase:              1.25,
		DirectivityPhaseC1: 0.1,
		DirectivityAmp:     [3]float64{1, -0.5, 0.25},
		Enabled:            true,
	}
	buf := (&txArray{Elements: []txElement{e, {}}}).pack()

	require.Len(t, buf, 2*txStride)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 1, 1, 0, 0, 0.5, 1.25, 0.1, 1, -0.5, 0.25, 1}, buf[:txStride])
	assert.Equal(t, float32(0), buf[txStride+15])
}

func TestTxArrayWithDrive(t *testing.T) {
	arr := newRectArray(2, 1, 0.01)
	driven, err := arr.withDrive([]elementDrive{{Amplitude: 0.5, Phase: 1}, {Amplitude: 0, Phase: 2}})
	require.NoError(t, err)

	assert.Equal(t, 0.5, driven.Elements[0].Amplitude)
	assert.Equal(t, 2.0, driven.Elements[1].Phase)
	assert.Equal(t, 1.0, arr.Elements[0].Amplitude, "source array must not change")

	_, err = arr.withDrive([]elementDrive{{}})
	var mismatch *ShapeMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestNewRectArrayIsCentred(t *testing.T) {
	arr := newRectArray(4, 3, 0.01)
	require.Equal(t, 12, arr.Len())

	var sum vec3
	for _, e := range arr.Elements {
		sum = sum.Add(e.Position)
		assert.True(t, e.Enabled)
	}
	assert.InDelta(t, 0, sum.X, 1e-12)
	assert.InDelta(t, 0, sum.Y, 1e-12)
	assert.InDelta(t, 0.03, arr.Elements[3].Position.X-arr.Elements[0].Position.X, 1e-12)
}

func TestNilArray(t *testing.T) {
	var arr *txArray
	assert.Zero(t, arr.Len())
	assert.Nil(t, arr.pack())
}
