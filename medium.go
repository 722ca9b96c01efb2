package main

import (
	"fmt"
	"math"
)

// mediumDescriptor holds the scalar medium parameters compiled into the
// kernels. A compiled program never sees a change to it without a rebuild.
type mediumDescriptor struct {
	Wavelength float64
	Wavenumber float64
	Frequency  float64
}

// newMedium derives the wavelength and wavenumber for a tone travelling
// at soundSpeed.
func newMedium(frequency, soundSpeed float64) (*mediumDescriptor, error) {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("invalid emission frequency %v", frequency)
	}
	if soundSpeed <= 0 || math.IsNaN(soundSpeed) || math.IsInf(soundSpeed, 0) {
		return nil, fmt.Errorf("invalid speed of sound %v", soundSpeed)
	}
	wavelength := soundSpeed / frequency
	return &mediumDescriptor{
		Wavelength: wavelength,
		Wavenumber: 2 * math.Pi / wavelength,
		Frequency:  frequency,
	}, nil
}

// vec3 is a point or direction in array space, in metres.
type vec3 struct {
	X, Y, Z float64
}

func (v vec3) Add(o vec3) vec3 { return vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v vec3) Sub(o vec3) vec3 { return vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v vec3) Scale(s float64) vec3 { return vec3{v.X * s, v.Y * s, v.Z * s} }

func (v vec3) Dot(o vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v vec3) Cross(o vec3) vec3 {
	return vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

func (v vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }
