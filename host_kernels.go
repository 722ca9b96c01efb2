package main

import "math"

// standardHostKernels mirrors the entry points in kernels/*.cl. The bodies
// follow the device code in float32 so results agree to device precision.
func standardHostKernels() map[string]hostKernelFunc {
	return map[string]hostKernelFunc{
		"clist_propagator": hostClistPropagator,
		"rect_propagator":  hostPlanePropagator(false),
		"hex_propagator":   hostPlanePropagator(true),
		"lamb_propagator":  hostLambPropagator,
		"xy_translator":    hostXYTranslator,
		"xyz_translator":   hostXYZTranslator,
		"sf_solver":        hostSingleFocusSolver,
	}
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func hostElementContribution(tx []float32, e int, p [3]float32, k float32) (float32, float32) {
	el := tx[e*txStride : (e+1)*txStride]
	if el[15] == 0 {
		return 0, 0
	}
	dx := p[0] - el[0]
	dy := p[1] - el[1]
	dz := p[2] - el[2]
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	cosTheta := (dx*el[3] + dy*el[4] + dz*el[5]) / dist
	theta := float32(math.Acos(float64(clamp32(cosTheta, -1, 1))))
	dirAmp := el[12] + el[13]*theta + el[14]*theta*theta
	phase := el[10] + el[11]*theta - k*dist
	mag := el[9] * dirAmp / dist
	s, c := math.Sincos(float64(phase))
	return mag * float32(c), mag * float32(s)
}

func hostArrayPressure(tx []float32, count int, p [3]float32, k float32) (float32, float32) {
	var re, im float32
	for e := 0; e < count; e++ {
		r, i := hostElementContribution(tx, e, p, k)
		re += r
		im += i
	}
	return re, im
}

func hostClistPropagator(c *hostCall, x, _ int) {
	if x >= c.intArg(3) {
		return
	}
	pts := c.input(2)
	p := [3]float32{pts[4*x], pts[4*x+1], pts[4*x+2]}
	out := c.output(4)
	out[2*x], out[2*x+1] = hostArrayPressure(c.input(0), c.intArg(1), p, c.constant("medium_wavenumber"))
}

func hostPlanePropagator(hex bool) hostKernelFunc {
	return func(c *hostCall, i, j int) {
		nu, nv := c.intArg(3), c.intArg(4)
		if i >= nu || j >= nv {
			return
		}
		plane := c.input(2)
		fi, fj := float32(i), float32(j)
		if hex {
			if j&1 == 1 {
				fi += 0.5
			}
			fj *= 0.8660254
		}
		var p [3]float32
		for a := 0; a < 3; a++ {
			p[a] = plane[a] + fi*plane[4+a] + fj*plane[8+a]
		}
		out := c.output(5)
		idx := j*nu + i
		out[2*idx], out[2*idx+1] = hostArrayPressure(c.input(0), c.intArg(1), p, c.constant("medium_wavenumber"))
	}
}

func hostLambPropagator(c *hostCall, i, j int) {
	n := c.intArg(3)
	if i >= n || j >= n {
		return
	}
	out := c.output(4)
	idx := j*n + i
	X, Y := lambertGridPoint(i, j, n, c.constant("root_2"))
	rho2 := X*X + Y*Y
	if rho2 > 2 {
		nan := float32(math.NaN())
		out[2*idx], out[2*idx+1] = nan, nan
		return
	}
	s := float32(math.Sqrt(float64(1 - rho2/4)))
	hemi := c.input(2)
	radius := hemi[4]
	dir := [3]float32{s * X, s * Y, 1 - rho2/2}
	var p [3]float32
	for a := 0; a < 3; a++ {
		p[a] = hemi[a] + radius*dir[a]
	}
	out[2*idx], out[2*idx+1] = hostArrayPressure(c.input(0), c.intArg(1), p, c.constant("medium_wavenumber"))
}

// lambertGridPoint maps grid cell (i, j) of an n by n grid onto the
// projection square [-root2, root2]^2.
func lambertGridPoint(i, j, n int, root2 float32) (float32, float32) {
	if n <= 1 {
		return 0, 0
	}
	step := 2 / float32(n-1)
	return (float32(i)*step - 1) * root2, (float32(j)*step - 1) * root2
}

func hostSingleFocusSolver(c *hostCall, e, _ int) {
	count := c.intArg(1)
	if e >= count {
		return
	}
	el := c.input(0)[e*txStride : (e+1)*txStride]
	f := c.input(2)
	dx, dy, dz := f[0]-el[0], f[1]-el[1], f[2]-el[2]
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	var amplitude float32
	if el[15] != 0 {
		amplitude = 1
	}
	k, tau := c.constant("medium_wavenumber"), c.constant("tau")
	phase := float32(math.Mod(float64(k*dist), float64(tau)))
	out := c.output(3)
	out[2*e], out[2*e+1] = amplitude, phase
}

// hostHuygensContribution is huygens_contribution from common.cl. src
// carries the sample area in src[3].
func hostHuygensContribution(src [4]float32, n, p [3]float32, re, im, k, tau float32) (float32, float32) {
	dx := p[0] - src[0]
	dy := p[1] - src[1]
	dz := p[2] - src[2]
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	if dist == 0 {
		return 0, 0
	}
	cosTheta := (dx*n[0] + dy*n[1] + dz*n[2]) / dist
	gain := src[3] * cosTheta / (tau * dist)
	wr, wi := gain/dist, gain*k
	vr, vi := wr*re-wi*im, wr*im+wi*re
	s, c := math.Sincos(float64(-k * dist))
	return vr*float32(c) - vi*float32(s), vr*float32(s) + vi*float32(c)
}

func hostXYTranslator(c *hostCall, x, _ int) {
	if x >= c.intArg(5) {
		return
	}
	src, field, pts := c.input(0), c.input(1), c.input(4)
	area := c.floatArg(3)
	k, tau := c.constant("translation_medium_wavenumber"), c.constant("tau")
	p := [3]float32{pts[4*x], pts[4*x+1], pts[4*x+2]}
	n := [3]float32{0, 0, 1}
	var re, im float32
	for j := 0; j < c.intArg(2); j++ {
		s := [4]float32{src[4*j], src[4*j+1], src[4*j+2], area}
		r, i := hostHuygensContribution(s, n, p, field[2*j], field[2*j+1], k, tau)
		re += r
		im += i
	}
	out := c.output(6)
	out[2*x], out[2*x+1] = re, im
}

func hostXYZTranslator(c *hostCall, x, _ int) {
	if x >= c.intArg(4) {
		return
	}
	src, field, pts := c.input(0), c.input(1), c.input(3)
	k, tau := c.constant("translation_medium_wavenumber"), c.constant("tau")
	p := [3]float32{pts[4*x], pts[4*x+1], pts[4*x+2]}
	var re, im float32
	for j := 0; j < c.intArg(2); j++ {
		rec := src[8*j : 8*j+8]
		s := [4]float32{rec[0], rec[1], rec[2], rec[3]}
		n := [3]float32{rec[4], rec[5], rec[6]}
		r, i := hostHuygensContribution(s, n, p, field[2*j], field[2*j+1], k, tau)
		re += r
		im += i
	}
	out := c.output(5)
	out[2*x], out[2*x+1] = re, im
}
