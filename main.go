package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/cmplx"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	flag.Parse()
	runtime.GOMAXPROCS(runtime.NumCPU())
	logger := newLogger(os.Stderr, *logLevelFlag)
	slog.SetDefault(logger)

	if err := runProfiled(os.Stdout, logger, *cpuProfileFlag); err != nil {
		logger.Error("beamfield failed", "error", err)
		os.Exit(1)
	}
}

// runProfiled wraps run in a CPU profile when profilePath is set. The
// profile is flushed before it returns, whatever run returned.
func runProfiled(out io.Writer, logger *slog.Logger, profilePath string) error {
	if profilePath != "" {
		prof, err := startCPUProfile(profilePath, logger)
		if err != nil {
			logger.Error("CPU profiling unavailable", "error", err)
		} else {
			defer prof.Stop()
		}
	}
	return run(out, logger)
}

func run(out io.Writer, logger *slog.Logger) error {
	rt, err := selectRuntime(*backendFlag, logger)
	if err != nil {
		return err
	}
	if *listDevicesFlag {
		platforms, err := enumerateDevices(rt)
		if err != nil {
			return err
		}
		return writeDeviceReport(out, platforms)
	}
	if *selectDeviceFlag {
		desc, err := selectAndPersist(rt, *prefsFlag, max(*platformFlag, 0), max(*deviceFlag, 0))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "saved %s to %s\n", desc, *prefsFlag)
		return err
	}

	sel, err := commandLineSelection(*prefsFlag)
	if err != nil {
		return err
	}
	medium, err := newMedium(*frequencyFlag, *soundSpeedFlag)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	if *metricsAddrFlag != "" {
		srv := serveMetrics(*metricsAddrFlag, reg, logger)
		defer srv.Close()
	}
	policy := policyMathOnly
	if *requireMediumFlag {
		policy = policyRequireMedium
	}
	cfg := contextConfig{
		Selection: sel,
		Medium:    medium,
		Policy:    policy,
		Profiling: *profileFlag,
		Logger:    logger,
		Metrics:   m,
	}

	prop, err := newPropagator(rt, cfg)
	if err != nil {
		return err
	}
	defer prop.Close()
	solve, err := newSolver(rt, cfg)
	if err != nil {
		return err
	}
	defer solve.Close()

	arr := newRectArray(*arraySideFlag, *arraySideFlag, defaultArrayPitch)
	focus := vec3{Z: *focusZFlag}
	if *viewFlag {
		view, err := newFieldView(prop, solve, arr, focus, *cellsFlag, defaultPlaneSize, m, logger)
		if err != nil {
			return err
		}
		return runViewer(view)
	}

	drives, err := solve.SingleFocus(arr, focus, workShape{})
	if err != nil {
		return err
	}
	driven, err := arr.withDrive(drives)
	if err != nil {
		return err
	}
	var trans *translator
	if *samplerFlag == "translate" {
		trans, err = newTranslator(rt, cfg)
		if err != nil {
			return err
		}
		defer trans.Close()
	}
	s, err := sampleScene(prop, trans, driven, *samplerFlag, *cellsFlag, focus, m)
	if err != nil {
		return err
	}
	return writeFieldSummary(out, *samplerFlag, s)
}

// selectRuntime resolves the -backend flag. auto prefers OpenCL and falls
// back to the host runtime.
func selectRuntime(name string, logger *slog.Logger) (computeRuntime, error) {
	switch name {
	case "host":
		return newHostRuntime(), nil
	case "opencl":
		return newOpenCLRuntime()
	case "auto":
		rt, err := newOpenCLRuntime()
		if err == nil {
			return rt, nil
		}
		logger.Warn("OpenCL unavailable, using host runtime", "error", err)
		return newHostRuntime(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want auto, opencl or host)", name)
}

// commandLineSelection prefers -platform/-device over the preference file.
func commandLineSelection(prefs string) (deviceSelection, error) {
	if *platformFlag >= 0 || *deviceFlag >= 0 {
		return explicitSelection(max(*platformFlag, 0), max(*deviceFlag, 0)), nil
	}
	return selectionFromPreference(prefs)
}

// fieldSampler is the part of every sampler the summary reads.
type fieldSampler interface {
	Coordinates() []vec3
	Field() []complex64
	Sanitized() int
	Volume() float64
}

// sampleScene propagates the driven array over the requested geometry.
// translate propagates to a plane halfway to the focus and carries that
// field up the axis; it needs trans.
func sampleScene(prop *propagator, trans *translator, arr *txArray, kind string, cells int, focus vec3, m *metrics) (fieldSampler, error) {
	half := defaultPlaneSize / 2
	step := defaultPlaneSize / float64(cells)
	switch kind {
	case "clist":
		s := newClistSampler(m)
		xs, ys, zs := make([]float64, cells), make([]float64, cells), make([]float64, cells)
		for i := range zs {
			zs[i] = float64(i+1) * step
		}
		if err := s.AddPoints(xs, ys, zs); err != nil {
			return nil, err
		}
		return s, s.Propagate(prop, arr, workShape{})
	case "rect", "hex":
		s := newRectSampler(m)
		if kind == "hex" {
			s = newHexSampler(m)
		}
		grid := planeGrid{
			Origin: vec3{X: -half, Y: -half, Z: focus.Z},
			U:      vec3{X: step},
			V:      vec3{Y: step},
			NU:     cells,
			NV:     cells,
		}
		if err := s.SetGrid(grid); err != nil {
			return nil, err
		}
		return s, s.Propagate(prop, arr, workShape{})
	case "lambert":
		s := newLambertSampler(m)
		if err := s.SetHemisphere(hemisphereGrid{Radius: focus.Z, N: cells}); err != nil {
			return nil, err
		}
		return s, s.Propagate(prop, arr, workShape{})
	case "translate":
		if trans == nil {
			return nil, fmt.Errorf("sampler %q needs a translator", kind)
		}
		z0 := focus.Z / 2
		plane := newRectSampler(m)
		grid := planeGrid{
			Origin: vec3{X: -half, Y: -half, Z: z0},
			U:      vec3{X: step},
			V:      vec3{Y: step},
			NU:     cells,
			NV:     cells,
		}
		if err := plane.SetGrid(grid); err != nil {
			return nil, err
		}
		if err := plane.Propagate(prop, arr, workShape{}); err != nil {
			return nil, err
		}
		src, err := planeSource(plane)
		if err != nil {
			return nil, err
		}
		// The plane faces +z, so the planar translator applies.
		src.Normals = nil
		s := newClistSampler(m)
		xs, ys, zs := make([]float64, cells), make([]float64, cells), make([]float64, cells)
		for i := range zs {
			zs[i] = z0 + float64(i+1)*focus.Z/float64(cells)
		}
		if err := s.AddPoints(xs, ys, zs); err != nil {
			return nil, err
		}
		return s, s.Translate(trans, src, workShape{})
	}
	return nil, fmt.Errorf("unknown sampler %q (want clist, rect, hex, lambert or translate)", kind)
}

func writeFieldSummary(w io.Writer, kind string, s fieldSampler) error {
	coords, field := s.Coordinates(), s.Field()
	peak, at := 0.0, vec3{}
	for i, p := range field {
		if m := cmplx.Abs(complex128(p)); m > peak {
			peak, at = m, coords[i]
		}
	}
	_, err := fmt.Fprintf(w,
		"sampler:   %s\npoints:    %d\npeak |p|:  %.4g at (%.4f, %.4f, %.4f)\nsanitized: %d\nvolume:    %.4g m^3\n",
		kind, len(coords), peak, at.X, at.Y, at.Z, s.Sanitized(), s.Volume())
	return err
}
