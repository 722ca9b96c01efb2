package main

import "flag"

// Command-line flags that control device selection, the propagated scene
// and runtime diagnostics.
var (
	// backendFlag chooses the compute runtime: opencl, host or auto.
	backendFlag = flag.String("backend", "auto", "compute backend: auto, opencl or host")

	// platformFlag and deviceFlag override the persisted device choice.
	platformFlag = flag.Int("platform", -1, "compute platform index (default: persisted preference or 0)")
	deviceFlag   = flag.Int("device", -1, "compute device index on the platform")

	// listDevicesFlag prints every platform and device and exits.
	listDevicesFlag = flag.Bool("list-devices", false, "list compute platforms and devices, then exit")

	// selectDeviceFlag validates -platform/-device and persists them.
	selectDeviceFlag = flag.Bool("select-device", false, "validate -platform/-device and save them as the preferred device")

	prefsFlag = flag.String("prefs", defaultPreferenceFile, "device preference file")

	frequencyFlag  = flag.Float64("frequency", defaultFrequency, "emission frequency in Hz")
	soundSpeedFlag = flag.Float64("sound-speed", defaultSoundSpeed, "speed of sound in the medium in m/s")

	// requireMediumFlag makes a missing medium a hard error instead of
	// compiling with math constants only.
	requireMediumFlag = flag.Bool("require-medium", false, "fail instead of compiling without medium constants")

	arraySideFlag = flag.Int("array-side", defaultArraySide, "elements per side of the square array")
	focusZFlag    = flag.Float64("focus-z", defaultFocusZ, "height of the focal point above the array in m")

	// samplerFlag picks the sample geometry: clist, rect, hex or lambert.
	samplerFlag = flag.String("sampler", "rect", "sample geometry: clist, rect, hex, lambert or translate")
	cellsFlag   = flag.Int("cells", defaultPlaneCells, "grid cells per side for rect, hex and lambert samplers")

	// viewFlag opens an interactive window instead of printing a summary.
	viewFlag = flag.Bool("view", false, "show the field in a window; WASD/QE move the focus")

	// profileFlag enables device-side timing of every dispatch.
	profileFlag = flag.Bool("profile", false, "record device time for every dispatch")

	metricsAddrFlag = flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	logLevelFlag    = flag.String("log-level", "info", "log level: debug, info, warn or error")
	cpuProfileFlag  = flag.String("cpuprofile", "", "write a CPU profile to this file")

	// debugFlag enables the FPS and dispatch timing overlay in the viewer.
	debugFlag = flag.Bool("debug", false, "show FPS and dispatch timing overlay")
)
