package main

import "time"

// Physical, dispatch and viewer defaults used throughout the application.
const (
	defaultFrequency      = 40000.0
	defaultSoundSpeed     = 343.0
	defaultArraySide      = 16
	defaultArrayPitch     = 0.0103
	defaultFocusZ         = 0.1
	defaultPlaneSize      = 0.2
	defaultPlaneCells     = 128
	defaultListLocalSize  = 64
	defaultPreferenceFile = "cl_platform_config.yaml"
	defaultMetricsPath    = "/metrics"
	metricsShutdownWait   = 2 * time.Second
	viewerScale           = 4
	focusStep             = 0.002
)

// defaultGridLocalSizes are tried in order for each grid dimension; the
// first one dividing the dimension is used.
var defaultGridLocalSizes = []int{16, 8, 4, 2, 1}
