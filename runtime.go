package main

import "time"

// computeRuntime is a compute backend: OpenCL when built with the opencl
// tag, the host reference runtime otherwise or on request.
type computeRuntime interface {
	Name() string
	Platforms() ([]platformInfo, error)
	Open(platform, device int, profiling bool) (deviceQueue, error)
}

type platformInfo struct {
	Index   int
	Name    string
	Vendor  string
	Version string
	Devices []deviceInfo
}

type deviceInfo struct {
	Index            int
	Name             string
	Vendor           string
	GlobalMemBytes   int64
	ComputeUnits     int
	ClockMHz         int
	DriverVersion    string
	MaxWorkGroupSize int
	Features         string
}

// deviceQueue is a context plus its single command queue.
type deviceQueue interface {
	Device() deviceInfo
	// Build compiles src. A compiler failure is returned as *buildFailure.
	Build(src string) (deviceProgram, error)
	Release()
}

type deviceProgram interface {
	BuildLog() string
	KernelNames() []string
	Kernel(name string) (deviceKernel, error)
	Release()
}

// deviceKernel launches one entry point. Launch arguments are []float32
// (uploaded read-only), *outputBuffer (read back after completion), int32
// or float32. Launch blocks until results are on the host and releases
// every buffer it created. WorkGroupLimit is the largest work-group the
// compiled kernel accepts on its device.
type deviceKernel interface {
	Name() string
	NumArgs() int
	WorkGroupLimit() int
	Launch(args []any, global, local []int) (time.Duration, error)
	Release()
}

type outputBuffer struct {
	Data []float32
}

// buildFailure carries the raw compiler log of a failed build.
type buildFailure struct {
	Log string
}

func (e *buildFailure) Error() string { return "program build failed" }
