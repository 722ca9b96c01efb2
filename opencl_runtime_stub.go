//go:build !opencl

package main

import "fmt"

func newOpenCLRuntime() (computeRuntime, error) {
	return nil, fmt.Errorf("%w: OpenCL support is not enabled; rebuild with -tags opencl", errRuntimeUnavailable)
}
