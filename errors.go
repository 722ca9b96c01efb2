package main

import (
	"errors"
	"fmt"
	"strings"
)

// Runtime-level conditions that are not part of the typed taxonomy below.
var (
	errRuntimeUnavailable = errors.New("compute runtime unavailable")
	errContextClosed      = errors.New("compute context closed")
	errNotBound           = errors.New("capability not bound to a program")
	errMissingInput       = errors.New("dispatch request is missing an input")
	errInvalidGrid        = errors.New("invalid sample grid size")
)

// DeviceNotFoundError reports a platform or device index outside the
// enumerated range.
type DeviceNotFoundError struct {
	Platform      int
	Device        int
	PlatformCount int
	DeviceCount   int
}

func (e *DeviceNotFoundError) Error() string {
	if e.Platform < 0 || e.Platform >= e.PlatformCount {
		return fmt.Sprintf("platform %d not found (%d platforms available)", e.Platform, e.PlatformCount)
	}
	return fmt.Sprintf("device %d not found on platform %d (%d devices available)", e.Device, e.Platform, e.DeviceCount)
}

// MissingMediumDescriptorError is returned when medium constants are
// required but no medium was supplied.
type MissingMediumDescriptorError struct{}

func (e *MissingMediumDescriptorError) Error() string {
	return "medium descriptor required to render kernel constants"
}

// buildDiagnostic is one compiler message attributed to a source unit.
type buildDiagnostic struct {
	Unit     string
	Line     int
	Column   int
	Severity string
	Message  string
}

func (d buildDiagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Unit, d.Line, d.Column, d.Severity, d.Message)
}

// CompilationError carries the full build log of a failed program build.
type CompilationError struct {
	Device      string
	Log         string
	Diagnostics []buildDiagnostic
}

func (e *CompilationError) Error() string {
	for _, d := range e.Diagnostics {
		if d.Severity == "error" || d.Severity == "fatal error" {
			return "compiling kernels: " + d.String()
		}
	}
	first := strings.TrimSpace(e.Log)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		first = "build failed without a log"
	}
	return "compiling kernels: " + first
}

// Units lists the source units that produced error diagnostics, in log order.
func (e *CompilationError) Units() []string {
	seen := make(map[string]bool)
	var units []string
	for _, d := range e.Diagnostics {
		if d.Severity != "error" && d.Severity != "fatal error" {
			continue
		}
		if !seen[d.Unit] {
			seen[d.Unit] = true
			units = append(units, d.Unit)
		}
	}
	return units
}

// KernelNotFoundError reports a lookup of an entry point the compiled
// program does not define.
type KernelNotFoundError struct {
	Kernel    string
	Available []string
}

func (e *KernelNotFoundError) Error() string {
	return fmt.Sprintf("kernel %q not found in compiled program (have %s)", e.Kernel, strings.Join(e.Available, ", "))
}

// CapabilityBindingError is a registration mismatch between a capability
// and the compiled program. It is always a programming error.
type CapabilityBindingError struct {
	Capability string
	Kernel     string
	Reason     string
	Err        error
}

func (e *CapabilityBindingError) Error() string {
	msg := fmt.Sprintf("binding capability %q", e.Capability)
	if e.Kernel != "" {
		msg += fmt.Sprintf(" to kernel %q", e.Kernel)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CapabilityBindingError) Unwrap() error { return e.Err }

// ShapeMismatchError reports buffers that do not match a kernel's layout.
type ShapeMismatchError struct {
	Kernel string
	What   string
	Want   int
	Got    int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("kernel %s: %s mismatch: want %d, got %d", e.Kernel, e.What, e.Want, e.Got)
}

// DimensionMismatchError reports coordinate slices of unequal length.
type DimensionMismatchError struct {
	X, Y, Z int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("coordinate lengths differ: x=%d y=%d z=%d", e.X, e.Y, e.Z)
}

// InvalidWorkGroupShapeError reports a local work shape the kernel cannot
// be dispatched with.
type InvalidWorkGroupShapeError struct {
	Kernel  string
	Shape   workShape
	Problem []int
	Reason  string
}

func (e *InvalidWorkGroupShapeError) Error() string {
	return fmt.Sprintf("kernel %s: work-group shape %v invalid for problem size %v: %s", e.Kernel, e.Shape, e.Problem, e.Reason)
}
