package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileHostReportsUndeclaredConstants(t *testing.T) {
	src := strings.Join([]string{
		"#define tau 6.2831855f",
		"// medium_wavenumber in a comment is fine",
		"float f(float d) { return tau * medium_wavenumber * d; }",
		"#define medium_wavenumber 732.7f",
		"float g(float d) { return medium_wavenumber * d; }",
	}, "\n")

	prog, log := compileHost(src, knownConstantNames(), nil)

	require.Len(t, log, 1)
	assert.Equal(t, "<source>:3:33: error: use of undeclared identifier 'medium_wavenumber'", log[0])
	assert.InDelta(t, 6.2831855, prog.defines["tau"], 1e-6)
	assert.InDelta(t, 732.7, prog.defines["medium_wavenumber"], 1e-4)
}

func TestHostQueueBuildFailure(t *testing.T) {
	rt := newHostRuntime()
	q, err := rt.Open(0, 0, false)
	require.NoError(t, err)
	defer q.Release()

	_, err = q.Build("float x = medium_wavelength;\n")

	var failure *buildFailure
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, failure.Log, "'medium_wavelength'")
}

func TestHostRuntimeOpenValidatesIndices(t *testing.T) {
	_, err := newHostRuntime().Open(0, 1, false)
	var notFound *DeviceNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestHostKernelLaunchChecksArguments(t *testing.T) {
	rt := newHostRuntime()
	rt.registerKernel("scale", func(c *hostCall, x, _ int) {
		c.output(1)[x] = c.input(0)[x] * c.constant("factor")
	})
	q, err := rt.Open(0, 0, false)
	require.NoError(t, err)
	prog, err := q.Build("#define factor 3.0f\n__kernel void scale(__global const float* in, __global float* out) {}\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"scale"}, prog.KernelNames())

	k, err := prog.Kernel("scale")
	require.NoError(t, err)
	assert.Equal(t, 2, k.NumArgs())

	out := &outputBuffer{Data: make([]float32, 4)}
	_, err = k.Launch([]any{[]float32{1, 2, 3, 4}, out}, []int{4}, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6, 9, 12}, out.Data)

	_, err = k.Launch([]any{out, []float32{1}}, []int{4}, []int{2})
	assert.Error(t, err)
	_, err = k.Launch([]any{[]float32{1}}, []int{4}, []int{2})
	assert.Error(t, err)
	_, err = k.Launch([]any{[]float32{1, 2, 3, 4}, out}, []int{4}, []int{3})
	assert.Error(t, err)

	_, err = prog.Kernel("missing")
	assert.Error(t, err)
}

func TestHostKernelWithoutImplementationFailsBuild(t *testing.T) {
	q, err := newHostRuntime().Open(0, 0, false)
	require.NoError(t, err)

	_, err = q.Build("#define unused 1.0f\n__kernel void orphan(const int n) {}\n")

	var failure *buildFailure
	require.True(t, errors.As(err, &failure), "got %v", err)
	assert.Equal(t, "<source>:2:15: error: no host implementation for kernel 'orphan'", failure.Log)
}

func TestCompileHostReportsUnknownIdentifiers(t *testing.T) {
	src := strings.Join([]string{
		"#define tau 6.2831855f",
		"float gain(float d) { return undefined_gain * tau * d; }",
		"float4 p = (float4)(0.0f, 1.5e-3f, 2.0f, 0.0f); float z = p.z;",
	}, "\n")

	_, log := compileHost(src, nil, nil)

	assert.Equal(t, []string{"<source>:2:30: error: use of undeclared identifier 'undefined_gain'"}, log)
}

func TestCompileHostReportsUseBeforeDefine(t *testing.T) {
	src := "float f(float d) { return gain_scale * d; }\n#define gain_scale 2.0f\nfloat g(float d) { return gain_scale * d; }\n"

	prog, log := compileHost(src, nil, nil)

	assert.Equal(t, []string{"<source>:1:27: error: use of undeclared identifier 'gain_scale'"}, log)
	assert.InDelta(t, 2.0, prog.defines["gain_scale"], 1e-9)
}

func TestCompileHostAcceptsKernelLibrary(t *testing.T) {
	block, err := renderConstants(testMedium(t), policyMathOnly, nil)
	require.NoError(t, err)
	src, err := assembleSource(block, loadUnits(t, kernelLibraryOrder...))
	require.NoError(t, err)

	prog, log := compileHost(src.Text, knownConstantNames(), standardHostKernels())

	assert.Empty(t, log)
	assert.Len(t, prog.sigs, len(standardHostKernels()))
}

func TestHostKernelReportsWorkGroupLimit(t *testing.T) {
	rt := newHostRuntime()
	rt.registerKernel("noop", func(*hostCall, int, int) {})
	q, err := rt.Open(0, 0, false)
	require.NoError(t, err)
	prog, err := q.Build("__kernel void noop(const int n) {}\n")
	require.NoError(t, err)
	k, err := prog.Kernel("noop")
	require.NoError(t, err)

	assert.Equal(t, rt.device.MaxWorkGroupSize, k.WorkGroupLimit())
}

func TestHostDeviceInfo(t *testing.T) {
	platforms, err := newHostRuntime().Platforms()
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	require.Len(t, platforms[0].Devices, 1)
	d := platforms[0].Devices[0]
	assert.Contains(t, d.Name, "CPU")
	assert.Positive(t, d.ComputeUnits)
}
