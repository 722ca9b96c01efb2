package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSourceOrderAndSpans(t *testing.T) {
	constants := constantBlock{Defs: []constantDef{{Name: "tau", Value: 1}, {Name: "root_2", Value: 2}}}
	units := []kernelSource{
		{Name: "a", Text: "line a1\nline a2\n"},
		{Name: "b", Text: "line b1"},
	}
	src, err := assembleSource(constants, units)
	require.NoError(t, err)

	assert.Equal(t, []string{constantsUnit, "a", "b"}, src.Units())
	assert.True(t, strings.HasPrefix(src.Text, "#define tau"))
	assert.True(t, strings.HasSuffix(src.Text, "line b1\n"))

	unit, line, ok := src.locate(3)
	require.True(t, ok)
	assert.Equal(t, "a", unit)
	assert.Equal(t, 1, line)

	unit, line, ok = src.locate(5)
	require.True(t, ok)
	assert.Equal(t, "b", unit)
	assert.Equal(t, 1, line)

	_, _, ok = src.locate(6)
	assert.False(t, ok)
}

func TestAssembleSourceRejectsBadUnits(t *testing.T) {
	_, err := assembleSource(constantBlock{}, []kernelSource{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)

	_, err = assembleSource(constantBlock{}, []kernelSource{{Text: "x"}})
	assert.Error(t, err)

	_, err = assembleSource(constantBlock{}, []kernelSource{{Name: constantsUnit, Text: "x"}})
	assert.Error(t, err)
}

func TestKernelLibraryLoads(t *testing.T) {
	for i, name := range kernelLibraryOrder {
		src, err := loadKernelSource(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, src.Text)
		assert.Equal(t, i, libraryRank(name))
	}
	assert.Equal(t, len(kernelLibraryOrder), libraryRank("user_unit"))

	_, err := loadKernelSource("missing")
	assert.Error(t, err)
}

func TestParseKernelSignatures(t *testing.T) {
	units := loadUnits(t, "clist_propagator", "rect_propagator", "sf_solver")
	var all []kernelSignature
	for _, u := range units {
		all = append(all, parseKernelSignatures(u.Text)...)
	}
	require.Len(t, all, 3)

	clist := all[0]
	assert.Equal(t, "clist_propagator", clist.Name)
	require.Len(t, clist.Params, 5)
	assert.Equal(t, []paramKind{paramInput, paramInt, paramInput, paramInt, paramOutput},
		[]paramKind{clist.Params[0].Kind, clist.Params[1].Kind, clist.Params[2].Kind, clist.Params[3].Kind, clist.Params[4].Kind})
	assert.Equal(t, "pressure", clist.Params[4].Name)

	assert.Equal(t, "rect_propagator", all[1].Name)
	assert.Len(t, all[1].Params, 6)
	assert.Equal(t, "sf_solver", all[2].Name)
	assert.Len(t, all[2].Params, 4)
}

func TestParseKernelSignaturesIgnoresComments(t *testing.T) {
	src := "// __kernel void ghost(int a)\n/* __kernel void other(int b) */\n__kernel void real(const float scale, __global float* out) {}\n"
	sigs := parseKernelSignatures(src)
	require.Len(t, sigs, 1)
	assert.Equal(t, "real", sigs[0].Name)
	assert.Equal(t, paramFloat, sigs[0].Params[0].Kind)
	assert.Equal(t, paramOutput, sigs[0].Params[1].Kind)
}

func TestStripCommentsKeepsLines(t *testing.T) {
	src := "a // x\n/* b\nc */ d\n"
	out := stripComments(src)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
	assert.NotContains(t, out, "x")
	assert.Contains(t, out, "d")
	assert.NotContains(t, out, "c")
}

func TestParseBuildLogMapsUnits(t *testing.T) {
	constants := constantBlock{Defs: []constantDef{{Name: "tau", Value: 1}}}
	src, err := assembleSource(constants, []kernelSource{
		{Name: "common", Text: "one\ntwo\n"},
		{Name: "clist_propagator", Text: "three\nfour\n"},
	})
	require.NoError(t, err)

	log := strings.Join([]string{
		"<kernel>:5:12: error: use of undeclared identifier 'medium_wavenumber'",
		"    float phase = medium_wavenumber;",
		"<kernel>:2:1: warning: unused variable",
		"<kernel>:99:1: error: past the end",
	}, "\n")
	diags := parseBuildLog(log, src)
	require.Len(t, diags, 3)

	assert.Equal(t, buildDiagnostic{Unit: "clist_propagator", Line: 2, Column: 12, Severity: "error",
		Message: "use of undeclared identifier 'medium_wavenumber'"}, diags[0])
	assert.Equal(t, "common", diags[1].Unit)
	assert.Equal(t, 1, diags[1].Line)
	assert.Equal(t, "<unknown>", diags[2].Unit)
	assert.Equal(t, 99, diags[2].Line)

	cerr := &CompilationError{Log: log, Diagnostics: diags}
	assert.Equal(t, []string{"clist_propagator", "<unknown>"}, cerr.Units())
	assert.Contains(t, cerr.Error(), "clist_propagator:2:12")
}

func TestCompilationErrorWithoutDiagnostics(t *testing.T) {
	cerr := &CompilationError{Log: "\nsomething broke\nmore"}
	assert.Equal(t, "compiling kernels: something broke", cerr.Error())
	assert.Empty(t, cerr.Units())
}
