package main

import (
	"fmt"
	"regexp"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/cpu"
)

// hostKernelFunc executes one work item at (x, y) of a host dispatch.
type hostKernelFunc func(c *hostCall, x, y int)

// hostRuntime runs the kernel library on the CPU. It exposes one platform
// with one device and builds programs with a lightweight front end that
// resolves #define constants, reports undeclared constant symbols the way
// device compilers do, and maps __kernel entry points to Go functions. An
// entry point with no Go function is a build error.
type hostRuntime struct {
	device  deviceInfo
	kernels map[string]hostKernelFunc
	watch   []string
	workers int
}

func newHostRuntime() *hostRuntime {
	return &hostRuntime{
		device:  hostDeviceInfo(),
		kernels: standardHostKernels(),
		watch:   knownConstantNames(),
		workers: goruntime.NumCPU(),
	}
}

// registerKernel installs or replaces the Go body of an entry point.
func (r *hostRuntime) registerKernel(name string, fn hostKernelFunc) {
	r.kernels[name] = fn
}

func (r *hostRuntime) Name() string { return "host" }

func (r *hostRuntime) Platforms() ([]platformInfo, error) {
	return []platformInfo{{
		Index:   0,
		Name:    "Host",
		Vendor:  "beamfield",
		Version: goruntime.Version(),
		Devices: []deviceInfo{r.device},
	}}, nil
}

func (r *hostRuntime) Open(platform, device int, _ bool) (deviceQueue, error) {
	if platform != 0 || device != 0 {
		return nil, &DeviceNotFoundError{Platform: platform, Device: device, PlatformCount: 1, DeviceCount: 1}
	}
	return &hostQueue{rt: r}, nil
}

func hostDeviceInfo() deviceInfo {
	return deviceInfo{
		Index:            0,
		Name:             fmt.Sprintf("%s/%s CPU", goruntime.GOOS, goruntime.GOARCH),
		Vendor:           "beamfield",
		ComputeUnits:     goruntime.NumCPU(),
		DriverVersion:    goruntime.Version(),
		MaxWorkGroupSize: 1024,
		Features:         hostFeatures(),
	}
}

func hostFeatures() string {
	var f []string
	switch goruntime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 {
			f = append(f, "sse4.1")
		}
		if cpu.X86.HasAVX {
			f = append(f, "avx")
		}
		if cpu.X86.HasAVX2 {
			f = append(f, "avx2")
		}
		if cpu.X86.HasFMA {
			f = append(f, "fma")
		}
		if cpu.X86.HasAVX512F {
			f = append(f, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			f = append(f, "asimd")
		}
		if cpu.ARM64.HasFPHP {
			f = append(f, "fp16")
		}
	}
	return strings.Join(f, " ")
}

type hostQueue struct {
	rt *hostRuntime
}

func (q *hostQueue) Device() deviceInfo { return q.rt.device }

func (q *hostQueue) Build(src string) (deviceProgram, error) {
	prog, log := compileHost(src, q.rt.watch, q.rt.kernels)
	if len(log) > 0 {
		return nil, &buildFailure{Log: strings.Join(log, "\n")}
	}
	prog.rt = q.rt
	return prog, nil
}

func (q *hostQueue) Release() {}

var (
	identPattern = regexp.MustCompile(`[A-Za-z_]\w*`)
	declPattern  = regexp.MustCompile(`\b(?:` + strings.Join(hostScalarTypes, "|") + `)\b\s*\*?\s*([A-Za-z_]\w*)`)
)

var hostScalarTypes = []string{
	"void", "bool", "char", "short", "int", "uint", "long", "float", "float2", "float3",
	"float4", "float8", "double", "half", "size_t",
}

// hostBuiltins are the keywords, qualifiers and library names of OpenCL C
// the front end accepts without a declaration.
var hostBuiltins = strings.Fields(`
	__kernel kernel __global global __local local __constant constant __private private
	const restrict volatile if else for while do return break continue switch case default
	sizeof struct typedef unsigned signed static inline true false
	NAN INFINITY MAXFLOAT M_PI M_PI_F
	get_global_id get_local_id get_group_id get_global_size get_local_size get_num_groups
	get_work_dim barrier CLK_LOCAL_MEM_FENCE CLK_GLOBAL_MEM_FENCE
	sqrt rsqrt cos sin tan acos asin atan atan2 exp log pow fabs fmin fmax fmod floor ceil
	round clamp min max mix dot cross length normalize distance sincos hypot isnan isinf
	vload2 vload4 vstore2 vstore4 native_sin native_cos native_sqrt convert_float convert_int`)

// compileHost returns the program and any error diagnostics, formatted
// with global line numbers like a device compiler would. An identifier
// that is neither a builtin nor declared anywhere in src is undeclared. A
// watched symbol, or one #define'd anywhere in src, is undeclared wherever
// it is used above its definition. Entry points without a Go body in impls
// fail the build.
func compileHost(src string, watch []string, impls map[string]hostKernelFunc) (*hostProgram, []string) {
	stripped := stripComments(src)
	lines := strings.Split(stripped, "\n")
	watched := make(map[string]bool, len(watch))
	for _, w := range watch {
		watched[w] = true
	}
	for name := range sourceDefines(src) {
		watched[name] = true
	}
	known := make(map[string]bool, len(hostBuiltins)+len(hostScalarTypes))
	for _, b := range hostBuiltins {
		known[b] = true
	}
	for _, t := range hostScalarTypes {
		known[t] = true
	}
	for _, m := range declPattern.FindAllStringSubmatch(stripped, -1) {
		known[m[1]] = true
	}
	prog := &hostProgram{defines: make(map[string]float64)}
	defined := make(map[string]bool)
	var log []string
	for i, line := range lines {
		if m := definePattern.FindStringSubmatch(line); m != nil {
			defined[m[1]] = true
			if v, err := parseLiteral(m[2]); err == nil {
				prog.defines[m[1]] = v
			}
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for _, loc := range identPattern.FindAllStringIndex(line, -1) {
			if loc[0] > 0 && (line[loc[0]-1] == '.' || isDigit(line[loc[0]-1])) {
				continue
			}
			name := line[loc[0]:loc[1]]
			undeclared := !watched[name] && !known[name]
			if undeclared || watched[name] && !defined[name] {
				log = append(log, fmt.Sprintf("<source>:%d:%d: error: use of undeclared identifier '%s'", i+1, loc[0]+1, name))
			}
		}
	}
	prog.sigs = parseKernelSignatures(src)
	for _, sig := range prog.sigs {
		if impls[sig.Name] == nil {
			log = append(log, fmt.Sprintf("<source>:%d:%d: error: no host implementation for kernel '%s'", sig.Line, sig.Column, sig.Name))
		}
	}
	return prog, log
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func parseLiteral(s string) (float64, error) {
	s = strings.TrimRight(s, "fF")
	return strconv.ParseFloat(s, 64)
}

type hostProgram struct {
	rt      *hostRuntime
	defines map[string]float64
	sigs    []kernelSignature
}

func (p *hostProgram) BuildLog() string { return "" }

func (p *hostProgram) KernelNames() []string {
	names := make([]string, 0, len(p.sigs))
	for _, s := range p.sigs {
		names = append(names, s.Name)
	}
	return names
}

func (p *hostProgram) Kernel(name string) (deviceKernel, error) {
	for _, s := range p.sigs {
		if s.Name == name {
			return &hostKernel{prog: p, sig: s, fn: p.rt.kernels[name], limit: p.rt.device.MaxWorkGroupSize}, nil
		}
	}
	return nil, fmt.Errorf("no kernel named %q in program", name)
}

func (p *hostProgram) Release() {}

type hostKernel struct {
	prog  *hostProgram
	sig   kernelSignature
	fn    hostKernelFunc
	limit int
}

func (k *hostKernel) Name() string { return k.sig.Name }

func (k *hostKernel) NumArgs() int { return len(k.sig.Params) }

func (k *hostKernel) WorkGroupLimit() int { return k.limit }

func (k *hostKernel) Launch(args []any, global, local []int) (time.Duration, error) {
	if len(args) != len(k.sig.Params) {
		return 0, fmt.Errorf("kernel %s: got %d arguments, want %d", k.sig.Name, len(args), len(k.sig.Params))
	}
	for i, p := range k.sig.Params {
		if !argMatches(args[i], p.Kind) {
			return 0, fmt.Errorf("kernel %s: argument %d (%s) wants %s, got %T", k.sig.Name, i, p.Name, p.Kind, args[i])
		}
	}
	groups, err := splitWorkGroups(global, local)
	if err != nil {
		return 0, fmt.Errorf("kernel %s: %w", k.sig.Name, err)
	}
	call := &hostCall{args: args, defines: k.prog.defines}
	start := time.Now()
	err = runWorkGroups(k.prog.rt.workers, groups, func(x, y int) { k.fn(call, x, y) })
	return time.Since(start), err
}

func (k *hostKernel) Release() {}

func argMatches(arg any, kind paramKind) bool {
	switch kind {
	case paramInput:
		_, ok := arg.([]float32)
		return ok
	case paramOutput:
		out, ok := arg.(*outputBuffer)
		return ok && out != nil
	case paramInt:
		_, ok := arg.(int32)
		return ok
	case paramFloat:
		_, ok := arg.(float32)
		return ok
	}
	return false
}

// hostCall gives kernel bodies typed access to their arguments and to the
// compiled constants.
type hostCall struct {
	args    []any
	defines map[string]float64
}

func (c *hostCall) input(i int) []float32 { return c.args[i].([]float32) }

func (c *hostCall) output(i int) []float32 { return c.args[i].(*outputBuffer).Data }

func (c *hostCall) intArg(i int) int { return int(c.args[i].(int32)) }

func (c *hostCall) floatArg(i int) float32 { return c.args[i].(float32) }

func (c *hostCall) constant(name string) float32 { return float32(c.defines[name]) }
