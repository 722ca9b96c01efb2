package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// contextConfig is everything a compute context is built from.
type contextConfig struct {
	Selection deviceSelection
	Medium    *mediumDescriptor
	Policy    constantPolicy
	Sources   []kernelSource
	Profiling bool
	Logger    *slog.Logger
	Metrics   *metrics
}

// kernelHandle is a named entry point of a compiled program. Handles are
// owned by the context and become invalid when the program is rebuilt.
// MaxGroup is the kernel's own work-group limit, which may be below the
// device maximum.
type kernelHandle struct {
	Name       string
	NumArgs    int
	MaxGroup   int
	kernel     deviceKernel
	generation int
}

// computeContext owns one device queue and the program compiled on it.
// Dispatches through one context are serialized.
type computeContext struct {
	mu         sync.Mutex
	rt         computeRuntime
	device     deviceDescriptor
	queue      deviceQueue
	program    deviceProgram
	source     assembledSource
	defines    map[string]string
	constants  constantBlock
	units      []kernelSource
	policy     constantPolicy
	kernels    map[string]*kernelHandle
	generation int
	profiling  bool
	closed     bool
	log        *slog.Logger
	metrics    *metrics
}

// newComputeContext resolves the device, renders the constants, compiles
// the constant block followed by cfg.Sources, and creates every kernel.
// On failure nothing stays acquired.
func newComputeContext(rt computeRuntime, cfg contextConfig) (*computeContext, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	device, err := resolveDevice(rt, cfg.Selection)
	if err != nil {
		return nil, err
	}
	constants, err := renderConstants(cfg.Medium, cfg.Policy, logger)
	if err != nil {
		return nil, err
	}
	src, err := assembleSource(constants, cfg.Sources)
	if err != nil {
		return nil, err
	}
	queue, err := rt.Open(device.Platform, device.Device, cfg.Profiling)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", device, err)
	}
	c := &computeContext{
		rt:        rt,
		device:    device,
		queue:     queue,
		constants: constants,
		units:     append([]kernelSource(nil), cfg.Sources...),
		policy:    cfg.Policy,
		profiling: cfg.Profiling,
		log:       logger.With("runtime", rt.Name(), "device", device.Info.Name),
		metrics:   cfg.Metrics,
	}
	if err := c.build(src); err != nil {
		queue.Release()
		return nil, err
	}
	c.log.Info("compute context ready",
		"platform", device.PlatformName,
		"selection", device.Source.String(),
		"kernels", len(c.kernels))
	return c, nil
}

// build compiles src and swaps it in. The previous program, if any, stays
// in place when the build fails.
func (c *computeContext) build(src assembledSource) error {
	start := time.Now()
	prog, err := c.queue.Build(src.Text)
	elapsed := time.Since(start)
	if err != nil {
		var failure *buildFailure
		if errors.As(err, &failure) {
			cerr := &CompilationError{
				Device:      c.device.Info.Name,
				Log:         failure.Log,
				Diagnostics: parseBuildLog(failure.Log, src),
			}
			c.log.Error("kernel build failed", "units", cerr.Units(), "log", failure.Log)
			return cerr
		}
		return fmt.Errorf("building program: %w", err)
	}
	kernels := make(map[string]*kernelHandle)
	for _, name := range prog.KernelNames() {
		if _, dup := kernels[name]; dup {
			continue
		}
		k, err := prog.Kernel(name)
		if err != nil {
			for _, h := range kernels {
				h.kernel.Release()
			}
			prog.Release()
			return fmt.Errorf("creating kernel %s: %w", name, err)
		}
		kernels[name] = &kernelHandle{
			Name:       name,
			NumArgs:    k.NumArgs(),
			MaxGroup:   k.WorkGroupLimit(),
			kernel:     k,
			generation: c.generation + 1,
		}
	}
	c.releaseProgram()
	c.program = prog
	c.kernels = kernels
	c.source = src
	c.defines = sourceDefines(src.Text)
	c.generation++
	c.metrics.observeCompile(elapsed)
	c.log.Info("kernels compiled",
		"units", src.Units(),
		"kernels", len(kernels),
		"source_kb", fmt.Sprintf("%.1f", float64(len(src.Text))/1024),
		"elapsed", elapsed)
	return nil
}

func (c *computeContext) releaseProgram() {
	for _, h := range c.kernels {
		h.kernel.Release()
	}
	c.kernels = nil
	if c.program != nil {
		c.program.Release()
		c.program = nil
	}
}

// Rebuild recompiles every unit against a new medium. Existing handles are
// invalidated; capabilities have to bind again.
func (c *computeContext) Rebuild(medium *mediumDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errContextClosed
	}
	constants, err := renderConstants(medium, c.policy, c.log)
	if err != nil {
		return err
	}
	src, err := assembleSource(constants, c.units)
	if err != nil {
		return err
	}
	if err := c.build(src); err != nil {
		return err
	}
	c.constants = constants
	return nil
}

// Kernel looks up a compiled entry point.
func (c *computeContext) Kernel(name string) (*kernelHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errContextClosed
	}
	h, ok := c.kernels[name]
	if !ok {
		return nil, &KernelNotFoundError{Kernel: name, Available: c.kernelNamesLocked()}
	}
	return h, nil
}

// KernelNames lists the compiled entry points, sorted.
func (c *computeContext) KernelNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kernelNamesLocked()
}

func (c *computeContext) kernelNamesLocked() []string {
	names := make([]string, 0, len(c.kernels))
	for n := range c.kernels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// launch runs h to completion. It is the only path to the device queue.
func (c *computeContext) launch(h *kernelHandle, args []any, global, local []int) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, errContextClosed
	}
	if h.generation != c.generation {
		return 0, fmt.Errorf("kernel %s belongs to a replaced program", h.Name)
	}
	elapsed, err := h.kernel.Launch(args, global, local)
	if err != nil {
		return 0, fmt.Errorf("dispatching %s: %w", h.Name, err)
	}
	c.metrics.observeDispatch(h.Name, elapsed)
	c.log.Debug("kernel dispatched", "kernel", h.Name, "global", global, "local", local, "elapsed", elapsed)
	return elapsed, nil
}

func (c *computeContext) Device() deviceDescriptor { return c.device }

func (c *computeContext) Profiling() bool { return c.profiling }

// BuildLog returns the compiler output of the current program.
func (c *computeContext) BuildLog() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.program == nil {
		return ""
	}
	return c.program.BuildLog()
}

// Source returns the assembled program text.
func (c *computeContext) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Text
}

// Units lists the compiled units in order, starting with the constants.
func (c *computeContext) Units() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Units()
}

// Define returns the value of a macro of the current program as written.
func (c *computeContext) Define(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.defines[name]
	return v, ok
}

// Constants returns the block the current program was compiled with.
func (c *computeContext) Constants() constantBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.constants
}

// Close releases kernels, program, queue and context. It is safe to call
// more than once.
func (c *computeContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.releaseProgram()
	c.queue.Release()
	c.log.Debug("compute context released")
}
