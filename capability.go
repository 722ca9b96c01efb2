package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"
)

// capability is a named unit of device computation. It declares the
// source units and entry points it needs, binds them against a compiled
// program, and runs them.
type capability interface {
	Name() string
	Units() []string
	Entries() []string
	Bind(ctx *computeContext) error
	Run(req *dispatchRequest) (*rawResult, error)
}

// kernelBinding holds the entry point a single-kernel capability resolved.
type kernelBinding struct {
	layout kernelLayout
	ctx    *computeContext
	handle *kernelHandle
}

func (b *kernelBinding) Entries() []string { return []string{b.layout.Entry} }

func (b *kernelBinding) bind(name string, ctx *computeContext) error {
	h, err := ctx.Kernel(b.layout.Entry)
	if err != nil {
		return &CapabilityBindingError{Capability: name, Kernel: b.layout.Entry, Err: err}
	}
	if v, ok := ctx.Define("TX_STRIDE"); ok && v != strconv.Itoa(txStride) {
		return &CapabilityBindingError{
			Capability: name,
			Kernel:     b.layout.Entry,
			Reason:     fmt.Sprintf("program reads elements with TX_STRIDE %s, arrays pack %d", v, txStride),
		}
	}
	if h.NumArgs != b.layout.Args {
		return &CapabilityBindingError{
			Capability: name,
			Kernel:     b.layout.Entry,
			Reason:     fmt.Sprintf("kernel takes %d arguments, capability passes %d", h.NumArgs, b.layout.Args),
		}
	}
	b.ctx, b.handle = ctx, h
	return nil
}

func (b *kernelBinding) dispatch(args []any, problem []int, shape workShape) (*rawResult, error) {
	if b.handle == nil {
		return nil, fmt.Errorf("%s: %w", b.layout.Entry, errNotBound)
	}
	return dispatchKernel(b.ctx, b.handle, b.layout, args, problem, shape)
}

// dispatcher aggregates capabilities over one compute context and forwards
// calls by name.
type dispatcher struct {
	ctx   *computeContext
	caps  map[string]capability
	order []string
	log   *slog.Logger
}

func newDispatcher(ctx *computeContext, logger *slog.Logger) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{ctx: ctx, caps: make(map[string]capability), log: logger}
}

// Register binds c against the compiled program. Binding failures surface
// here, before any Run.
func (d *dispatcher) Register(c capability) error {
	name := c.Name()
	if _, dup := d.caps[name]; dup {
		return &CapabilityBindingError{Capability: name, Reason: "already registered"}
	}
	if err := c.Bind(d.ctx); err != nil {
		return err
	}
	d.caps[name] = c
	d.order = append(d.order, name)
	d.log.Debug("capability registered", "capability", name, "entries", c.Entries())
	return nil
}

// Run forwards req to the named capability.
func (d *dispatcher) Run(name string, req *dispatchRequest) (*rawResult, error) {
	c, ok := d.caps[name]
	if !ok {
		return nil, &CapabilityBindingError{Capability: name, Reason: "not registered"}
	}
	start := time.Now()
	res, err := c.Run(req)
	if err != nil {
		return nil, err
	}
	d.log.Debug("capability run", "capability", name, "items", res.Len(), "elapsed", time.Since(start))
	return res, nil
}

// Capabilities lists the registered names in registration order.
func (d *dispatcher) Capabilities() []string {
	return append([]string(nil), d.order...)
}

// Rebuild recompiles the program for a new medium and binds every
// capability again.
func (d *dispatcher) Rebuild(medium *mediumDescriptor) error {
	if err := d.ctx.Rebuild(medium); err != nil {
		return err
	}
	for _, name := range d.order {
		if err := d.caps[name].Bind(d.ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the compute context.
func (d *dispatcher) Close() {
	d.ctx.Close()
}

// requiredSources loads the units the capabilities need, de-duplicated and
// in library order.
func requiredSources(caps ...capability) ([]kernelSource, error) {
	seen := make(map[string]bool)
	var names []string
	for _, c := range caps {
		for _, u := range c.Units() {
			if !seen[u] {
				seen[u] = true
				names = append(names, u)
			}
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return libraryRank(names[i]) < libraryRank(names[j]) })
	units := make([]kernelSource, 0, len(names))
	for _, n := range names {
		src, err := loadKernelSource(n)
		if err != nil {
			return nil, err
		}
		units = append(units, src)
	}
	return units, nil
}

// newCapabilityDispatcher compiles exactly the units caps need and
// registers every capability against the result.
func newCapabilityDispatcher(rt computeRuntime, cfg contextConfig, caps ...capability) (*dispatcher, error) {
	units, err := requiredSources(caps...)
	if err != nil {
		return nil, err
	}
	cfg.Sources = units
	ctx, err := newComputeContext(rt, cfg)
	if err != nil {
		return nil, err
	}
	d := newDispatcher(ctx, cfg.Logger)
	for _, c := range caps {
		if err := d.Register(c); err != nil {
			ctx.Close()
			return nil, err
		}
	}
	return d, nil
}
