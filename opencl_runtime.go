//go:build opencl

package main

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

type openCLRuntime struct{}

func newOpenCLRuntime() (computeRuntime, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`", errRuntimeUnavailable)
	}
	return &openCLRuntime{}, nil
}

func (r *openCLRuntime) Name() string { return "opencl" }

func (r *openCLRuntime) Platforms() ([]platformInfo, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("querying OpenCL platforms: %w", err)
	}
	out := make([]platformInfo, 0, len(platforms))
	for pi, p := range platforms {
		info := platformInfo{Index: pi, Name: p.Name(), Vendor: p.Vendor(), Version: p.Version()}
		devices, err := p.GetDevices(cl.DeviceTypeAll)
		if err != nil && err != cl.ErrDeviceNotFound {
			return nil, fmt.Errorf("querying devices of platform %d: %w", pi, err)
		}
		for di, d := range devices {
			info.Devices = append(info.Devices, describeCLDevice(di, d))
		}
		out = append(out, info)
	}
	return out, nil
}

func describeCLDevice(index int, d *cl.Device) deviceInfo {
	return deviceInfo{
		Index:            index,
		Name:             d.Name(),
		Vendor:           d.Vendor(),
		GlobalMemBytes:   d.GlobalMemSize(),
		ComputeUnits:     d.MaxComputeUnits(),
		ClockMHz:         d.MaxClockFrequency(),
		DriverVersion:    d.DriverVersion(),
		MaxWorkGroupSize: d.MaxWorkGroupSize(),
		Features:         d.Extensions(),
	}
}

func (r *openCLRuntime) Open(platform, device int, profiling bool) (deviceQueue, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("querying OpenCL platforms: %w", err)
	}
	if platform < 0 || platform >= len(platforms) {
		return nil, &DeviceNotFoundError{Platform: platform, Device: device, PlatformCount: len(platforms)}
	}
	devices, err := platforms[platform].GetDevices(cl.DeviceTypeAll)
	if err != nil && err != cl.ErrDeviceNotFound {
		return nil, fmt.Errorf("querying OpenCL devices: %w", err)
	}
	if device < 0 || device >= len(devices) {
		return nil, &DeviceNotFoundError{Platform: platform, Device: device, PlatformCount: len(platforms), DeviceCount: len(devices)}
	}
	dev := devices[device]
	context, err := cl.CreateContext([]*cl.Device{dev})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	var props cl.CommandQueueProperty
	if profiling {
		props = cl.CommandQueueProfilingEnable
	}
	queue, err := context.CreateCommandQueue(dev, props)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	return &openCLQueue{
		device:    dev,
		info:      describeCLDevice(device, dev),
		context:   context,
		queue:     queue,
		profiling: profiling,
	}, nil
}

type openCLQueue struct {
	device    *cl.Device
	info      deviceInfo
	context   *cl.Context
	queue     *cl.CommandQueue
	profiling bool
}

func (q *openCLQueue) Device() deviceInfo { return q.info }

func (q *openCLQueue) Build(src string) (deviceProgram, error) {
	program, err := q.context.CreateProgramWithSource([]string{src})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{q.device}, ""); err != nil {
		program.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, &buildFailure{Log: string(buildErr)}
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	return &openCLProgram{q: q, program: program, sigs: parseKernelSignatures(src)}, nil
}

func (q *openCLQueue) Release() {
	if q.queue != nil {
		q.queue.Release()
		q.queue = nil
	}
	if q.context != nil {
		q.context.Release()
		q.context = nil
	}
}

type openCLProgram struct {
	q       *openCLQueue
	program *cl.Program
	sigs    []kernelSignature
}

// BuildLog is empty for a successful build; the binding does not expose
// warnings of builds that succeed.
func (p *openCLProgram) BuildLog() string { return "" }

func (p *openCLProgram) KernelNames() []string {
	names := make([]string, 0, len(p.sigs))
	for _, s := range p.sigs {
		names = append(names, s.Name)
	}
	return names
}

func (p *openCLProgram) Kernel(name string) (deviceKernel, error) {
	kernel, err := p.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL kernel %s: %w", name, err)
	}
	n, err := kernel.NumArgs()
	if err != nil {
		kernel.Release()
		return nil, fmt.Errorf("querying arguments of kernel %s: %w", name, err)
	}
	limit, err := kernel.WorkGroupSize(p.q.device)
	if err != nil {
		limit = p.q.info.MaxWorkGroupSize
	}
	return &openCLKernel{q: p.q, kernel: kernel, name: name, numArgs: n, limit: limit}, nil
}

func (p *openCLProgram) Release() {
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
}

type openCLKernel struct {
	q       *openCLQueue
	kernel  *cl.Kernel
	name    string
	numArgs int
	limit   int
}

func (k *openCLKernel) Name() string { return k.name }

func (k *openCLKernel) NumArgs() int { return k.numArgs }

func (k *openCLKernel) WorkGroupLimit() int { return k.limit }

func (k *openCLKernel) Launch(args []any, global, local []int) (time.Duration, error) {
	var buffers []*cl.MemObject
	defer func() {
		for _, b := range buffers {
			b.Release()
		}
	}()
	type readback struct {
		buf *cl.MemObject
		out *outputBuffer
	}
	var reads []readback
	clArgs := make([]interface{}, len(args))
	floatSize := int(unsafe.Sizeof(float32(0)))
	for i, a := range args {
		switch v := a.(type) {
		case []float32:
			buf, err := k.q.context.CreateEmptyBuffer(cl.MemReadOnly, max(len(v), 1)*floatSize)
			if err != nil {
				return 0, fmt.Errorf("allocating argument %d of %s: %w", i, k.name, err)
			}
			buffers = append(buffers, buf)
			if len(v) > 0 {
				if _, err := k.q.queue.EnqueueWriteBufferFloat32(buf, false, 0, v, nil); err != nil {
					return 0, fmt.Errorf("writing argument %d of %s: %w", i, k.name, err)
				}
			}
			clArgs[i] = buf
		case *outputBuffer:
			buf, err := k.q.context.CreateEmptyBuffer(cl.MemWriteOnly, max(len(v.Data), 1)*floatSize)
			if err != nil {
				return 0, fmt.Errorf("allocating output %d of %s: %w", i, k.name, err)
			}
			buffers = append(buffers, buf)
			reads = append(reads, readback{buf: buf, out: v})
			clArgs[i] = buf
		case int32, float32:
			clArgs[i] = v
		default:
			return 0, fmt.Errorf("kernel %s: unsupported argument %d of type %T", k.name, i, a)
		}
	}
	if err := k.kernel.SetArgs(clArgs...); err != nil {
		return 0, fmt.Errorf("setting kernel arguments of %s: %w", k.name, err)
	}
	start := time.Now()
	event, err := k.q.queue.EnqueueNDRangeKernel(k.kernel, nil, global, local, nil)
	if err != nil {
		return 0, fmt.Errorf("enqueueing kernel %s: %w", k.name, err)
	}
	defer event.Release()
	for _, r := range reads {
		if len(r.out.Data) == 0 {
			continue
		}
		if _, err := k.q.queue.EnqueueReadBufferFloat32(r.buf, true, 0, r.out.Data, nil); err != nil {
			return 0, fmt.Errorf("reading output of %s: %w", k.name, err)
		}
	}
	if err := k.q.queue.Finish(); err != nil {
		return 0, fmt.Errorf("waiting for kernel %s: %w", k.name, err)
	}
	elapsed := time.Since(start)
	if k.q.profiling {
		begin, berr := event.GetEventProfilingInfo(cl.ProfilingInfoCommandStart)
		end, eerr := event.GetEventProfilingInfo(cl.ProfilingInfoCommandEnd)
		if berr == nil && eerr == nil && end >= begin {
			elapsed = time.Duration(end - begin)
		}
	}
	return elapsed, nil
}

func (k *openCLKernel) Release() {
	if k.kernel != nil {
		k.kernel.Release()
		k.kernel = nil
	}
}
