package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"sync"
)

// cpuProfile records a pprof CPU profile until Stop.
type cpuProfile struct {
	path string
	f    *os.File
	once sync.Once
	log  *slog.Logger
}

func startCPUProfile(path string, logger *slog.Logger) (*cpuProfile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("starting CPU profile: %w", err)
	}
	logger.Info("CPU profiling started", "path", path)
	return &cpuProfile{path: path, f: f, log: logger}, nil
}

// Stop flushes the profile. Calls after the first are no-ops.
func (p *cpuProfile) Stop() {
	p.once.Do(func() {
		pprof.StopCPUProfile()
		if err := p.f.Close(); err != nil {
			p.log.Warn("closing CPU profile", "path", p.path, "error", err)
			return
		}
		p.log.Info("CPU profile written", "path", p.path)
	})
}
