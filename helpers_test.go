package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMedium(t *testing.T) *mediumDescriptor {
	t.Helper()
	m, err := newMedium(defaultFrequency, defaultSoundSpeed)
	require.NoError(t, err)
	return m
}

func testConfig(t *testing.T, m *metrics) contextConfig {
	t.Helper()
	return contextConfig{
		Selection: defaultSelection(),
		Medium:    testMedium(t),
		Logger:    quietLogger(),
		Metrics:   m,
	}
}

func loadUnits(t *testing.T, names ...string) []kernelSource {
	t.Helper()
	units := make([]kernelSource, 0, len(names))
	for _, n := range names {
		src, err := loadKernelSource(n)
		require.NoError(t, err)
		units = append(units, src)
	}
	return units
}

func newTestPropagator(t *testing.T, m *metrics) *propagator {
	t.Helper()
	p, err := newPropagator(newHostRuntime(), testConfig(t, m))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func newTestTranslator(t *testing.T) *translator {
	t.Helper()
	tr, err := newTranslator(newHostRuntime(), testConfig(t, nil))
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	return tr
}

func newTestSolver(t *testing.T) *solver {
	t.Helper()
	s, err := newSolver(newHostRuntime(), testConfig(t, nil))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// countingRuntime wraps a runtime and counts queue opens and releases.
type countingRuntime struct {
	computeRuntime
	opens    int
	releases int
}

func (r *countingRuntime) Open(platform, device int, profiling bool) (deviceQueue, error) {
	r.opens++
	q, err := r.computeRuntime.Open(platform, device, profiling)
	if err != nil {
		return nil, err
	}
	return &countingQueue{deviceQueue: q, rt: r}, nil
}

type countingQueue struct {
	deviceQueue
	rt *countingRuntime
}

func (q *countingQueue) Release() {
	q.rt.releases++
	q.deviceQueue.Release()
}

// countingRunner stands in for a dispatcher and records every call.
type countingRunner struct {
	calls int
	names []string
	raw   func(req *dispatchRequest) []float32
}

func (r *countingRunner) Run(name string, req *dispatchRequest) (*rawResult, error) {
	r.calls++
	r.names = append(r.names, name)
	return &rawResult{Data: r.raw(req), Stride: 2}, nil
}
