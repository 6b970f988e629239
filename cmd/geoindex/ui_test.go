package main

import (
	"errors"
	"testing"
	"time"

	"github.com/1F47E/geojson-rtree/internal/bench"
	"github.com/1F47E/geojson-rtree/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBlockPlain(t *testing.T) {
	res := bench.Result{QueryType: bench.QueryRadius, TotalQueries: 10, Errors: 3, TotalResults: 42}

	out := renderBlock("Benchmark Results", benchStats(res, 4), false)
	assert.Contains(t, out, "=== Benchmark Results ===\n")
	assert.Contains(t, out, "Query Type: radius\n")
	assert.Contains(t, out, "Errors: 3\n")
	assert.Contains(t, out, "Total Results: 42\n")
	assert.Contains(t, out, "Workers Used: 4\n")
	assert.NotContains(t, out, "╭")
}

func TestRenderBlockStyled(t *testing.T) {
	report := ingest.Report{Files: 2, Records: 7, Rejected: []ingest.Rejection{{Path: "a.json", Index: 3, Err: errors.New("bad ring")}}}

	out := renderBlock("Load Complete", loadStats(report, 6), true)
	assert.Contains(t, out, "Load Complete")
	assert.Contains(t, out, "╭")
	for _, v := range []string{"Files", "Records", "Indexed", "Rejected", "7", "6"} {
		assert.Contains(t, out, v)
	}

	assert.Contains(t, renderRejections(report.Rejected, false), "  a.json #3: bad ring\n")
}

func TestTaskModel(t *testing.T) {
	m := newTaskModel("Loading", 100)
	assert.Contains(t, m.View(), "Loading")

	next, _ := m.Update(progressMsg(0.5))
	m = next.(taskModel)
	assert.Equal(t, 0.5, m.percent)

	boom := errors.New("boom")
	next, cmd := m.Update(doneMsg{err: boom})
	m = next.(taskModel)
	assert.True(t, m.done)
	assert.Equal(t, boom, m.err)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestRunTaskPlain(t *testing.T) {
	saved := interactive
	interactive = false
	t.Cleanup(func() { interactive = saved })

	ticks := 0
	err := runTask("counting", 3, func(tick func()) error {
		for i := 0; i < 3; i++ {
			tick()
			ticks++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)

	boom := errors.New("boom")
	assert.ErrorIs(t, runTask("failing", 0, func(func()) error { return boom }), boom)
}

func TestBenchStatsFlagsErrors(t *testing.T) {
	stats := benchStats(bench.Result{Errors: 1, TotalDuration: time.Second}, 1)
	for _, s := range stats {
		if s.label == "Errors" {
			assert.True(t, s.bad)
			return
		}
	}
	t.Fatal("no Errors stat")
}
