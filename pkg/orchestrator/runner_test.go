package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/e2ekit/pkg/config"
	"github.com/entrhq/e2ekit/pkg/metrics"
)

func browse(url string) func(*Scope) error {
	return func(s *Scope) error {
		session, err := s.Session()
		if err != nil {
			return err
		}
		return session.Navigate(url)
	}
}

func TestRunner_Sequential(t *testing.T) {
	run := newTestRun(t, nil)

	scenarios := []Scenario{
		{Name: "home", Run: browse("https://example.test/")},
		{Name: "panics", Run: func(*Scope) error { panic("nil map") }},
		{Name: "skipped", Run: func(*Scope) error { return Skip("not on staging") }},
		{Name: "empty"},
	}

	summary, err := NewRunner(run.o).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalTests)
	assert.Equal(t, 1, summary.PassedTests)
	assert.Equal(t, 1, summary.FailedTests)
	assert.Equal(t, 2, summary.SkippedTests)

	records := run.rc.Metrics.Records()
	assert.Equal(t, "scenario panicked: nil map", records[1].ErrorMessage)

	// one shared session for the whole sequential run, quit at run end
	sessions := run.sessions.all()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].QuitCount())
	assert.Equal(t, []string{"https://example.test/"}, sessions[0].Visited())
}

func TestRunner_Workers(t *testing.T) {
	run := newTestRun(t, func(c *config.Config) { c.Workers = 3 })

	var scenarios []Scenario
	for i := 0; i < 12; i++ {
		scenarios = append(scenarios, Scenario{
			Name: fmt.Sprintf("page-%02d", i),
			Run:  browse(fmt.Sprintf("https://example.test/%d", i)),
		})
	}

	summary, err := NewRunner(run.o).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalTests)
	assert.Equal(t, 12, summary.PassedTests)
	assert.Len(t, run.rc.Reporter.Entries(), 12)

	sessions := run.sessions.all()
	assert.LessOrEqual(t, len(sessions), 3, "at most one session per worker")
	visited := 0
	for _, s := range sessions {
		assert.Equal(t, 1, s.QuitCount())
		visited += len(s.Visited())
	}
	assert.Equal(t, 12, visited)
}

func TestRunner_WorkersIsolateFailures(t *testing.T) {
	run := newTestRun(t, func(c *config.Config) { c.Workers = 4 })

	var mu sync.Mutex
	seen := map[string]bool{}
	var scenarios []Scenario
	for i := 0; i < 8; i++ {
		scenarios = append(scenarios, Scenario{
			Name: fmt.Sprintf("s%d", i),
			Run: func(s *Scope) error {
				mu.Lock()
				seen[s.Worker] = true
				mu.Unlock()
				if i%2 == 1 {
					return fmt.Errorf("odd %d", i)
				}
				return nil
			},
		})
	}

	summary, err := NewRunner(run.o).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.PassedTests)
	assert.Equal(t, 4, summary.FailedTests)
	assert.NotContains(t, seen, metrics.DefaultWorker)
	assert.Empty(t, run.o.ActiveScopes())
}

func TestRunner_Cancelled(t *testing.T) {
	run := newTestRun(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	summary, err := NewRunner(run.o).Run(ctx, []Scenario{{
		Name: "never",
		Run:  func(*Scope) error { ran = true; return nil },
	}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
	assert.Zero(t, summary.TotalTests)
}

func TestRunner_IsolateSessions(t *testing.T) {
	run := newTestRun(t, func(c *config.Config) { c.IsolateSessions = true })

	_, err := NewRunner(run.o).Run(context.Background(), []Scenario{
		{Name: "a", Run: browse("https://example.test/a")},
		{Name: "b", Run: browse("https://example.test/b")},
	})
	require.NoError(t, err)

	sessions := run.sessions.all()
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.Equal(t, 1, s.QuitCount())
	}
}

func TestFilterByTags(t *testing.T) {
	scenarios := []Scenario{
		{Name: "a", Tags: []string{"smoke"}},
		{Name: "b", Tags: []string{"regression"}},
		{Name: "c"},
	}

	assert.Len(t, FilterByTags(scenarios), 3)
	kept := FilterByTags(scenarios, "smoke", "nightly")
	require.Len(t, kept, 1)
	assert.Equal(t, "a", kept[0].Name)
}
