package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/prompts"
	"github.com/dusk-indust/seoplan/internal/seo"
	"github.com/dusk-indust/seoplan/internal/store"
)

// stagePrompts renders the stage name as the system prompt and the
// dependency outputs as the user prompt.
func stagePrompts(t *testing.T) *prompts.Library {
	t.Helper()
	fsys := fstest.MapFS{}
	for _, name := range seo.Stages() {
		src := fmt.Sprintf(`{{define "%[1]s.system"}}%[1]s{{end}}{{define "%[1]s.user"}}{{json .Deps}}{{end}}`, name)
		fsys["p/"+name+".tmpl"] = &fstest.MapFile{Data: []byte(src)}
	}
	lib, err := prompts.LoadFS(fsys, "p/*.tmpl")
	require.NoError(t, err)
	return lib
}

type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	prompts   map[string]string
	calls     map[string]int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		responses: map[string]string{},
		errs:      map[string]error{},
		prompts:   map[string]string{},
		calls:     map[string]int{},
	}
}

func (f *fakeGenerator) Generate(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[system]++
	f.prompts[system] = user
	if err := f.errs[system]; err != nil {
		return "", err
	}
	if r, ok := f.responses[system]; ok {
		return r, nil
	}
	return "{}", nil
}

func (f *fakeGenerator) fail(stage string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, stage)
		return
	}
	f.errs[stage] = err
}

func (f *fakeGenerator) prompt(stage string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[stage]
}

func newPlanner(t *testing.T, gen *fakeGenerator, st store.Store) *Planner {
	t.Helper()
	g, err := seo.NewGraph(seo.Options{Generator: gen, Prompts: stagePrompts(t)})
	require.NoError(t, err)

	n := 0
	orch := pipeline.New(g, pipeline.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}))
	t.Cleanup(orch.Close)

	p, err := New(Config{Orchestrator: orch, Store: st})
	require.NoError(t, err)
	return p
}

func statuses(rec *store.Record) map[string]string {
	out := make(map[string]string, len(rec.Stages))
	for _, d := range rec.Stages {
		out[d.Stage] = d.Status
	}
	return out
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_SavesRecord(t *testing.T) {
	st := store.NewMemory()
	p := newPlanner(t, newFakeGenerator(), st)
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, pipeline.AllCompleted.String(), rec.State)
	assert.Len(t, rec.Stages, len(seo.Stages()))

	stored, err := st.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.State, stored.State)
	assert.Equal(t, "plomberie, Paris", stored.Brief)
}

func TestRun_NoSave(t *testing.T) {
	st := store.NewMemory()
	p := newPlanner(t, newFakeGenerator(), st)

	rec, err := p.Run(context.Background(), "plomberie, Paris", false)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AllCompleted.String(), rec.State)

	_, err = st.Get(context.Background(), rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_EmptyBrief(t *testing.T) {
	p := newPlanner(t, newFakeGenerator(), store.NewMemory())
	_, err := p.Run(context.Background(), "  ", true)
	assert.ErrorIs(t, err, pipeline.ErrEmptyBrief)
}

// ---------------------------------------------------------------------------
// RerunStage
// ---------------------------------------------------------------------------

func TestRerunStage_RecoversFailedBranch(t *testing.T) {
	gen := newFakeGenerator()
	gen.fail(seo.Content, errors.New("NetworkTimeout"))
	p := newPlanner(t, gen, store.NewMemory())
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PartiallyFailed.String(), rec.State)
	got := statuses(rec)
	assert.Equal(t, store.StatusFailed, got[seo.Content])
	assert.Equal(t, store.StatusBlocked, got[seo.Snippet])
	assert.Equal(t, store.StatusBlocked, got[seo.Coordinator])

	// Blocked stages cannot be rerun before their dependency completes.
	_, err = p.RerunStage(ctx, rec.ID, seo.Snippet)
	var missing *pipeline.MissingDependencyOutput
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, seo.Content, missing.Dependency)

	gen.fail(seo.Content, nil)
	for _, stage := range []string{seo.Content, seo.Snippet} {
		rec, err = p.RerunStage(ctx, rec.ID, stage)
		require.NoError(t, err, stage)
		assert.Equal(t, pipeline.PartiallyFailed.String(), rec.State, stage)
	}

	rec, err = p.RerunStage(ctx, rec.ID, seo.Coordinator)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AllCompleted.String(), rec.State)
	for stage, status := range statuses(rec) {
		assert.Equal(t, store.StatusCompleted, status, stage)
	}

	stored, err := p.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AllCompleted.String(), stored.State)
}

func TestRerunStage_FeedsStoredDependencies(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses[seo.Strategic] = `{"avatar": "Marc, 45 ans, propriétaire"}`
	p := newPlanner(t, gen, store.NewMemory())
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)

	gen.responses[seo.Strategic] = `{"avatar": "changed"}`
	_, err = p.RerunStage(ctx, rec.ID, seo.Cluster)
	require.NoError(t, err)

	assert.Contains(t, gen.prompt(seo.Cluster), "Marc, 45 ans, propriétaire")
	assert.NotContains(t, gen.prompt(seo.Cluster), "changed")
	assert.Equal(t, 1, gen.calls[seo.Strategic])
	assert.Equal(t, 2, gen.calls[seo.Cluster])
}

func TestRerunStage_RecordsFailure(t *testing.T) {
	gen := newFakeGenerator()
	p := newPlanner(t, gen, store.NewMemory())
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)

	gen.fail(seo.Technical, errors.New("quota exceeded"))
	rec, err = p.RerunStage(ctx, rec.ID, seo.Technical)
	require.Error(t, err)
	require.NotNil(t, rec)

	doc, ok := rec.Stage(seo.Technical)
	require.True(t, ok)
	assert.Equal(t, store.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "quota exceeded")
	assert.Equal(t, pipeline.PartiallyFailed.String(), rec.State)

	stored, err := p.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PartiallyFailed.String(), stored.State)
}

type countingStore struct {
	store.Store
	saves, puts int
}

func (c *countingStore) Save(ctx context.Context, rec *store.Record) error {
	c.saves++
	return c.Store.Save(ctx, rec)
}

func (c *countingStore) PutStage(ctx context.Context, runID string, doc store.StageDoc, state string) error {
	c.puts++
	return c.Store.PutStage(ctx, runID, doc, state)
}

func TestRerunStage_PutsOnlyTheStage(t *testing.T) {
	gen := newFakeGenerator()
	gen.fail(seo.Technical, errors.New("quota exceeded"))
	st := &countingStore{Store: store.NewMemory()}
	p := newPlanner(t, gen, st)
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)
	require.Equal(t, 1, st.saves)

	gen.fail(seo.Technical, nil)
	_, err = p.RerunStage(ctx, rec.ID, seo.Technical)
	require.NoError(t, err)
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, 1, st.puts)

	stored, err := p.Get(ctx, rec.ID)
	require.NoError(t, err)
	doc, ok := stored.Stage(seo.Technical)
	require.True(t, ok)
	assert.Equal(t, store.StatusCompleted, doc.Status)
	assert.Empty(t, doc.Error)
	assert.Equal(t, pipeline.PartiallyFailed.String(), stored.State, "coordinator is still blocked")
}

func TestRerunStage_Errors(t *testing.T) {
	p := newPlanner(t, newFakeGenerator(), store.NewMemory())
	ctx := context.Background()

	_, err := p.RerunStage(ctx, "missing", seo.Strategic)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = p.RerunStage(ctx, "missing", "unknown")
	assert.ErrorIs(t, err, pipeline.ErrUnknownStage)
}

func TestNoStore(t *testing.T) {
	p := newPlanner(t, newFakeGenerator(), nil)
	ctx := context.Background()

	rec, err := p.Run(ctx, "plomberie, Paris", true)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AllCompleted.String(), rec.State)

	_, err = p.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = p.List(ctx)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = p.RerunStage(ctx, rec.ID, seo.Strategic)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.ErrorIs(t, p.Delete(ctx, rec.ID), ErrNoStore)

	_, err = p.Audit(ctx, "https://example.com", "")
	assert.ErrorIs(t, err, ErrNoAuditor)
}

func TestNew_RequiresOrchestrator(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// StateOf
// ---------------------------------------------------------------------------

func TestStateOf(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     pipeline.RunState
	}{
		{name: "all completed", statuses: []string{store.StatusCompleted, store.StatusCompleted}, want: pipeline.AllCompleted},
		{name: "failed", statuses: []string{store.StatusCompleted, store.StatusFailed}, want: pipeline.PartiallyFailed},
		{name: "blocked", statuses: []string{store.StatusBlocked, store.StatusCompleted}, want: pipeline.PartiallyFailed},
		{name: "pending wins", statuses: []string{store.StatusFailed, store.StatusPending}, want: pipeline.Aborted},
		{name: "empty", want: pipeline.AllCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &store.Record{}
			for i, s := range tt.statuses {
				rec.Stages = append(rec.Stages, store.StageDoc{Stage: fmt.Sprint(i), Status: s})
			}
			assert.Equal(t, tt.want, StateOf(rec))
		})
	}
}
