package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_BeforeFirstRun(t *testing.T) {
	f := newFixture("a", "b", "c")
	c := f.coordinator(fakeClassifier{}, Options{})
	r := NewReporter(c, f.store, len(f.locs), 6*time.Hour)

	st, err := r.Status(context.Background())
	require.NoError(t, err)

	assert.False(t, st.InProgress)
	assert.Nil(t, st.LastStarted)
	assert.Nil(t, st.LastCompleted)
	assert.Nil(t, st.NextRun)
	assert.Zero(t, st.CachedEntities)
	assert.Equal(t, 3, st.RegistrySize)
	require.Error(t, r.CheckReadiness(context.Background()))
}

func TestReporter_AfterRun(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.fetcher.on(-3, failWith(assert.AnError))
	c := f.coordinator(fakeClassifier{}, Options{})
	r := NewReporter(c, f.store, len(f.locs), 6*time.Hour)

	c.RunOnce(context.Background())

	st, err := r.Status(context.Background())
	require.NoError(t, err)

	require.NotNil(t, st.LastCompleted)
	require.NotNil(t, st.NextRun)
	assert.Equal(t, t0, *st.LastCompleted)
	assert.Equal(t, t0.Add(6*time.Hour), *st.NextRun)
	assert.Equal(t, OutcomeCompleted, st.LastOutcome)
	assert.Equal(t, 2, st.SuccessCount)
	assert.Equal(t, 1, st.FailureCount)
	assert.Equal(t, 2, st.CachedEntities)
	require.NoError(t, r.CheckReadiness(context.Background()))
}

func TestReporter_ReadyFromExistingStore(t *testing.T) {
	f := newFixture("a")
	seed := f.coordinator(fakeClassifier{}, Options{})
	seed.RunOnce(context.Background())

	// A fresh coordinator, as after a restart, over the same store.
	c := f.coordinator(fakeClassifier{}, Options{})
	r := NewReporter(c, f.store, len(f.locs), time.Hour)

	require.NoError(t, r.CheckReadiness(context.Background()))
}
