package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai/cache"
	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/store"
	storetest "github.com/hrygo/jobmatch/store/test"
)

// mockEmbedder returns a vector derived from the text length and counts calls.
type mockEmbedder struct {
	model      string
	embedCalls atomic.Int32
	batchCalls atomic.Int32
	err        error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = vectorFor(text)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 4 }
func (m *mockEmbedder) Model() string   { return m.model }

func vectorFor(text string) []float32 {
	n := float32(len(text))
	return []float32{1, n, n / 2, 0.5}
}

type indexerFixture struct {
	store    *store.Store
	embedder *mockEmbedder
	index    *vector.MemoryIndex
	cache    *cache.MemoryCache
	indexer  *Indexer
}

func newIndexerFixture(t *testing.T) *indexerFixture {
	t.Helper()
	ctx := context.Background()

	f := &indexerFixture{
		store:    storetest.NewTestingStore(ctx, t),
		embedder: &mockEmbedder{model: "test-model"},
		index:    vector.NewMemoryIndex(),
		cache:    cache.NewMemoryCache(cache.MemoryConfig{CleanupInterval: -1}),
	}
	t.Cleanup(func() { _ = f.cache.Close() })
	f.indexer = NewIndexer(f.store, f.embedder, vector.NewClient(f.index), f.cache, time.Hour)
	return f
}

func TestIndexer_IndexJobs(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)

	var jobs []*store.Job
	for _, title := range []string{"Go Engineer", "Data Scientist", "Designer"} {
		job, err := f.store.CreateJob(ctx, &store.Job{Title: title, Company: "Acme", Remote: title == "Designer"})
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	require.NoError(t, f.indexer.IndexJobs(ctx, jobs))
	assert.Equal(t, int32(1), f.embedder.batchCalls.Load())
	assert.Equal(t, 3, f.index.Len())

	for _, job := range jobs {
		stored, err := f.store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "test-model", stored.EmbeddingModel)
		assert.InDeltaSlice(t, vectorFor(BuildJobEmbeddingText(job)), stored.Embedding, 1e-6)
	}

	matches, err := vector.NewClient(f.index).Query(ctx, vector.KindJob, jobs[2].Embedding, 1, map[string]any{"remote": true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, jobs[2].ID, matches[0].ID)
	assert.Equal(t, "Designer", matches[0].Metadata["title"])
}

func TestIndexer_IndexJobsProviderError(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)
	f.embedder.err = apperrors.Upstream("provider down", errors.New("503"))

	job, err := f.store.CreateJob(ctx, &store.Job{Title: "Go Engineer"})
	require.NoError(t, err)

	err = f.indexer.IndexJob(ctx, job)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUpstream))
	assert.Equal(t, 0, f.index.Len())

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Embedding)
}

func TestIndexer_IndexUser(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)

	user, err := f.store.CreateUser(ctx, &store.User{Bio: "Go developer", Skills: []string{"Go"}, Location: "Lisbon"})
	require.NoError(t, err)
	_, err = f.store.CreateWorkExperience(ctx, &store.WorkExperience{UserID: user.ID, Title: "Engineer", Company: "Acme", StartDate: "2020-01"})
	require.NoError(t, err)

	values, err := f.indexer.IndexUser(ctx, user.ID)
	require.NoError(t, err)

	profile, err := f.indexer.LoadUserProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, vectorFor(BuildUserEmbeddingText(profile)), values)
	assert.Contains(t, BuildUserEmbeddingText(profile), "Engineer at Acme")

	stored, err := f.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-model", stored.EmbeddingModel)
	assert.Equal(t, 1, f.index.Len())

	_, ok := f.cache.Get(ctx, "user_embedding:"+user.ID)
	assert.True(t, ok)
}

func TestIndexer_IndexUserNotFound(t *testing.T) {
	f := newIndexerFixture(t)
	_, err := f.indexer.IndexUser(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	assert.Equal(t, int32(0), f.embedder.embedCalls.Load())
}

func TestIndexer_UserEmbeddingLookupOrder(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)

	user, err := f.store.CreateUser(ctx, &store.User{Bio: "Go developer"})
	require.NoError(t, err)

	// nothing stored: generated fresh
	first, err := f.indexer.UserEmbedding(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.embedder.embedCalls.Load())

	// cached
	second, err := f.indexer.UserEmbedding(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.embedder.embedCalls.Load())

	// cache dropped: falls back to the stored column
	require.NoError(t, f.cache.Invalidate(ctx, "user_embedding:*"))
	third, err := f.indexer.UserEmbedding(ctx, user.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, first, third, 1e-6)
	assert.Equal(t, int32(1), f.embedder.embedCalls.Load())

	// model changed: stored vector is no longer usable
	require.NoError(t, f.cache.Invalidate(ctx, "user_embedding:*"))
	f.embedder.model = "new-model"
	_, err = f.indexer.UserEmbedding(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.embedder.embedCalls.Load())
}

func TestIndexer_DeleteUserEmbedding(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)

	user, err := f.store.CreateUser(ctx, &store.User{Bio: "x"})
	require.NoError(t, err)
	_, err = f.indexer.IndexUser(ctx, user.ID)
	require.NoError(t, err)

	f.indexer.DeleteUserEmbedding(ctx, user.ID)
	assert.Equal(t, 0, f.index.Len())
	_, ok := f.cache.Get(ctx, "user_embedding:"+user.ID)
	assert.False(t, ok)
}

// deleteFailingIndex serves the memory index but fails every delete.
type deleteFailingIndex struct {
	*vector.MemoryIndex
	deletes atomic.Int32
}

func (d *deleteFailingIndex) Delete(context.Context, []string) error {
	d.deletes.Add(1)
	return errors.New("index unavailable")
}

func TestIndexer_DeleteJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)

	jobs := make([]*store.Job, 0, 3)
	for _, title := range []string{"Go Engineer", "Go Developer", "Data Analyst"} {
		job, err := f.store.CreateJob(ctx, &store.Job{Title: title, Company: "Acme"})
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	require.NoError(t, f.indexer.IndexJobs(ctx, jobs))
	require.Equal(t, 3, f.index.Len())

	require.NoError(t, f.indexer.DeleteJob(ctx, jobs[1].ID))
	assert.Equal(t, 2, f.index.Len())

	deleted, err := f.store.GetJob(ctx, jobs[1].ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	matches, err := vector.NewClient(f.index).Query(ctx, vector.KindJob, jobs[0].Embedding, 3, nil)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, jobs[1].ID, m.ID)
	}
}

func TestIndexer_DeleteJobIndexFailure(t *testing.T) {
	ctx := context.Background()
	f := newIndexerFixture(t)
	index := &deleteFailingIndex{MemoryIndex: f.index}
	indexer := NewIndexer(f.store, f.embedder, vector.NewClient(index), f.cache, time.Hour)

	job, err := f.store.CreateJob(ctx, &store.Job{Title: "Go Engineer", Company: "Acme"})
	require.NoError(t, err)
	require.NoError(t, indexer.IndexJobs(ctx, []*store.Job{job}))

	require.NoError(t, indexer.DeleteJob(ctx, job.ID))
	assert.Equal(t, int32(1), index.deletes.Load())

	deleted, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
