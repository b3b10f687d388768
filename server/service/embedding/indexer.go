package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai"
	"github.com/hrygo/jobmatch/plugin/ai/cache"
	"github.com/hrygo/jobmatch/plugin/ai/vector"
	"github.com/hrygo/jobmatch/store"
)

const (
	userEmbeddingKeyPrefix  = "user_embedding:"
	defaultUserEmbeddingTTL = 24 * time.Hour
)

// Store is the part of the relational store the indexer reads and writes.
type Store interface {
	GetJob(ctx context.Context, id string) (*store.Job, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	ListWorkExperiences(ctx context.Context, userID string) ([]*store.WorkExperience, error)
	ListEducations(ctx context.Context, userID string) ([]*store.Education, error)
	GetJobPreferences(ctx context.Context, userID string) (*store.JobPreferences, error)
	UpdateJobEmbedding(ctx context.Context, update *store.UpdateEmbedding) error
	UpdateUserEmbedding(ctx context.Context, update *store.UpdateEmbedding) error
	DeleteJob(ctx context.Context, id string) error
}

// VectorClient is the entity-level vector index surface.
type VectorClient interface {
	UpsertEntity(ctx context.Context, ref vector.EntityRef, values []float32, metadata map[string]any) error
	BatchUpsert(ctx context.Context, entries []vector.Entry) error
	DeleteJobEmbedding(ctx context.Context, jobID string)
	DeleteUserEmbedding(ctx context.Context, userID string)
}

// Indexer embeds entities, writes the vector back onto the row and upserts
// it into the vector index.
type Indexer struct {
	store    Store
	embedder ai.EmbeddingService
	vectors  VectorClient
	cache    cache.CacheService

	userEmbeddingTTL time.Duration
}

// NewIndexer wires an indexer. cache may be nil, which disables the
// user-embedding lookup cache.
func NewIndexer(st Store, embedder ai.EmbeddingService, vectors VectorClient, kv cache.CacheService, userEmbeddingTTL time.Duration) *Indexer {
	if userEmbeddingTTL <= 0 {
		userEmbeddingTTL = defaultUserEmbeddingTTL
	}
	return &Indexer{
		store:            st,
		embedder:         embedder,
		vectors:          vectors,
		cache:            kv,
		userEmbeddingTTL: userEmbeddingTTL,
	}
}

// Model names the embedding model new vectors come from.
func (i *Indexer) Model() string {
	return i.embedder.Model()
}

// IndexJob embeds one job and stores the vector in both places.
func (i *Indexer) IndexJob(ctx context.Context, job *store.Job) error {
	return i.IndexJobs(ctx, []*store.Job{job})
}

// IndexJobs embeds jobs with one provider call, writes every vector back and
// upserts them in one index request. The batch must fit the provider limit.
func (i *Indexer) IndexJobs(ctx context.Context, jobs []*store.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	texts := make([]string, len(jobs))
	for j, job := range jobs {
		texts[j] = BuildJobEmbeddingText(job)
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(jobs) {
		return apperrors.Upstream(fmt.Sprintf("embedding provider returned %d vectors for %d jobs", len(vectors), len(jobs)), nil)
	}

	model := i.embedder.Model()
	now := time.Now().Unix()
	entries := make([]vector.Entry, len(jobs))
	for j, job := range jobs {
		entries[j] = vector.Entry{Ref: vector.JobRef(job.ID), Vector: vectors[j], Metadata: JobMetadata(job, model)}
	}
	// The row's embedding column marks a job as done, so it is written after the index.
	if err := i.vectors.BatchUpsert(ctx, entries); err != nil {
		return err
	}

	for j, job := range jobs {
		if err := i.store.UpdateJobEmbedding(ctx, &store.UpdateEmbedding{
			ID:        job.ID,
			Embedding: vectors[j],
			Model:     model,
			UpdatedTs: now,
		}); err != nil {
			return fmt.Errorf("write back embedding of job %s: %w", job.ID, err)
		}
		job.Embedding, job.EmbeddingModel, job.EmbeddingUpdatedTs = vectors[j], model, now
	}
	return nil
}

// LoadUserProfile reads the user and the joined rows the embedding text uses.
func (i *Indexer) LoadUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := i.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("user %s not found", userID))
	}

	work, err := i.store.ListWorkExperiences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load work experience of user %s: %w", userID, err)
	}
	education, err := i.store.ListEducations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load education of user %s: %w", userID, err)
	}
	prefs, err := i.store.GetJobPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences of user %s: %w", userID, err)
	}

	return &UserProfile{User: user, WorkExperience: work, Education: education, Preferences: prefs}, nil
}

// IndexUser embeds the user's full profile and stores the vector.
func (i *Indexer) IndexUser(ctx context.Context, userID string) ([]float32, error) {
	profile, err := i.LoadUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return i.IndexUserProfile(ctx, profile)
}

// IndexUserProfile embeds an already loaded profile and stores the vector.
func (i *Indexer) IndexUserProfile(ctx context.Context, profile *UserProfile) ([]float32, error) {
	user := profile.User
	values, err := i.embedder.Embed(ctx, BuildUserEmbeddingText(profile))
	if err != nil {
		return nil, err
	}

	model := i.embedder.Model()
	if err := i.vectors.UpsertEntity(ctx, vector.UserRef(user.ID), values, UserMetadata(user, model)); err != nil {
		return nil, err
	}
	if err := i.store.UpdateUserEmbedding(ctx, &store.UpdateEmbedding{
		ID:        user.ID,
		Embedding: values,
		Model:     model,
		UpdatedTs: time.Now().Unix(),
	}); err != nil {
		return nil, fmt.Errorf("write back embedding of user %s: %w", user.ID, err)
	}

	user.Embedding, user.EmbeddingModel = values, model
	i.cacheUserEmbedding(ctx, user.ID, model, values)
	return values, nil
}

type cachedEmbedding struct {
	Model  string    `json:"model"`
	Vector []float32 `json:"vector"`
}

// UserEmbedding returns the user's vector from the lookup cache, then the
// stored column, generating a fresh one as a last resort.
func (i *Indexer) UserEmbedding(ctx context.Context, userID string) ([]float32, error) {
	model := i.embedder.Model()

	if i.cache != nil {
		if data, ok := i.cache.Get(ctx, userEmbeddingKeyPrefix+userID); ok {
			var cached cachedEmbedding
			if err := json.Unmarshal(data, &cached); err == nil && cached.Model == model && len(cached.Vector) > 0 {
				return cached.Vector, nil
			}
		}
	}

	user, err := i.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("user %s not found", userID))
	}
	if len(user.Embedding) > 0 && user.EmbeddingModel == model {
		i.cacheUserEmbedding(ctx, userID, model, user.Embedding)
		return user.Embedding, nil
	}

	slog.Info("generating missing user embedding", "userID", userID)
	return i.IndexUser(ctx, userID)
}

// DeleteJob deletes the job row, then its index entry. A failing index
// delete is logged and does not fail the call.
func (i *Indexer) DeleteJob(ctx context.Context, jobID string) error {
	if err := i.store.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	i.DeleteJobEmbedding(ctx, jobID)
	return nil
}

// DeleteJobEmbedding removes the job's index entry, best effort.
func (i *Indexer) DeleteJobEmbedding(ctx context.Context, jobID string) {
	i.vectors.DeleteJobEmbedding(ctx, jobID)
}

// DeleteUserEmbedding removes the user's index entry and cached vector, best effort.
func (i *Indexer) DeleteUserEmbedding(ctx context.Context, userID string) {
	i.vectors.DeleteUserEmbedding(ctx, userID)
	if i.cache != nil {
		if err := i.cache.Invalidate(ctx, userEmbeddingKeyPrefix+userID); err != nil {
			slog.Warn("failed to drop cached user embedding", "userID", userID, "error", err)
		}
	}
}

func (i *Indexer) cacheUserEmbedding(ctx context.Context, userID, model string, values []float32) {
	if i.cache == nil {
		return
	}
	data, err := json.Marshal(cachedEmbedding{Model: model, Vector: values})
	if err != nil {
		return
	}
	if err := i.cache.Set(ctx, userEmbeddingKeyPrefix+userID, data, i.userEmbeddingTTL); err != nil {
		slog.Warn("failed to cache user embedding", "userID", userID, "error", err)
	}
}
