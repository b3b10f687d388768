package store

// Job is a job listing.
type Job struct {
	ID           string
	Title        string
	Company      string
	Location     string
	Description  string
	Remote       bool
	Hybrid       bool
	Category     string
	SalaryMin    *int
	SalaryMax    *int
	Requirements []string
	CreatedTs    int64

	// Embedding is nil until the job has been embedded.
	Embedding          []float32
	EmbeddingModel     string
	EmbeddingUpdatedTs int64
}

// HasEmbeddingFrom reports whether the job carries a vector produced by model.
func (j *Job) HasEmbeddingFrom(model string) bool {
	return len(j.Embedding) > 0 && j.EmbeddingModel == model
}

// FindJob specifies the conditions for listing jobs.
type FindJob struct {
	ID  *string
	IDs []string

	// Search matches title, company or description as a substring.
	Search       string
	CreatedAfter *int64
	Remote       *bool
	Category     *string

	// ExcludeAppliedBy drops jobs the user has an application for.
	ExcludeAppliedBy *string

	// StaleEmbeddingFor selects jobs without an embedding or with one from another model.
	StaleEmbeddingFor *string

	Limit int
}

// UpdateEmbedding writes a vector back onto an entity row.
type UpdateEmbedding struct {
	ID        string
	Embedding []float32
	Model     string
	UpdatedTs int64
}

// Application links a user to a job they applied for.
type Application struct {
	ID        string
	UserID    string
	JobID     string
	Status    string
	CreatedTs int64
}
