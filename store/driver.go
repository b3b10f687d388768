package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema when it does not exist yet.
	Migrate(ctx context.Context) error

	// Job model related methods.
	CreateJob(ctx context.Context, create *Job) (*Job, error)
	ListJobs(ctx context.Context, find *FindJob) ([]*Job, error)
	UpdateJobEmbedding(ctx context.Context, update *UpdateEmbedding) error
	DeleteJob(ctx context.Context, id string) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUserEmbedding(ctx context.Context, update *UpdateEmbedding) error

	// Profile rows, all keyed by owner.
	CreateWorkExperience(ctx context.Context, create *WorkExperience) (*WorkExperience, error)
	ListWorkExperiences(ctx context.Context, userID string) ([]*WorkExperience, error)
	CreateEducation(ctx context.Context, create *Education) (*Education, error)
	ListEducations(ctx context.Context, userID string) ([]*Education, error)
	CreateCertification(ctx context.Context, create *Certification) (*Certification, error)
	ListCertifications(ctx context.Context, userID string) ([]*Certification, error)
	CreateLanguage(ctx context.Context, create *Language) (*Language, error)
	ListLanguages(ctx context.Context, userID string) ([]*Language, error)
	CreateProject(ctx context.Context, create *Project) (*Project, error)
	ListProjects(ctx context.Context, userID string, limit int) ([]*Project, error)
	UpsertJobPreferences(ctx context.Context, upsert *JobPreferences) (*JobPreferences, error)
	GetJobPreferences(ctx context.Context, userID string) (*JobPreferences, error)

	// Application model related methods.
	CreateApplication(ctx context.Context, create *Application) (*Application, error)
}
