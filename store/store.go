package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/jobmatch/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateJob(ctx context.Context, create *Job) (*Job, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateJob(ctx, create)
}

func (s *Store) ListJobs(ctx context.Context, find *FindJob) ([]*Job, error) {
	return s.driver.ListJobs(ctx, find)
}

// GetJob returns the job, or nil when it does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	list, err := s.driver.ListJobs(ctx, &FindJob{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// FindJobsWithoutEmbedding lists jobs lacking a vector from model.
// A non-positive limit selects all of them.
func (s *Store) FindJobsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*Job, error) {
	return s.driver.ListJobs(ctx, &FindJob{StaleEmbeddingFor: &model, Limit: limit})
}

func (s *Store) UpdateJobEmbedding(ctx context.Context, update *UpdateEmbedding) error {
	if update.UpdatedTs == 0 {
		update.UpdatedTs = time.Now().Unix()
	}
	return s.driver.UpdateJobEmbedding(ctx, update)
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return s.driver.DeleteJob(ctx, id)
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.SkillsRaw == "" {
		create.SkillsRaw = EncodeStringList(create.Skills)
	}
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the user, or nil when it does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	list, err := s.driver.ListUsers(ctx, &FindUser{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateUserEmbedding(ctx context.Context, update *UpdateEmbedding) error {
	if update.UpdatedTs == 0 {
		update.UpdatedTs = time.Now().Unix()
	}
	return s.driver.UpdateUserEmbedding(ctx, update)
}

func (s *Store) CreateWorkExperience(ctx context.Context, create *WorkExperience) (*WorkExperience, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	return s.driver.CreateWorkExperience(ctx, create)
}

// ListWorkExperiences lists the user's positions, most recent start first.
func (s *Store) ListWorkExperiences(ctx context.Context, userID string) ([]*WorkExperience, error) {
	return s.driver.ListWorkExperiences(ctx, userID)
}

func (s *Store) CreateEducation(ctx context.Context, create *Education) (*Education, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	return s.driver.CreateEducation(ctx, create)
}

// ListEducations lists the user's education, most recent end first.
func (s *Store) ListEducations(ctx context.Context, userID string) ([]*Education, error) {
	return s.driver.ListEducations(ctx, userID)
}

func (s *Store) CreateCertification(ctx context.Context, create *Certification) (*Certification, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	return s.driver.CreateCertification(ctx, create)
}

func (s *Store) ListCertifications(ctx context.Context, userID string) ([]*Certification, error) {
	return s.driver.ListCertifications(ctx, userID)
}

func (s *Store) CreateLanguage(ctx context.Context, create *Language) (*Language, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	return s.driver.CreateLanguage(ctx, create)
}

func (s *Store) ListLanguages(ctx context.Context, userID string) ([]*Language, error) {
	return s.driver.ListLanguages(ctx, userID)
}

func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	return s.driver.CreateProject(ctx, create)
}

// ListProjects lists up to limit projects, most recent end first.
func (s *Store) ListProjects(ctx context.Context, userID string, limit int) ([]*Project, error) {
	return s.driver.ListProjects(ctx, userID, limit)
}

func (s *Store) UpsertJobPreferences(ctx context.Context, upsert *JobPreferences) (*JobPreferences, error) {
	return s.driver.UpsertJobPreferences(ctx, upsert)
}

// GetJobPreferences returns the preferences, or nil when none were saved.
func (s *Store) GetJobPreferences(ctx context.Context, userID string) (*JobPreferences, error) {
	return s.driver.GetJobPreferences(ctx, userID)
}

func (s *Store) CreateApplication(ctx context.Context, create *Application) (*Application, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.Status == "" {
		create.Status = "applied"
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateApplication(ctx, create)
}
