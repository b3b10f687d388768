package store

// User is a candidate profile.
type User struct {
	ID       string
	Email    string
	FullName string
	Headline string
	Bio      string
	Location string

	// Skills is decoded from SkillsRaw when the row is read.
	Skills    []string
	SkillsRaw string

	CreatedTs int64

	Embedding          []float32
	EmbeddingModel     string
	EmbeddingUpdatedTs int64
}

// FindUser specifies the conditions for listing users.
type FindUser struct {
	ID *string

	// StaleEmbeddingFor selects users without an embedding or with one from another model.
	StaleEmbeddingFor *string

	Limit int
}

type WorkExperience struct {
	ID          string
	UserID      string
	Title       string
	Company     string
	Location    string
	Description string
	StartDate   string
	EndDate     string
	IsCurrent   bool
}

type Education struct {
	ID           string
	UserID       string
	School       string
	Degree       string
	FieldOfStudy string
	StartDate    string
	EndDate      string
	GPA          string
}

type Certification struct {
	ID                  string
	UserID              string
	Name                string
	IssuingOrganization string
	IssueDate           string
}

type Language struct {
	ID          string
	UserID      string
	Language    string
	Proficiency string
}

type Project struct {
	ID           string
	UserID       string
	Name         string
	Description  string
	Technologies []string
	URL          string
	StartDate    string
	EndDate      string
}

// JobPreferences holds what the user is looking for.
type JobPreferences struct {
	UserID             string
	DesiredRoles       []string
	PreferredLocations []string
	TargetSkills       []string
	Industries         []string
	WorkMode           string
	WillingToRelocate  bool
}
