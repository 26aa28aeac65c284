package domain

// Portfolio records mirror the admin panel's stored documents. Timestamp
// fields are normalized by the repository to RFC 3339 strings or null before
// they reach this layer, so they are plain nullable strings here.

// Project is one portfolio project record.
type Project struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription,omitempty"`
	FeaturedImage   string   `json:"featuredImage,omitempty"`
	Gallery         []string `json:"gallery,omitempty"`
	TechStack       []string `json:"techStack"`
	GithubURL       string   `json:"githubUrl,omitempty"`
	LiveURL         string   `json:"liveUrl,omitempty"`
	Category        string   `json:"category"`
	Featured        bool     `json:"featured"`
	IsPrivate       bool     `json:"isPrivate"`
	Order           int      `json:"order"`
	CreatedAt       *string  `json:"createdAt"`
	UpdatedAt       *string  `json:"updatedAt"`
}

// Skill is one skill record, grouped by category for display and retrieval.
type Skill struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Proficiency int     `json:"proficiency"`
	Icon        string  `json:"icon,omitempty"`
	Featured    bool    `json:"featured"`
	Order       int     `json:"order"`
	CreatedAt   *string `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

// WorkExperience is one employment history record.
type WorkExperience struct {
	ID           string   `json:"id"`
	Company      string   `json:"company"`
	Role         string   `json:"role"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate,omitempty"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
	Logo         string   `json:"logo,omitempty"`
	Featured     bool     `json:"featured"`
	Order        int      `json:"order"`
	CreatedAt    *string  `json:"createdAt"`
	UpdatedAt    *string  `json:"updatedAt"`
}
