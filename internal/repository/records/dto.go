package records

import (
	"time"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// Stored record shapes. Timestamps are kept as epoch milliseconds in the
// store and normalized to RFC 3339 strings (or null) on the way out, so the
// transport never leaks raw store timestamps.

type projectDTO struct {
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
	CreatedAtMs     int64    `json:"createdAtMs,omitempty"`
	UpdatedAtMs     int64    `json:"updatedAtMs,omitempty"`
}

type skillDTO struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Proficiency int    `json:"proficiency"`
	Icon        string `json:"icon,omitempty"`
	Featured    bool   `json:"featured"`
	Order       int    `json:"order"`
	CreatedAtMs int64  `json:"createdAtMs,omitempty"`
	UpdatedAtMs int64  `json:"updatedAtMs,omitempty"`
}

type experienceDTO struct {
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
	CreatedAtMs  int64    `json:"createdAtMs,omitempty"`
	UpdatedAtMs  int64    `json:"updatedAtMs,omitempty"`
}

// isoOrNil converts epoch milliseconds to an RFC 3339 string, nil for zero.
func isoOrNil(ms int64) *string {
	if ms <= 0 {
		return nil
	}
	s := time.UnixMilli(ms).UTC().Format(time.RFC3339)
	return &s
}

func projectFromDTO(id string, d projectDTO) domain.Project {
	return domain.Project{
		ID:              id,
		Title:           d.Title,
		Slug:            d.Slug,
		Description:     d.Description,
		LongDescription: d.LongDescription,
		FeaturedImage:   d.FeaturedImage,
		Gallery:         d.Gallery,
		TechStack:       d.TechStack,
		GithubURL:       d.GithubURL,
		LiveURL:         d.LiveURL,
		Category:        d.Category,
		Featured:        d.Featured,
		IsPrivate:       d.IsPrivate,
		Order:           d.Order,
		CreatedAt:       isoOrNil(d.CreatedAtMs),
		UpdatedAt:       isoOrNil(d.UpdatedAtMs),
	}
}

func skillFromDTO(id string, d skillDTO) domain.Skill {
	return domain.Skill{
		ID:          id,
		Name:        d.Name,
		Category:    d.Category,
		Proficiency: d.Proficiency,
		Icon:        d.Icon,
		Featured:    d.Featured,
		Order:       d.Order,
		CreatedAt:   isoOrNil(d.CreatedAtMs),
		UpdatedAt:   isoOrNil(d.UpdatedAtMs),
	}
}

func experienceFromDTO(id string, d experienceDTO) domain.WorkExperience {
	return domain.WorkExperience{
		ID:           id,
		Company:      d.Company,
		Role:         d.Role,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		Description:  d.Description,
		Achievements: d.Achievements,
		Technologies: d.Technologies,
		Logo:         d.Logo,
		Featured:     d.Featured,
		Order:        d.Order,
		CreatedAt:    isoOrNil(d.CreatedAtMs),
		UpdatedAt:    isoOrNil(d.UpdatedAtMs),
	}
}
