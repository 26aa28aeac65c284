package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/eldadyikne/portfolio-agent/internal/db"
	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// Collection key segments under domain.KeyPrefix.
const (
	colProjects   = "projects"
	colSkills     = "skills"
	colExperience = "experience"
)

// store is the consumer interface for the records repository (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and writes portfolio records stored as JSON documents.
type Repo struct {
	store store
}

// New creates a records repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Projects returns project records, optionally featured only, ordered by
// the stored order field ascending (ties by ID for determinism).
func (r *Repo) Projects(ctx context.Context, featuredOnly bool) ([]domain.Project, error) {
	var out []domain.Project
	err := r.eachDoc(ctx, colProjects, func(id string, raw []byte) error {
		var d projectDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("unmarshal project %s: %w", id, err)
		}
		if featuredOnly && !d.Featured {
			return nil
		}
		out = append(out, projectFromDTO(id, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Skills returns skill records, optionally featured only, ordered ascending.
func (r *Repo) Skills(ctx context.Context, featuredOnly bool) ([]domain.Skill, error) {
	var out []domain.Skill
	err := r.eachDoc(ctx, colSkills, func(id string, raw []byte) error {
		var d skillDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("unmarshal skill %s: %w", id, err)
		}
		if featuredOnly && !d.Featured {
			return nil
		}
		out = append(out, skillFromDTO(id, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Experiences returns work-experience records, optionally featured only,
// ordered ascending.
func (r *Repo) Experiences(ctx context.Context, featuredOnly bool) ([]domain.WorkExperience, error) {
	var out []domain.WorkExperience
	err := r.eachDoc(ctx, colExperience, func(id string, raw []byte) error {
		var d experienceDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("unmarshal experience %s: %w", id, err)
		}
		if featuredOnly && !d.Featured {
			return nil
		}
		out = append(out, experienceFromDTO(id, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutProject stores a project record. Used by seeding and tests; the admin
// panel writes through the same shape.
func (r *Repo) PutProject(ctx context.Context, id string, p domain.Project) error {
	d := projectDTO{
		Title: p.Title, Slug: p.Slug, Description: p.Description,
		LongDescription: p.LongDescription, FeaturedImage: p.FeaturedImage,
		Gallery: p.Gallery, TechStack: p.TechStack,
		GithubURL: p.GithubURL, LiveURL: p.LiveURL, Category: p.Category,
		Featured: p.Featured, IsPrivate: p.IsPrivate, Order: p.Order,
	}
	return r.putDoc(ctx, colProjects, id, d)
}

// PutSkill stores a skill record.
func (r *Repo) PutSkill(ctx context.Context, id string, s domain.Skill) error {
	d := skillDTO{
		Name: s.Name, Category: s.Category, Proficiency: s.Proficiency,
		Icon: s.Icon, Featured: s.Featured, Order: s.Order,
	}
	return r.putDoc(ctx, colSkills, id, d)
}

// PutExperience stores a work-experience record.
func (r *Repo) PutExperience(ctx context.Context, id string, e domain.WorkExperience) error {
	d := experienceDTO{
		Company: e.Company, Role: e.Role, StartDate: e.StartDate,
		EndDate: e.EndDate, Description: e.Description,
		Achievements: e.Achievements, Technologies: e.Technologies,
		Logo: e.Logo, Featured: e.Featured, Order: e.Order,
	}
	return r.putDoc(ctx, colExperience, id, d)
}

func (r *Repo) putDoc(ctx context.Context, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", collection, id, err)
	}
	key := recordKey(collection, id)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// eachDoc scans a collection's keys and invokes fn per document. A document
// deleted between scan and read is skipped.
func (r *Repo) eachDoc(ctx context.Context, collection string, fn func(id string, raw []byte) error) error {
	pattern := recordKey(collection, "*")
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return fmt.Errorf("%w: scan %s: %w", domain.ErrRecordsUnavailable, pattern, err)
	}

	for _, key := range keys {
		raw, err := r.store.JSONGet(ctx, key, "$")
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return fmt.Errorf("%w: json.get %s: %w", domain.ErrRecordsUnavailable, key, err)
		}

		doc, err := unwrapJSONPath(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		if err := fn(idFromKey(collection, key), doc); err != nil {
			return err
		}
	}
	return nil
}

// unwrapJSONPath unwraps the single-element array JSON.GET returns for "$".
func unwrapJSONPath(raw []byte) ([]byte, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		// Legacy root-path documents come back unwrapped.
		return raw, nil
	}
	if len(elems) == 0 {
		return nil, errors.New("empty json path result")
	}
	return elems[0], nil
}

func recordKey(collection, id string) string {
	return domain.KeyPrefix + collection + ":" + id
}

func idFromKey(collection, key string) string {
	return strings.TrimPrefix(key, domain.KeyPrefix+collection+":")
}
