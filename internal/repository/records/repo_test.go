package records

import (
	"context"
	"errors"
	"testing"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

func TestProjects_OrderedByOrderAscending(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs)
	ctx := context.Background()

	mustPut := func(id string, p domain.Project) {
		t.Helper()
		if err := repo.PutProject(ctx, id, p); err != nil {
			t.Fatalf("PutProject(%s): %v", id, err)
		}
	}
	mustPut("c", domain.Project{Title: "third", Order: 3})
	mustPut("a", domain.Project{Title: "first", Order: 1})
	mustPut("b", domain.Project{Title: "second", Order: 2})

	got, err := repo.Projects(ctx, false)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Title != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].Title, want)
		}
	}
}

func TestProjects_FeaturedOnly(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs)
	ctx := context.Background()

	for i, p := range []domain.Project{
		{Title: "f1", Featured: true, Order: 2},
		{Title: "f2", Featured: true, Order: 1},
		{Title: "f3", Featured: true, Order: 3},
		{Title: "n1", Order: 4},
		{Title: "n2", Order: 5},
	} {
		if err := repo.PutProject(ctx, string(rune('a'+i)), p); err != nil {
			t.Fatalf("PutProject: %v", err)
		}
	}

	got, err := repo.Projects(ctx, true)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected exactly the 3 featured projects, got %d", len(got))
	}
	for i, want := range []string{"f2", "f1", "f3"} {
		if got[i].Title != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].Title, want)
		}
	}
}

func TestSkills_RoundTrip(t *testing.T) {
	fs := newFakeStore()
	repo := New(fs)
	ctx := context.Background()

	in := domain.Skill{Name: "Go", Category: "backend", Proficiency: 90, Order: 1}
	if err := repo.PutSkill(ctx, "go", in); err != nil {
		t.Fatalf("PutSkill: %v", err)
	}

	got, err := repo.Skills(ctx, false)
	if err != nil {
		t.Fatalf("Skills: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(got))
	}
	s := got[0]
	if s.ID != "go" || s.Name != "Go" || s.Proficiency != 90 {
		t.Errorf("unexpected skill: %+v", s)
	}
	if s.CreatedAt != nil {
		t.Errorf("expected nil createdAt for record without timestamp, got %q", *s.CreatedAt)
	}
}

func TestExperiences_StoreFailureWrapsRecordsUnavailable(t *testing.T) {
	fs := newFakeStore()
	fs.scanErr = errors.New("connection refused")
	repo := New(fs)

	_, err := repo.Experiences(context.Background(), false)
	if !errors.Is(err, domain.ErrRecordsUnavailable) {
		t.Fatalf("expected ErrRecordsUnavailable, got %v", err)
	}
}
