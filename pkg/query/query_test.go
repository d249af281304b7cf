package query

import (
	"testing"

	"github.com/skillcore/coordinator/pkg/analysis"
	"github.com/skillcore/coordinator/pkg/skills"
)

func newIndexWithSkills(t *testing.T) *skills.Index {
	t.Helper()
	idx := skills.NewIndex(0, 0, 50)
	seed := []skills.Skill{
		{ID: "acme/alpha", Name: "alpha", Owner: "acme", Repo: "alpha", Description: "first skill", InstallCount: 10, Stars: 2},
		{ID: "acme/beta", Name: "beta", Owner: "acme", Repo: "beta", Description: "second skill", InstallCount: 30, Stars: 9},
		{ID: "other/gamma", Name: "gamma", Owner: "other", Repo: "gamma", Description: "third", InstallCount: 5, Stars: 1},
	}
	for _, s := range seed {
		if err := idx.Add(s); err != nil {
			t.Fatalf("seed add failed: %v", err)
		}
	}
	if err := idx.AppendAnalysis("acme/beta", analysis.SkillAnalysis{
		Ratings:         analysis.Ratings{Overall: 4.5},
		PrimaryCategory: "productivity",
		ProvidesMCP:     true,
	}); err != nil {
		t.Fatalf("append analysis failed: %v", err)
	}
	return idx
}

func TestListSkillsFiltered_TotalCountReflectsFilterNotPage(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)

	page, total := q.ListSkillsFiltered(1, 0, SortName, "", "")
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(page) != 1 {
		t.Fatalf("page length = %d, want 1", len(page))
	}
}

func TestListSkillsFiltered_SearchSubstring(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)

	page, total := q.ListSkillsFiltered(0, 0, SortName, "ACME", "")
	if total != 2 {
		t.Fatalf("total = %d, want 2, got %+v", total, page)
	}
}

func TestListSkillsFiltered_SortInstalls(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)

	page, _ := q.ListSkillsFiltered(0, 0, SortInstalls, "", "")
	if page[0].ID != "acme/beta" {
		t.Errorf("first by installs = %s, want acme/beta", page[0].ID)
	}
}

func TestListSkillsFiltered_RatingSortsUnratedLast(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)

	page, _ := q.ListSkillsFiltered(0, 0, SortRating, "", "")
	if page[0].ID != "acme/beta" {
		t.Fatalf("first by rating = %s, want acme/beta (the only rated skill)", page[0].ID)
	}
}

func TestListSkillsFiltered_CategoryFilter(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)

	page, total := q.ListSkillsFiltered(0, 0, SortName, "", "productivity")
	if total != 1 || page[0].ID != "acme/beta" {
		t.Fatalf("got total=%d page=%+v", total, page)
	}
}

func TestSearchSkills_EmptyQueryReturnsEmpty(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	if results := q.SearchSkills(""); len(results) != 0 {
		t.Fatalf("expected empty, got %+v", results)
	}
}

func TestSearchSkills_RelevanceOrdering(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	results := q.SearchSkills("beta")
	if len(results) != 1 || results[0].Skill.ID != "acme/beta" || results[0].Relevance <= 0 {
		t.Fatalf("got %+v", results)
	}
}

func TestGetSkillsProvidingMCP(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	out := q.GetSkillsProvidingMCP()
	if len(out) != 1 || out[0].ID != "acme/beta" {
		t.Fatalf("got %+v", out)
	}
}

func TestGetUnanalyzedSkills(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	out := q.GetUnanalyzedSkills()
	if len(out) != 2 {
		t.Fatalf("got %d, want 2", len(out))
	}
}

func TestGetCategories(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	cats := q.GetCategories()
	if len(cats) != 1 || cats[0] != "productivity" {
		t.Fatalf("got %+v", cats)
	}
}

func TestGetStats(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	stats := q.GetStats(7)
	if stats.TotalSkills != 3 || stats.AnalyzedSkills != 1 || stats.TotalInstalls != 45 || stats.TotalUsers != 7 {
		t.Fatalf("got %+v", stats)
	}
}

func TestGetAllAnalysisHistory(t *testing.T) {
	idx := newIndexWithSkills(t)
	q := NewSurface(idx)
	entries, total := q.GetAllAnalysisHistory(0, 0)
	if total != 1 || entries[0].SkillID != "acme/beta" {
		t.Fatalf("got total=%d entries=%+v", total, entries)
	}
}
