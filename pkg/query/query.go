/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package query implements the read-only Query Surface:
// filter/sort/paginate over the Skill Index, plus aggregate stats. Every
// operation here is anonymous and non-blocking — it takes a read lock in
// pkg/coordinator, never a write lock.
package query

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/skillcore/coordinator/pkg/analysis"
	"github.com/skillcore/coordinator/pkg/skills"
)

// SortKey is one of the closed sort orders for list_skills_filtered.
type SortKey string

const (
	SortRating  SortKey = "rating"
	SortInstalls SortKey = "installs"
	SortStars   SortKey = "stars"
	SortRecent  SortKey = "recent"
	SortName    SortKey = "name"
)

// Surface implements the Query Surface operations over a skills.Index.
type Surface struct {
	index *skills.Index
}

// NewSurface wraps a Skill Index with read-only query operations.
func NewSurface(index *skills.Index) *Surface {
	return &Surface{index: index}
}

func matchesSearch(s *skills.Skill, substring string) bool {
	if substring == "" {
		return true
	}
	needle := strings.ToLower(substring)
	haystacks := []string{s.Owner, s.Repo, s.Name, s.Description}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func matchesCategory(s *skills.Skill, category string) bool {
	if category == "" {
		return true
	}
	if s.Analysis == nil {
		return false
	}
	if s.Analysis.PrimaryCategory == category {
		return true
	}
	for _, c := range s.Analysis.SecondaryCategories {
		if c == category {
			return true
		}
	}
	return false
}

func overallRating(s *skills.Skill) (float64, bool) {
	if s.Analysis == nil {
		return 0, false
	}
	return s.Analysis.Ratings.Overall, true
}

func sortSkills(list []*skills.Skill, sortKey SortKey) {
	switch sortKey {
	case SortInstalls:
		sort.SliceStable(list, func(i, j int) bool { return list[i].InstallCount > list[j].InstallCount })
	case SortStars:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Stars > list[j].Stars })
	case SortRecent:
		sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	case SortName:
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	case SortRating:
		fallthrough
	default:
		sort.SliceStable(list, func(i, j int) bool {
			ri, oki := overallRating(list[i])
			rj, okj := overallRating(list[j])
			if oki != okj {
				return oki // rated skills sort before unrated ("unrated last")
			}
			if !oki {
				return false
			}
			return ri > rj
		})
	}
}

// ListSkillsFiltered implements list_skills_filtered:
// total_count reflects the filter, not the page.
func (q *Surface) ListSkillsFiltered(limit, offset int, sortKey SortKey, searchSubstring, category string) ([]*skills.Skill, int) {
	filtered := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if matchesSearch(s, searchSubstring) && matchesCategory(s, category) {
			filtered = append(filtered, s)
		}
	}
	sortSkills(filtered, sortKey)
	total := len(filtered)

	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*skills.Skill{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return filtered[offset:end], total
}

// GetSkill implements get_skill(id).
func (q *Surface) GetSkill(id string) (*skills.Skill, error) {
	return q.index.Get(id)
}

// SearchResult is one entry of search_skills' response.
type SearchResult struct {
	Skill     *skills.Skill
	Relevance float64
}

// SearchSkills implements search_skills(query) -> [{skill, relevance}]: a
// non-negative relevance score, ordered desc, empty query returns empty.
func (q *Surface) SearchSkills(query string) []SearchResult {
	if query == "" {
		return []SearchResult{}
	}
	needle := strings.ToLower(query)
	results := make([]SearchResult, 0)
	for _, s := range q.index.All() {
		score := relevanceScore(s, needle)
		if score > 0 {
			results = append(results, SearchResult{Skill: s, Relevance: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	return results
}

// relevanceScore weights name/owner/repo matches above description matches
// (3, 2 and 1 per matching field; repeat occurrences are not counted), a
// simple non-negative scoring scheme.
func relevanceScore(s *skills.Skill, needle string) float64 {
	var score float64
	if strings.Contains(strings.ToLower(s.Name), needle) {
		score += 3
	}
	if strings.Contains(strings.ToLower(s.Owner), needle) || strings.Contains(strings.ToLower(s.Repo), needle) {
		score += 2
	}
	if strings.Contains(strings.ToLower(s.Description), needle) {
		score += 1
	}
	return score
}

// GetSkillsByCategory implements get_skills_by_category.
func (q *Surface) GetSkillsByCategory(category string) []*skills.Skill {
	out := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if matchesCategory(s, category) {
			out = append(out, s)
		}
	}
	return out
}

// GetSkillsByOwner implements get_skills_by_owner.
func (q *Surface) GetSkillsByOwner(owner string) []*skills.Skill {
	out := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if s.Owner == owner {
			out = append(out, s)
		}
	}
	return out
}

// GetTopRatedSkills implements get_top_rated_skills(n).
func (q *Surface) GetTopRatedSkills(n int) []*skills.Skill {
	rated := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if s.Analysis != nil {
			rated = append(rated, s)
		}
	}
	sortSkills(rated, SortRating)
	if n > 0 && n < len(rated) {
		rated = rated[:n]
	}
	return rated
}

// GetSkillsProvidingMCP implements get_skills_providing_mcp().
func (q *Surface) GetSkillsProvidingMCP() []*skills.Skill {
	out := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if s.Analysis != nil && s.Analysis.ProvidesMCP {
			out = append(out, s)
		}
	}
	return out
}

// GetSkillsWithFlags implements get_skills_with_flags().
func (q *Surface) GetSkillsWithFlags() []*skills.Skill {
	out := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if s.Analysis != nil && len(s.Analysis.Ratings.Flags) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// TopicRated pairs a skill with its score for a specific topic.
type TopicRated struct {
	Skill *skills.Skill
	Score float64
}

// GetSkillsByTopicRating implements get_skills_by_topic_rating(topic, n).
func (q *Surface) GetSkillsByTopicRating(topic string, n int) []TopicRated {
	out := make([]TopicRated, 0)
	for _, s := range q.index.All() {
		if s.Analysis == nil {
			continue
		}
		for _, t := range s.Analysis.Ratings.Topics {
			if string(t.Topic) == topic {
				out = append(out, TopicRated{Skill: s, Score: t.Score})
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// GetUnanalyzedSkills implements get_unanalyzed_skills().
func (q *Surface) GetUnanalyzedSkills() []*skills.Skill {
	out := make([]*skills.Skill, 0)
	for _, s := range q.index.All() {
		if s.Analysis == nil {
			out = append(out, s)
		}
	}
	return out
}

// GetCategories implements get_categories(): sorted unique primary +
// secondary categories across analyzed skills.
func (q *Surface) GetCategories() []string {
	seen := make(map[string]struct{})
	for _, s := range q.index.All() {
		if s.Analysis == nil {
			continue
		}
		if s.Analysis.PrimaryCategory != "" {
			seen[s.Analysis.PrimaryCategory] = struct{}{}
		}
		for _, c := range s.Analysis.SecondaryCategories {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HistoryEntry pairs a skill id with one of its analysis-history entries.
type HistoryEntry struct {
	SkillID  string
	Analysis analysis.SkillAnalysis
}

// GetAllAnalysisHistory implements get_all_analysis_history(limit, offset):
// newest first by analyzed_at across all skills.
func (q *Surface) GetAllAnalysisHistory(limit, offset int) ([]HistoryEntry, int) {
	all := make([]HistoryEntry, 0)
	for _, s := range q.index.All() {
		for _, entry := range s.AnalysisHistory {
			all = append(all, HistoryEntry{SkillID: s.ID, Analysis: entry})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Analysis.AnalyzedAt.After(all[j].Analysis.AnalyzedAt)
	})
	total := len(all)

	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []HistoryEntry{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total
}

// Stats implements get_stats().
type Stats struct {
	TotalSkills    int64
	AnalyzedSkills int64
	TotalInstalls  int64
	TotalUsers     int64
}

// GetStats implements get_stats(). totalUsers is supplied by
// the caller since the Skill Index has no knowledge of the Profile Store.
func (q *Surface) GetStats(totalUsers int64) Stats {
	var stats Stats
	for _, s := range q.index.All() {
		stats.TotalSkills++
		if s.Analysis != nil {
			stats.AnalyzedSkills++
		}
		stats.TotalInstalls += s.InstallCount
	}
	stats.TotalUsers = totalUsers
	return stats
}

// AnalysisHistoryStats implements get_analysis_history_stats().
type AnalysisHistoryStats struct {
	TotalEntries     int64
	SkillsWithHistory int64
}

// GetAnalysisHistoryStats implements get_analysis_history_stats().
func (q *Surface) GetAnalysisHistoryStats() AnalysisHistoryStats {
	var stats AnalysisHistoryStats
	for _, s := range q.index.All() {
		if len(s.AnalysisHistory) > 0 {
			stats.SkillsWithHistory++
			stats.TotalEntries += int64(len(s.AnalysisHistory))
		}
	}
	return stats
}

// MemoryStats implements get_memory_stats(): byte counters estimated via
// JSON marshal length, consistent with the lifecycle snapshot encoder.
type MemoryStats struct {
	TotalBytes       int64
	SkillsBytes      int64
	JobsBytes        int64
	ProfilesBytes    int64
}

// GetMemoryStats estimates byte usage for the Skill Index container;
// pkg/coordinator aggregates this with the other containers' estimates
// into the final MemoryStats.
func (q *Surface) GetMemoryStats() (int64, error) {
	data, err := json.Marshal(q.index.All())
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
