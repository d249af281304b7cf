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

package coordinator

import (
	"encoding/json"

	"github.com/skillcore/coordinator/pkg/query"
	"github.com/skillcore/coordinator/pkg/skills"
)

// ListSkillsFiltered implements list_skills_filtered; anonymous read.
func (c *Core) ListSkillsFiltered(limit, offset int, sortKey query.SortKey, searchSubstring, category string) ([]*skills.Skill, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.ListSkillsFiltered(limit, offset, sortKey, searchSubstring, category)
}

// GetSkill implements get_skill(id); anonymous read.
func (c *Core) GetSkill(id string) (*skills.Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkill(id)
}

// SearchSkills implements search_skills(query); anonymous read.
func (c *Core) SearchSkills(q string) []query.SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.SearchSkills(q)
}

// GetSkillsByCategory implements get_skills_by_category; anonymous read.
func (c *Core) GetSkillsByCategory(category string) []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkillsByCategory(category)
}

// GetSkillsByOwner implements get_skills_by_owner; anonymous read.
func (c *Core) GetSkillsByOwner(owner string) []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkillsByOwner(owner)
}

// GetTopRatedSkills implements get_top_rated_skills(n); anonymous read.
func (c *Core) GetTopRatedSkills(n int) []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetTopRatedSkills(n)
}

// GetSkillsProvidingMCP implements get_skills_providing_mcp(); anonymous read.
func (c *Core) GetSkillsProvidingMCP() []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkillsProvidingMCP()
}

// GetSkillsWithFlags implements get_skills_with_flags(); anonymous read.
func (c *Core) GetSkillsWithFlags() []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkillsWithFlags()
}

// GetSkillsByTopicRating implements get_skills_by_topic_rating(topic, n); anonymous read.
func (c *Core) GetSkillsByTopicRating(topic string, n int) []query.TopicRated {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetSkillsByTopicRating(topic, n)
}

// GetUnanalyzedSkills implements get_unanalyzed_skills(); anonymous read.
func (c *Core) GetUnanalyzedSkills() []*skills.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetUnanalyzedSkills()
}

// GetCategories implements get_categories(); anonymous read.
func (c *Core) GetCategories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetCategories()
}

// GetAllAnalysisHistory implements get_all_analysis_history(limit, offset); anonymous read.
func (c *Core) GetAllAnalysisHistory(limit, offset int) ([]query.HistoryEntry, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetAllAnalysisHistory(limit, offset)
}

// GetStats implements get_stats(); anonymous read. total_users is sourced
// from the Profile Store, which pkg/query has no visibility into.
func (c *Core) GetStats() query.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetStats(c.profileSt.Count())
}

// GetAnalysisHistoryStats implements get_analysis_history_stats(); anonymous read.
func (c *Core) GetAnalysisHistoryStats() query.AnalysisHistoryStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.querySurf.GetAnalysisHistoryStats()
}

// MemoryStats reports the get_memory_stats() byte counters: the Skill
// Index estimate plus JSON-marshal-length estimates for the job queues
// and profile store, summed into total.
func (c *Core) MemoryStats() (query.MemoryStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skillsBytes, err := c.querySurf.GetMemoryStats()
	if err != nil {
		return query.MemoryStats{}, err
	}

	analysisJobs := c.analysisQ.List(0)
	enrichJobs := c.enrichQ.List(0)
	jobsLen, err := marshalLen(struct {
		Analysis interface{}
		Enrich   interface{}
	}{analysisJobs, enrichJobs})
	if err != nil {
		return query.MemoryStats{}, err
	}

	profilesLen, err := marshalLen(c.profileSt.All())
	if err != nil {
		return query.MemoryStats{}, err
	}

	stats := query.MemoryStats{
		SkillsBytes:   skillsBytes,
		JobsBytes:     jobsLen,
		ProfilesBytes: profilesLen,
	}
	stats.TotalBytes = stats.SkillsBytes + stats.JobsBytes + stats.ProfilesBytes
	return stats, nil
}

func marshalLen(v any) (int64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
