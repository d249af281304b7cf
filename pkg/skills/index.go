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

package skills

import (
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/pkg/analysis"
)

// Index is the mapping skill_id -> Skill. It is not safe for
// concurrent use on its own; callers (pkg/coordinator) serialize access.
type Index struct {
	byID        map[string]*Skill
	maxFileSize int64
	maxFiles    int
	historyCap  int
}

// NewIndex constructs an empty Skill Index with the configured resource
// bounds.
func NewIndex(maxFileSize int64, maxFiles, historyCap int) *Index {
	return &Index{
		byID:        make(map[string]*Skill),
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
		historyCap:  historyCap,
	}
}

// Add inserts a new skill; duplicate id is a Conflict error.
func (idx *Index) Add(skill Skill) error {
	canonical, owner, repo, _, err := ParseID(skill.ID)
	if err != nil {
		return err
	}
	if _, exists := idx.byID[canonical]; exists {
		return apperrors.Newf(apperrors.Conflict, "skill %q already exists", canonical)
	}
	if err := ValidateFiles(skill.Files, idx.maxFileSize, idx.maxFiles); err != nil {
		return err
	}

	skill.ID = canonical
	skill.Owner = owner
	skill.Repo = repo
	skill.FilesChecksum = AggregateChecksum(skill.Files)
	now := time.Now()
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = now
	}
	skill.UpdatedAt = now

	copied := skill
	idx.byID[canonical] = &copied
	return nil
}

// AddBatch inserts skills, silently skipping duplicate ids, returning the
// count actually inserted.
func (idx *Index) AddBatch(batch []Skill) (int, error) {
	inserted := 0
	for _, s := range batch {
		err := idx.Add(s)
		if err == nil {
			inserted++
			continue
		}
		if apperrors.KindOf(err) == apperrors.Conflict {
			continue
		}
		return inserted, err
	}
	return inserted, nil
}

// Get returns the skill for id, or NotFound.
func (idx *Index) Get(id string) (*Skill, error) {
	canonical, _, _, _, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	skill, ok := idx.byID[canonical]
	if !ok {
		return nil, apperrors.NewNotFound("skill")
	}
	return skill, nil
}

// All returns every skill in the index, in no particular order.
func (idx *Index) All() []*Skill {
	out := make([]*Skill, 0, len(idx.byID))
	for _, s := range idx.byID {
		out = append(out, s)
	}
	return out
}

// SetFiles replaces a skill's file set, recomputing files_checksum and
// appending a SkillFileVersion entry per changed-or-new file.
func (idx *Index) SetFiles(id string, files []SkillFile, fetchedBy, sourceURL string) error {
	skill, err := idx.Get(id)
	if err != nil {
		return err
	}
	if err := ValidateFiles(files, idx.maxFileSize, idx.maxFiles); err != nil {
		return err
	}

	prevChecksums := make(map[string]string, len(skill.Files))
	for _, f := range skill.Files {
		prevChecksums[f.Path] = f.Checksum
	}

	now := time.Now()
	for _, f := range files {
		if prev, existed := prevChecksums[f.Path]; !existed || prev != f.Checksum {
			skill.FileHistory = append(skill.FileHistory, SkillFileVersion{
				Path: f.Path, Checksum: f.Checksum, SizeBytes: f.SizeBytes,
				FetchedAt: now, FetchedBy: fetchedBy, SourceURL: sourceURL,
			})
		}
	}

	skill.Files = files
	skill.FilesChecksum = AggregateChecksum(files)
	skill.UpdatedAt = now
	return nil
}

// AddFile upserts a single file using the same versioning rules as SetFiles.
func (idx *Index) AddFile(id string, file SkillFile, fetchedBy, sourceURL string) error {
	skill, err := idx.Get(id)
	if err != nil {
		return err
	}
	next := make([]SkillFile, 0, len(skill.Files)+1)
	replaced := false
	for _, existing := range skill.Files {
		if existing.Path == file.Path {
			next = append(next, file)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, file)
	}
	return idx.SetFiles(id, next, fetchedBy, sourceURL)
}

// RecordInstall increments install_count and returns the new value.
func (idx *Index) RecordInstall(id string) (int64, error) {
	skill, err := idx.Get(id)
	if err != nil {
		return 0, err
	}
	skill.InstallCount++
	skill.UpdatedAt = time.Now()
	return skill.InstallCount, nil
}

// IndexSnapshot is the deterministically serializable region for the
// Skill Index.
type IndexSnapshot struct {
	Skills []*Skill `json:"skills"`
}

// Snapshot captures the index for the pre-shutdown hook.
func (idx *Index) Snapshot() IndexSnapshot {
	out := make([]*Skill, 0, len(idx.byID))
	for _, s := range idx.byID {
		out = append(out, s)
	}
	return IndexSnapshot{Skills: out}
}

// Restore replaces the index's state with a prior Snapshot, for the
// post-start hook. Resource bounds (maxFileSize, maxFiles,
// historyCap) are taken from the live index, not the snapshot.
func (idx *Index) Restore(snap IndexSnapshot) {
	idx.byID = make(map[string]*Skill, len(snap.Skills))
	for _, s := range snap.Skills {
		idx.byID[s.ID] = s
	}
}

// AppendAnalysis prepends a completed analysis to the skill's history,
// evicting the oldest entry once historyCap is exceeded.
func (idx *Index) AppendAnalysis(id string, entry analysis.SkillAnalysis) error {
	skill, err := idx.Get(id)
	if err != nil {
		return err
	}
	skill.AnalysisHistory = append([]analysis.SkillAnalysis{entry}, skill.AnalysisHistory...)
	if idx.historyCap > 0 && len(skill.AnalysisHistory) > idx.historyCap {
		skill.AnalysisHistory = skill.AnalysisHistory[:idx.historyCap]
	}
	current := entry
	skill.Analysis = &current
	skill.UpdatedAt = time.Now()
	return nil
}
