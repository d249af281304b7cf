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
	"context"

	"github.com/skillcore/coordinator/pkg/skills"
)

// AddSkill implements add_skill(...); admin-gated.
func (c *Core) AddSkill(ctx context.Context, caller string, skill skills.Skill) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	return c.skillIdx.Add(skill)
}

// AddSkillBatch implements a batch add_skill variant; admin-gated. Returns
// the count of skills actually inserted (duplicates silently skipped, per
// pkg/skills.Index.AddBatch).
func (c *Core) AddSkillBatch(ctx context.Context, caller string, batch []skills.Skill) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return 0, err
	}
	return c.skillIdx.AddBatch(batch)
}

// SetSkillFiles implements set_skill_files(...); role: worker or admin.
func (c *Core) SetSkillFiles(ctx context.Context, caller, id string, files []skills.SkillFile, sourceURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireWorkerOrAdmin(ctx, caller); err != nil {
		return err
	}
	return c.skillIdx.SetFiles(id, files, caller, sourceURL)
}

// AddSkillFile implements add_skill_file(skill_id, file); role: worker or
// admin, using the same upsert-and-version rules as SetSkillFiles.
func (c *Core) AddSkillFile(ctx context.Context, caller, id string, file skills.SkillFile, sourceURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireWorkerOrAdmin(ctx, caller); err != nil {
		return err
	}
	return c.skillIdx.AddFile(id, file, caller, sourceURL)
}

// RecordInstall implements record_install(id); role: user (any
// authenticated caller may record an install).
func (c *Core) RecordInstall(ctx context.Context, caller, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return 0, err
	}
	return c.skillIdx.RecordInstall(id)
}

// VerifySkillFiles implements verify_skill_files(id, claims); ungated read.
func (c *Core) VerifySkillFiles(id string, claims []skills.ClaimedChecksum) (skills.VerifyReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skillIdx.VerifySkillFiles(id, claims)
}

// VerifyFileChecksum implements the single-file verify helper; ungated read.
func (c *Core) VerifyFileChecksum(id, path, claimed string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skillIdx.VerifyFileChecksum(id, path, claimed)
}
