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

// Package coordinator wires the Skill Index, Analysis/Enrichment Queues,
// Prompt Registry, User Profile Store, and Query Surface behind a single
// read/write lock, realizing a single-threaded cooperative execution model
// with sync.RWMutex. Every RPC operation is a method on Core; mutating
// methods take the write lock for their entire body so pop-and-update
// sequences (claim_pending_jobs) are atomic with respect to any other
// caller.
package coordinator

import (
	"context"
	"sync"

	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/profiles"
	"github.com/skillcore/coordinator/pkg/prompts"
	"github.com/skillcore/coordinator/pkg/query"
	"github.com/skillcore/coordinator/pkg/skills"
)

// Core is the coordination core: the single point of mutation for all
// in-process state.
type Core struct {
	mu sync.RWMutex

	identity  *identity.Registry
	skillIdx  *skills.Index
	analysisQ *jobs.AnalysisQueue
	enrichQ   *jobs.EnrichmentQueue
	promptReg *prompts.Registry
	profileSt *profiles.Store
	querySurf *query.Surface
}

// New wires a Core from already-constructed components. identity is
// expected to be pre-seeded (internal/identity.NewRegistry); the caps
// passed to skills.NewIndex come from internal/config.CapsConfig.
func New(idReg *identity.Registry, maxFileSize int64, maxFiles, historyCap int) *Core {
	skillIdx := skills.NewIndex(maxFileSize, maxFiles, historyCap)
	return &Core{
		identity:  idReg,
		skillIdx:  skillIdx,
		analysisQ: jobs.NewAnalysisQueue(),
		enrichQ:   jobs.NewEnrichmentQueue(),
		promptReg: prompts.NewRegistry(),
		profileSt: profiles.NewStore(),
		querySurf: query.NewSurface(skillIdx),
	}
}

// --- Identity & Authorization ---

// AddAdmin implements add_admin(identity); admin-gated.
func (c *Core) AddAdmin(ctx context.Context, caller, newAdmin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	c.identity.AddAdmin(newAdmin)
	return nil
}

// AddWorker implements add_worker(identity); admin-gated.
func (c *Core) AddWorker(ctx context.Context, caller, newWorker string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	c.identity.AddWorker(newWorker)
	return nil
}

// RemoveWorker implements remove_worker(identity); admin-gated.
func (c *Core) RemoveWorker(ctx context.Context, caller, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	c.identity.RemoveWorker(target)
	return nil
}

// SetAnalysisEnabled implements set_analysis_enabled(bool); admin-gated.
func (c *Core) SetAnalysisEnabled(ctx context.Context, caller string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	c.identity.SetAnalysisEnabled(enabled)
	return nil
}

// SetTeeWorkerURL implements set_tee_worker_url(string); admin-gated.
func (c *Core) SetTeeWorkerURL(ctx context.Context, caller, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	c.identity.SetTeeWorkerURL(url)
	return nil
}

// GetTeeWorkerURL is advisory and unauthenticated.
func (c *Core) GetTeeWorkerURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.TeeWorkerURL()
}

// --- User Profile Store ---

// SetEncryptedCredential implements set_encrypted_credential(blob); role: user.
func (c *Core) SetEncryptedCredential(ctx context.Context, caller, blob string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return err
	}
	c.profileSt.SetEncryptedCredential(caller, blob)
	return nil
}

// RemoveEncryptedCredential implements remove_encrypted_credential(); role: user.
func (c *Core) RemoveEncryptedCredential(ctx context.Context, caller string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return err
	}
	c.profileSt.RemoveEncryptedCredential(caller)
	return nil
}

// HasCredential implements has_credential(); role: user.
func (c *Core) HasCredential(ctx context.Context, caller string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return false, err
	}
	return c.profileSt.HasCredential(caller), nil
}

// GetMyProfile implements get_my_profile(); role: user.
func (c *Core) GetMyProfile(ctx context.Context, caller string) (*profiles.UserProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return nil, err
	}
	return c.profileSt.GetMyProfile(caller)
}

// --- Prompt Registry ---

// CreatePrompt implements create_prompt(...); admin-gated.
func (c *Core) CreatePrompt(ctx context.Context, caller, name, version, template, description string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return "", err
	}
	return c.promptReg.CreatePrompt(name, version, template, description, caller), nil
}

// SetDefaultPrompt implements set_default_prompt(id); admin-gated.
func (c *Core) SetDefaultPrompt(ctx context.Context, caller, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	return c.promptReg.SetDefaultPrompt(id)
}

// DeletePrompt implements delete_prompt(id); admin-gated.
func (c *Core) DeletePrompt(ctx context.Context, caller, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	return c.promptReg.DeletePrompt(id)
}

// ListPrompts implements list_prompts; ungated read.
func (c *Core) ListPrompts() []*prompts.AnalysisPrompt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.promptReg.ListPrompts()
}

// GetPrompt implements get_prompt(id); ungated read.
func (c *Core) GetPrompt(id string) (*prompts.AnalysisPrompt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.promptReg.GetPrompt(id)
}

// GetDefaultPrompt implements get_default_prompt(); ungated read.
func (c *Core) GetDefaultPrompt() (*prompts.AnalysisPrompt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.promptReg.GetDefaultPrompt()
}
