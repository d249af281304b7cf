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

// Package prompts implements the Analysis Prompt Registry: a
// mapping of prompt_id -> AnalysisPrompt with at most one default.
package prompts

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// AnalysisPrompt is a single versioned prompt template. Description is an
// extra field create_prompt takes alongside name/version/template; this
// registry persists it with the rest of the record.
type AnalysisPrompt struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Version          string    `json:"version"`
	PromptTemplate  string    `json:"prompt_template"`
	Description     string    `json:"description,omitempty"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	IsDefault       bool      `json:"is_default"`
}

// Registry is the Prompt Registry. Not safe for concurrent use
// on its own; pkg/coordinator serializes access.
type Registry struct {
	byID      map[string]*AnalysisPrompt
	defaultID string
}

// NewRegistry constructs an empty Prompt Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*AnalysisPrompt)}
}

// CreatePrompt implements create_prompt(name, version, template,
// description) -> id. Role: admin (enforced by the caller via
// internal/identity before invoking this method).
func (r *Registry) CreatePrompt(name, version, template, description, createdBy string) string {
	id := uuid.NewString()
	r.byID[id] = &AnalysisPrompt{
		ID:             id,
		Name:           name,
		Version:        version,
		PromptTemplate: template,
		Description:    description,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	return id
}

// SetDefaultPrompt implements set_default_prompt(id): flips is_default
// atomically, clearing the flag on whichever prompt previously held it
//.
func (r *Registry) SetDefaultPrompt(id string) error {
	prompt, ok := r.byID[id]
	if !ok {
		return apperrors.Newf(apperrors.NotFound, "prompt %q not found", id)
	}
	if r.defaultID != "" && r.defaultID != id {
		if prev, ok := r.byID[r.defaultID]; ok {
			prev.IsDefault = false
		}
	}
	prompt.IsDefault = true
	r.defaultID = id
	return nil
}

// DeletePrompt implements delete_prompt(id): Conflict if the prompt is the
// current default.
func (r *Registry) DeletePrompt(id string) error {
	prompt, ok := r.byID[id]
	if !ok {
		return apperrors.Newf(apperrors.NotFound, "prompt %q not found", id)
	}
	if prompt.IsDefault {
		return apperrors.Newf(apperrors.Conflict, "prompt %q is the default and cannot be deleted", id)
	}
	delete(r.byID, id)
	return nil
}

// GetPrompt implements get_prompt(id).
func (r *Registry) GetPrompt(id string) (*AnalysisPrompt, error) {
	prompt, ok := r.byID[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.NotFound, "prompt %q not found", id)
	}
	return prompt, nil
}

// GetDefaultPrompt implements get_default_prompt().
func (r *Registry) GetDefaultPrompt() (*AnalysisPrompt, error) {
	if r.defaultID == "" {
		return nil, apperrors.New(apperrors.NotFound, "no default prompt is configured")
	}
	return r.byID[r.defaultID], nil
}

// ListPrompts implements list_prompts.
func (r *Registry) ListPrompts() []*AnalysisPrompt {
	out := make([]*AnalysisPrompt, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// RegistrySnapshot is the deterministically serializable region for the
// Prompt Registry.
type RegistrySnapshot struct {
	Prompts   []*AnalysisPrompt `json:"prompts"`
	DefaultID string            `json:"default_id,omitempty"`
}

// Snapshot captures the registry for the pre-shutdown hook.
func (r *Registry) Snapshot() RegistrySnapshot {
	return RegistrySnapshot{Prompts: r.ListPrompts(), DefaultID: r.defaultID}
}

// Restore replaces the registry's state with a prior Snapshot.
func (r *Registry) Restore(snap RegistrySnapshot) {
	r.byID = make(map[string]*AnalysisPrompt, len(snap.Prompts))
	for _, p := range snap.Prompts {
		r.byID[p.ID] = p
	}
	r.defaultID = snap.DefaultID
}
