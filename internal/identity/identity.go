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

// Package identity resolves the caller identity presented on each mutating
// request to a role (anonymous, user, worker, admin), holds the admin and
// worker allow-lists, and the analysis kill-switch.
package identity

import (
	"context"
	_ "embed"
	"sync"

	"github.com/open-policy-agent/opa/rego"

	"github.com/skillcore/coordinator/internal/apperrors"
)

//go:embed policy.rego
var policySource string

// Role is a closed set; admin capabilities are a strict superset of worker's.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleWorker    Role = "worker"
	RoleAdmin     Role = "admin"
)

// Registry is the admin/worker allow-list plus the kill-switch, gated
// behind a single rego policy evaluated per call. It is safe for
// concurrent use.
type Registry struct {
	mu              sync.RWMutex
	admins          map[string]struct{}
	workers         map[string]struct{}
	analysisEnabled bool
	teeWorkerURL    string
	query           rego.PreparedEvalQuery
}

// NewRegistry seeds the allow-lists and prepares the embedded rego policy.
func NewRegistry(ctx context.Context, seedAdmins, seedWorkers []string, analysisEnabled bool) (*Registry, error) {
	r := &Registry{
		admins:          toSet(seedAdmins),
		workers:         toSet(seedWorkers),
		analysisEnabled: analysisEnabled,
	}

	prepared, err := rego.New(
		rego.Query("data.coordinator.identity.role"),
		rego.Module("policy.rego", policySource),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("preparing identity policy", err)
	}
	r.query = prepared
	return r, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// Resolve classifies identity into a Role by evaluating the rego policy
// against the current allow-lists.
func (r *Registry) Resolve(ctx context.Context, callerIdentity string) (Role, error) {
	r.mu.RLock()
	input := map[string]any{
		"identity": callerIdentity,
		"admins":   setKeys(r.admins),
		"workers":  setKeys(r.workers),
	}
	r.mu.RUnlock()

	results, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return RoleAnonymous, apperrors.NewInternal("evaluating identity policy", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return RoleAnonymous, nil
	}
	role, _ := results[0].Expressions[0].Value.(string)
	switch Role(role) {
	case RoleAdmin, RoleWorker, RoleUser:
		return Role(role), nil
	default:
		return RoleAnonymous, nil
	}
}

func setKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// RequireAdmin resolves identity and fails with Unauthorized unless it is admin.
func (r *Registry) RequireAdmin(ctx context.Context, callerIdentity string) error {
	role, err := r.Resolve(ctx, callerIdentity)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return apperrors.NewUnauthorized("admin role required")
	}
	return nil
}

// RequireWorkerOrAdmin resolves identity and fails unless it is worker or admin.
func (r *Registry) RequireWorkerOrAdmin(ctx context.Context, callerIdentity string) (Role, error) {
	role, err := r.Resolve(ctx, callerIdentity)
	if err != nil {
		return role, err
	}
	if role != RoleWorker && role != RoleAdmin {
		return role, apperrors.NewUnauthorized("worker role required")
	}
	return role, nil
}

// RequireUserOrAbove fails unless the caller is at least an authenticated user.
func (r *Registry) RequireUserOrAbove(ctx context.Context, callerIdentity string) (Role, error) {
	role, err := r.Resolve(ctx, callerIdentity)
	if err != nil {
		return role, err
	}
	if role == RoleAnonymous {
		return role, apperrors.NewUnauthorized("authenticated caller required")
	}
	return role, nil
}

// AddAdmin is admin-gated by the caller (pkg/coordinator's Core.AddAdmin
// checks RequireAdmin first); it mutates the allow-list directly.
func (r *Registry) AddAdmin(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[identity] = struct{}{}
}

// AddWorker adds identity to the worker allow-list.
func (r *Registry) AddWorker(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[identity] = struct{}{}
}

// RemoveWorker removes identity from the worker allow-list.
func (r *Registry) RemoveWorker(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, identity)
}

// SetAnalysisEnabled flips the kill-switch consulted by request_analysis.
func (r *Registry) SetAnalysisEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysisEnabled = enabled
}

// AnalysisEnabled reports the current kill-switch state.
func (r *Registry) AnalysisEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.analysisEnabled
}

// SetTeeWorkerURL records the advisory worker-pool public key endpoint.
func (r *Registry) SetTeeWorkerURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teeWorkerURL = url
}

// TeeWorkerURL returns the advisory worker-pool endpoint.
func (r *Registry) TeeWorkerURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teeWorkerURL
}

// RegistrySnapshot is the deterministically serializable region for
// Identity & Authorization. The prepared rego query is not
// part of the snapshot; it is rebuilt from the embedded policy on restore.
type RegistrySnapshot struct {
	Admins          []string `json:"admins"`
	Workers         []string `json:"workers"`
	AnalysisEnabled bool     `json:"analysis_enabled"`
	TeeWorkerURL    string   `json:"tee_worker_url,omitempty"`
}

// Snapshot captures the registry for the pre-shutdown hook.
func (r *Registry) Snapshot() RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistrySnapshot{
		Admins:          setKeys(r.admins),
		Workers:         setKeys(r.workers),
		AnalysisEnabled: r.analysisEnabled,
		TeeWorkerURL:    r.teeWorkerURL,
	}
}

// Restore replaces the registry's allow-lists, kill-switch, and advisory
// URL with a prior Snapshot. The prepared policy query is left
// untouched.
func (r *Registry) Restore(snap RegistrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = toSet(snap.Admins)
	r.workers = toSet(snap.Workers)
	r.analysisEnabled = snap.AnalysisEnabled
	r.teeWorkerURL = snap.TeeWorkerURL
}
