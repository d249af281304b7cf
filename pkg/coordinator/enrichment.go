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
	"time"

	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/skills"
)

// defaultAutoAnalyzeModel is used when an enrichment job with
// auto_analyze=true completes and chains into a new analysis request; the
// requester did not have the opportunity to name a model at enrichment
// time.
const defaultAutoAnalyzeModel = "default"

// RequestEnrichment implements request_enrichment(skill_id, auto_analyze)
//. Role: user.
func (c *Core) RequestEnrichment(ctx context.Context, caller, skillID string, autoAnalyze bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return "", err
	}
	if _, err := c.skillIdx.Get(skillID); err != nil {
		return "", err
	}
	return c.enrichQ.RequestEnrichment(skillID, caller, autoAnalyze), nil
}

// ClaimPendingEnrichmentJobs implements claim_pending_enrichment_jobs(limit)
//. Role: worker.
func (c *Core) ClaimPendingEnrichmentJobs(ctx context.Context, caller string, limit int) ([]*jobs.EnrichmentJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.identity.RequireWorkerOrAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return c.enrichQ.ClaimPending(limit, caller), nil
}

// CompleteEnrichment implements complete_enrichment(job_id, payload).
// Role: the claiming worker, or admin. On found=true, the fetched
// SKILL.md content plus any other files found replace the skill's file
// set (recomputing files_checksum); if the job's auto_analyze is set, a
// chained analysis job is enqueued against the requester's credential
// snapshot and recorded on the enrichment job.
func (c *Core) CompleteEnrichment(ctx context.Context, caller, jobID string, payload jobs.EnrichmentCompletionPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	role, err := c.identity.RequireWorkerOrAdmin(ctx, caller)
	if err != nil {
		return err
	}

	_, err = c.enrichQ.Get(jobID)
	if err != nil {
		return err
	}

	completed, noop, err := c.enrichQ.Complete(jobID, caller, payload.Found, role == identity.RoleAdmin)
	if err != nil {
		return err
	}
	if noop {
		return nil
	}

	if !payload.Found {
		return nil
	}

	files := make([]skills.SkillFile, 0, 1+len(payload.FilesFound))
	files = append(files, skills.NewSkillFile("SKILL.md", payload.Content, skills.FileTypeSkillMd))
	for _, f := range payload.FilesFound {
		files = append(files, skills.NewSkillFile(f.Path, f.Content, skills.FileTypeReference))
	}
	if err := c.skillIdx.SetFiles(completed.SkillID, files, caller, payload.SourceURL); err != nil {
		return err
	}

	if completed.AutoAnalyze {
		credential, credErr := c.profileSt.CredentialSnapshot(completed.RequesterIdentity)
		if credErr == nil && credential != "" {
			analysisJobID, reqErr := c.analysisQ.RequestAnalysis(completed.SkillID, completed.RequesterIdentity, defaultAutoAnalyzeModel, credential)
			if reqErr == nil {
				_ = c.enrichQ.SetChainedAnalysisJobID(jobID, analysisJobID)
			}
		}
	}

	return nil
}

// SubmitEnrichmentError implements submit_enrichment_error(job_id,
// message); role: the claiming worker, or admin.
func (c *Core) SubmitEnrichmentError(ctx context.Context, caller, jobID, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, err := c.identity.RequireWorkerOrAdmin(ctx, caller)
	if err != nil {
		return err
	}
	return c.enrichQ.SubmitError(jobID, caller, message, role == identity.RoleAdmin)
}

// CancelEnrichmentJob implements cancel_enrichment_job(job_id); role: the
// original requester, or admin.
func (c *Core) CancelEnrichmentJob(ctx context.Context, caller, jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, err := c.identity.RequireUserOrAbove(ctx, caller)
	if err != nil {
		return err
	}
	return c.enrichQ.Cancel(jobID, caller, role == identity.RoleAdmin)
}

// GetEnrichmentJobStatus implements get_enrichment_job_status(job_id).
func (c *Core) GetEnrichmentJobStatus(jobID string) (jobs.EnrichmentStatus, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enrichQ.GetStatus(jobID)
}

// ListEnrichmentJobs implements list_enrichment_jobs(limit).
func (c *Core) ListEnrichmentJobs(limit int) []*jobs.EnrichmentJob {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enrichQ.List(limit)
}

// GetPendingEnrichmentJobCount implements get_pending_enrichment_job_count().
func (c *Core) GetPendingEnrichmentJobCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enrichQ.PendingCount()
}

// SweepStuckEnrichmentJobs implements an admin sweep over the Enrichment
// Queue; admin-gated.
func (c *Core) SweepStuckEnrichmentJobs(ctx context.Context, caller string, olderThan time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return 0, err
	}
	return c.enrichQ.SweepStuckJobs(olderThan), nil
}
