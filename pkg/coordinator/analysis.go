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

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/analysis"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/skills"
)

// PendingAnalysisJobPayload is claim_pending_jobs' enriched response
// shape: the job payload plus the current skill snapshot.
type PendingAnalysisJobPayload struct {
	jobs.PendingJobPayload
	SkillName        string
	SkillDescription string
	SkillFiles       []skills.SkillFile
	SkillMdContent   string
}

// RequestAnalysis implements request_analysis(skill_id, model) -> job_id
//. Role: user, and the kill-switch must be enabled.
// Preconditions: skill exists; the caller's encrypted_credential is set.
func (c *Core) RequestAnalysis(ctx context.Context, caller, skillID, model string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.identity.RequireUserOrAbove(ctx, caller); err != nil {
		return "", err
	}
	if !c.identity.AnalysisEnabled() {
		return "", apperrors.New(apperrors.PreconditionFailed, "analysis submission is currently disabled")
	}
	if _, err := c.skillIdx.Get(skillID); err != nil {
		return "", err
	}
	credential, err := c.profileSt.CredentialSnapshot(caller)
	if err != nil {
		return "", apperrors.New(apperrors.PreconditionFailed, "an encrypted credential must be set before requesting analysis")
	}
	if credential == "" {
		return "", apperrors.New(apperrors.PreconditionFailed, "an encrypted credential must be set before requesting analysis")
	}

	return c.analysisQ.RequestAnalysis(skillID, caller, model, credential)
}

// ClaimPendingJobs implements claim_pending_jobs(limit) -> [PendingJobPayload]
//. Role: worker. Returns payloads enriched with the current
// skill snapshot.
func (c *Core) ClaimPendingJobs(ctx context.Context, caller string, limit int) ([]PendingAnalysisJobPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.identity.RequireWorkerOrAdmin(ctx, caller); err != nil {
		return nil, err
	}

	claimed := c.analysisQ.ClaimPending(limit, caller)
	out := make([]PendingAnalysisJobPayload, 0, len(claimed))
	for _, payload := range claimed {
		enriched := PendingAnalysisJobPayload{PendingJobPayload: payload}
		if skill, err := c.skillIdx.Get(payload.SkillID); err == nil {
			enriched.SkillName = skill.Name
			enriched.SkillDescription = skill.Description
			enriched.SkillFiles = skill.Files
			enriched.SkillMdContent = skillMdContent(skill)
		}
		out = append(out, enriched)
	}
	return out, nil
}

func skillMdContent(skill *skills.Skill) string {
	for _, f := range skill.Files {
		if f.FileType == skills.FileTypeSkillMd {
			return f.Content
		}
	}
	return ""
}

// SubmitJobResultWithMetadata implements
// submit_job_result_with_metadata(job_id, analysis_json, tee_worker_version,
// prompt_version). Role: worker (claimant) or admin.
func (c *Core) SubmitJobResultWithMetadata(ctx context.Context, caller, jobID, analysisJSON, teeWorkerVersion, promptVersion string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	role, err := c.identity.RequireWorkerOrAdmin(ctx, caller)
	if err != nil {
		return err
	}

	job, noop, err := c.analysisQ.SubmitResult(jobID, caller, role == identity.RoleAdmin)
	if err != nil {
		return err
	}
	if noop {
		return nil
	}

	parsed, err := analysis.ParseSkillAnalysis(analysisJSON)
	if err != nil {
		return err
	}
	parsed.AnalyzedAt = time.Now()
	parsed.AnalyzedBy = job.RequesterIdentity
	parsed.ModelUsed = job.Model
	parsed.TeeWorkerVersion = teeWorkerVersion
	parsed.PromptVersion = promptVersion

	if err := c.skillIdx.AppendAnalysis(job.SkillID, *parsed); err != nil {
		return err
	}
	c.profileSt.RecordAnalysisCompletion(job.RequesterIdentity)
	return nil
}

// SubmitJobResult implements the older submit_job_result(job_id,
// analysis_json) overload: identical behavior, TEE/prompt
// versions left unset.
func (c *Core) SubmitJobResult(ctx context.Context, caller, jobID, analysisJSON string) error {
	return c.SubmitJobResultWithMetadata(ctx, caller, jobID, analysisJSON, "", "")
}

// SubmitJobError implements submit_job_error(job_id, message). Role: the
// claiming worker, or admin.
func (c *Core) SubmitJobError(ctx context.Context, caller, jobID, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, err := c.identity.RequireWorkerOrAdmin(ctx, caller)
	if err != nil {
		return err
	}
	return c.analysisQ.SubmitError(jobID, caller, message, role == identity.RoleAdmin)
}

// CancelAnalysisJob implements cancel_analysis_job(job_id).
// Role: the original requester, or admin.
func (c *Core) CancelAnalysisJob(ctx context.Context, caller, jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, err := c.identity.RequireUserOrAbove(ctx, caller)
	if err != nil {
		return err
	}
	return c.analysisQ.Cancel(jobID, caller, role == identity.RoleAdmin)
}

// GetJobStatus implements get_job_status(job_id).
func (c *Core) GetJobStatus(jobID string) (jobs.AnalysisStatus, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysisQ.GetStatus(jobID)
}

// ListAnalysisJobs implements list_analysis_jobs(limit).
func (c *Core) ListAnalysisJobs(limit int) []*jobs.AnalysisJob {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysisQ.List(limit)
}

// GetPendingJobCount implements get_pending_job_count().
func (c *Core) GetPendingJobCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysisQ.PendingCount()
}

// GetAnalyzedModels implements get_analyzed_models(skill_id).
func (c *Core) GetAnalyzedModels(skillID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysisQ.AnalyzedModels(skillID)
}

// SweepStuckAnalysisJobs implements an admin sweep over the Analysis
// Queue; admin-gated.
func (c *Core) SweepStuckAnalysisJobs(ctx context.Context, caller string, olderThan time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.identity.RequireAdmin(ctx, caller); err != nil {
		return 0, err
	}
	return c.analysisQ.SweepStuckJobs(olderThan), nil
}
