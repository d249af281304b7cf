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

package jobs

import (
	"fmt"
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// AnalysisQueue is the scheduling core: an indexed job map plus a FIFO
// pending_order. Callers serialize access (pkg/coordinator's single write
// lock); AnalysisQueue itself does no locking.
type AnalysisQueue struct {
	byID         map[string]*AnalysisJob
	pendingOrder []string
	counter      int64
}

// NewAnalysisQueue constructs an empty Analysis Queue.
func NewAnalysisQueue() *AnalysisQueue {
	return &AnalysisQueue{byID: make(map[string]*AnalysisJob)}
}

// RequestAnalysis implements request_analysis. Dedup: an
// identical (skill_id, requester, model) job already Pending or Processing
// returns that job_id instead of creating a new one.
func (q *AnalysisQueue) RequestAnalysis(skillID, requester, model, credentialSnapshot string) (string, error) {
	for _, id := range q.pendingOrder {
		job := q.byID[id]
		if job.SkillID == skillID && job.RequesterIdentity == requester && job.Model == model {
			return job.JobID, nil
		}
	}
	for _, job := range q.byID {
		if job.Status == AnalysisProcessing && job.SkillID == skillID && job.RequesterIdentity == requester && job.Model == model {
			return job.JobID, nil
		}
	}

	q.counter++
	jobID := newJobID(skillID, requester, model, fmt.Sprintf("%d", q.counter))
	if _, exists := q.byID[jobID]; exists {
		return "", apperrors.New(apperrors.Internal, "job id collision")
	}

	job := &AnalysisJob{
		JobID:                       jobID,
		SkillID:                     skillID,
		RequesterIdentity:           requester,
		Model:                       model,
		EncryptedCredentialSnapshot: credentialSnapshot,
		Status:                      AnalysisPending,
		CreatedAt:                   time.Now(),
	}
	q.byID[jobID] = job
	q.pendingOrder = append(q.pendingOrder, jobID)
	return jobID, nil
}

// ClaimPending implements claim_pending_jobs: pops up to limit
// job ids from the head of pending_order, transitioning each Pending ->
// Processing. At-most-once: a claimed job is removed from pending_order so
// no later call can return it again.
func (q *AnalysisQueue) ClaimPending(limit int, caller string) []PendingJobPayload {
	if limit <= 0 || limit > DefaultClaimLimit {
		limit = DefaultClaimLimit
	}
	if limit > len(q.pendingOrder) {
		limit = len(q.pendingOrder)
	}

	claimedIDs := q.pendingOrder[:limit]
	q.pendingOrder = q.pendingOrder[limit:]

	now := time.Now()
	payloads := make([]PendingJobPayload, 0, limit)
	for _, id := range claimedIDs {
		job := q.byID[id]
		job.Status = AnalysisProcessing
		job.ClaimedAt = &now
		job.ClaimedBy = caller
		payloads = append(payloads, PendingJobPayload{
			JobID:                       job.JobID,
			SkillID:                     job.SkillID,
			RequesterIdentity:           job.RequesterIdentity,
			Model:                       job.Model,
			EncryptedCredentialSnapshot: job.EncryptedCredentialSnapshot,
		})
	}
	return payloads
}

// SubmitResult implements submit_job_result_with_metadata's state-machine
// half: it validates preconditions and transitions the job to
// Completed, returning the job record so the caller can parse analysis_json
// and apply it to the skill index with the job's requester/model as
// provenance. isAdmin bypasses the claimed_by check.
//
// Idempotence: re-submitting for an already-Completed job, or for a job
// that was cancelled while Processing, succeeds silently (noop=true,
// err=nil, job=nil) without a second state transition.
func (q *AnalysisQueue) SubmitResult(jobID, caller string, isAdmin bool) (job *AnalysisJob, noop bool, err error) {
	j, ok := q.byID[jobID]
	if !ok {
		return nil, false, errJobNotFound(jobID)
	}
	switch {
	case j.Status == AnalysisCompleted:
		return nil, true, nil
	case j.Status == AnalysisFailed && j.cancelled:
		return nil, true, nil
	case j.Status != AnalysisProcessing:
		return nil, false, errWrongState(jobID, j.Status)
	}
	if !isAdmin && j.ClaimedBy != caller {
		return nil, false, errNotClaimant(jobID)
	}

	now := time.Now()
	j.Status = AnalysisCompleted
	j.CompletedAt = &now
	return j, false, nil
}

// SubmitError implements submit_job_error: only allowed from
// Processing, transitions to Failed, terminal.
func (q *AnalysisQueue) SubmitError(jobID, caller, message string, isAdmin bool) error {
	j, ok := q.byID[jobID]
	if !ok {
		return errJobNotFound(jobID)
	}
	if j.Status != AnalysisProcessing {
		return errWrongState(jobID, j.Status)
	}
	if !isAdmin && j.ClaimedBy != caller {
		return errNotClaimant(jobID)
	}
	now := time.Now()
	j.Status = AnalysisFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

// Cancel implements cancel_analysis_job. Allowed from Pending
// (removed from pending_order) or Processing; both transition to Failed
// with CancelledByRequester and mark the job so a late SubmitResult is a
// silent no-op.
func (q *AnalysisQueue) Cancel(jobID, caller string, isAdmin bool) error {
	j, ok := q.byID[jobID]
	if !ok {
		return errJobNotFound(jobID)
	}
	if !isAdmin && j.RequesterIdentity != caller {
		return apperrors.Newf(apperrors.Unauthorized, "only the requester or an admin may cancel job %q", jobID)
	}
	switch j.Status {
	case AnalysisPending:
		q.removeFromPending(jobID)
	case AnalysisProcessing:
		// left claimed; a late completion must no-op.
	default:
		return apperrors.Newf(apperrors.Conflict, "job %q is already in a terminal state", jobID)
	}
	now := time.Now()
	j.Status = AnalysisFailed
	j.ErrorMessage = CancelledByRequester
	j.CompletedAt = &now
	j.cancelled = true
	return nil
}

func (q *AnalysisQueue) removeFromPending(jobID string) {
	for i, id := range q.pendingOrder {
		if id == jobID {
			q.pendingOrder = append(q.pendingOrder[:i], q.pendingOrder[i+1:]...)
			return
		}
	}
}

// GetStatus implements get_job_status.
func (q *AnalysisQueue) GetStatus(jobID string) (AnalysisStatus, string, error) {
	j, ok := q.byID[jobID]
	if !ok {
		return "", "", errJobNotFound(jobID)
	}
	return j.Status, j.ErrorMessage, nil
}

// Get returns the full job record, or NotFound.
func (q *AnalysisQueue) Get(jobID string) (*AnalysisJob, error) {
	j, ok := q.byID[jobID]
	if !ok {
		return nil, errJobNotFound(jobID)
	}
	return j, nil
}

// List implements list_analysis_jobs(limit): recent jobs,
// newest first, by creation order.
func (q *AnalysisQueue) List(limit int) []*AnalysisJob {
	all := make([]*AnalysisJob, 0, len(q.byID))
	for _, j := range q.byID {
		all = append(all, j)
	}
	sortJobsNewestFirst(all)
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// PendingCount implements get_pending_job_count.
func (q *AnalysisQueue) PendingCount() int {
	return len(q.pendingOrder)
}

// AnalyzedModels implements get_analyzed_models(skill_id): distinct
// model_used values across Completed jobs for the skill.
func (q *AnalysisQueue) AnalyzedModels(skillID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, j := range q.byID {
		if j.SkillID != skillID || j.Status != AnalysisCompleted {
			continue
		}
		if _, ok := seen[j.Model]; ok {
			continue
		}
		seen[j.Model] = struct{}{}
		out = append(out, j.Model)
	}
	return out
}

// SweepStuckJobs is an admin sweep: any Processing job whose claimed_at
// predates the cutoff transitions to Failed with ReclaimedMessage.
// Returns the number of jobs reclaimed.
func (q *AnalysisQueue) SweepStuckJobs(olderThan time.Time) int {
	n := 0
	now := time.Now()
	for _, j := range q.byID {
		if j.Status != AnalysisProcessing || j.ClaimedAt == nil || !j.ClaimedAt.Before(olderThan) {
			continue
		}
		j.Status = AnalysisFailed
		j.ErrorMessage = ReclaimedMessage
		j.CompletedAt = &now
		n++
	}
	return n
}

// AnalysisQueueSnapshot is the deterministically serializable region for
// the Analysis Queue: every job record plus the pending FIFO
// and job-id counter, so a restored queue resumes claim ordering exactly.
type AnalysisQueueSnapshot struct {
	Jobs         []*AnalysisJob `json:"jobs"`
	PendingOrder []string       `json:"pending_order"`
	Counter      int64          `json:"counter"`
}

// Snapshot captures the queue for the pre-shutdown hook.
func (q *AnalysisQueue) Snapshot() AnalysisQueueSnapshot {
	jobs := make([]*AnalysisJob, 0, len(q.byID))
	for _, j := range q.byID {
		jobs = append(jobs, j)
	}
	sortJobsNewestFirst(jobs)
	return AnalysisQueueSnapshot{
		Jobs:         jobs,
		PendingOrder: append([]string(nil), q.pendingOrder...),
		Counter:      q.counter,
	}
}

// Restore replaces the queue's state with a prior Snapshot, for the
// post-start hook.
func (q *AnalysisQueue) Restore(snap AnalysisQueueSnapshot) {
	q.byID = make(map[string]*AnalysisJob, len(snap.Jobs))
	for _, j := range snap.Jobs {
		q.byID[j.JobID] = j
	}
	q.pendingOrder = append([]string(nil), snap.PendingOrder...)
	q.counter = snap.Counter
}
