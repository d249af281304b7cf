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

// EnrichmentQueue mirrors AnalysisQueue's state machine with a distinct
// terminal status, NotFound, and auto-analyze chaining.
type EnrichmentQueue struct {
	byID         map[string]*EnrichmentJob
	pendingOrder []string
	counter      int64
}

// NewEnrichmentQueue constructs an empty Enrichment Queue.
func NewEnrichmentQueue() *EnrichmentQueue {
	return &EnrichmentQueue{byID: make(map[string]*EnrichmentJob)}
}

// RequestEnrichment implements request_enrichment(skill_id, auto_analyze)
//. Unlike analysis submission, enrichment is not deduplicated:
// an operator may legitimately request a re-fetch.
func (q *EnrichmentQueue) RequestEnrichment(skillID, requester string, autoAnalyze bool) string {
	q.counter++
	jobID := newJobID("enrich", skillID, requester, fmt.Sprintf("%d", q.counter))
	job := &EnrichmentJob{
		JobID:             jobID,
		SkillID:           skillID,
		RequesterIdentity: requester,
		AutoAnalyze:       autoAnalyze,
		Status:            EnrichmentPending,
		CreatedAt:         time.Now(),
	}
	q.byID[jobID] = job
	q.pendingOrder = append(q.pendingOrder, jobID)
	return jobID
}

// ClaimPending mirrors AnalysisQueue.ClaimPending's at-most-once pop
// semantics over the enrichment queue's own pending FIFO.
func (q *EnrichmentQueue) ClaimPending(limit int, caller string) []*EnrichmentJob {
	if limit <= 0 || limit > DefaultClaimLimit {
		limit = DefaultClaimLimit
	}
	if limit > len(q.pendingOrder) {
		limit = len(q.pendingOrder)
	}

	claimedIDs := q.pendingOrder[:limit]
	q.pendingOrder = q.pendingOrder[limit:]

	now := time.Now()
	claimed := make([]*EnrichmentJob, 0, limit)
	for _, id := range claimedIDs {
		job := q.byID[id]
		job.Status = EnrichmentProcessing
		job.ClaimedAt = &now
		job.ClaimedBy = caller
		claimed = append(claimed, job)
	}
	return claimed
}

// Complete implements the state-machine half of enrichment completion:
// found=false transitions to NotFound, found=true to Completed. File-set
// application and analysis chaining are the caller's responsibility
// (pkg/coordinator), since EnrichmentQueue has no knowledge of the Skill
// Index.
//
// Idempotence and cancellation semantics mirror AnalysisQueue.SubmitResult.
func (q *EnrichmentQueue) Complete(jobID, caller string, found bool, isAdmin bool) (job *EnrichmentJob, noop bool, err error) {
	j, ok := q.byID[jobID]
	if !ok {
		return nil, false, errJobNotFound(jobID)
	}
	switch {
	case j.Status == EnrichmentCompleted || j.Status == EnrichmentNotFound:
		return nil, true, nil
	case j.Status == EnrichmentFailed && j.cancelled:
		return nil, true, nil
	case j.Status != EnrichmentProcessing:
		return nil, false, errWrongState(jobID, j.Status)
	}
	if !isAdmin && j.ClaimedBy != caller {
		return nil, false, errNotClaimant(jobID)
	}

	now := time.Now()
	j.CompletedAt = &now
	if found {
		j.Status = EnrichmentCompleted
	} else {
		j.Status = EnrichmentNotFound
	}
	return j, false, nil
}

// SetChainedAnalysisJobID records the auto-analyze chain target on a
// completed enrichment job.
func (q *EnrichmentQueue) SetChainedAnalysisJobID(jobID, analysisJobID string) error {
	j, ok := q.byID[jobID]
	if !ok {
		return errJobNotFound(jobID)
	}
	j.ChainedAnalysisJobID = analysisJobID
	return nil
}

// SubmitError mirrors AnalysisQueue.SubmitError.
func (q *EnrichmentQueue) SubmitError(jobID, caller, message string, isAdmin bool) error {
	j, ok := q.byID[jobID]
	if !ok {
		return errJobNotFound(jobID)
	}
	if j.Status != EnrichmentProcessing {
		return errWrongState(jobID, j.Status)
	}
	if !isAdmin && j.ClaimedBy != caller {
		return errNotClaimant(jobID)
	}
	now := time.Now()
	j.Status = EnrichmentFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

// Cancel mirrors AnalysisQueue.Cancel.
func (q *EnrichmentQueue) Cancel(jobID, caller string, isAdmin bool) error {
	j, ok := q.byID[jobID]
	if !ok {
		return errJobNotFound(jobID)
	}
	if !isAdmin && j.RequesterIdentity != caller {
		return apperrors.Newf(apperrors.Unauthorized, "only the requester or an admin may cancel job %q", jobID)
	}
	switch j.Status {
	case EnrichmentPending:
		q.removeFromPending(jobID)
	case EnrichmentProcessing:
	default:
		return apperrors.Newf(apperrors.Conflict, "job %q is already in a terminal state", jobID)
	}
	now := time.Now()
	j.Status = EnrichmentFailed
	j.ErrorMessage = CancelledByRequester
	j.CompletedAt = &now
	j.cancelled = true
	return nil
}

func (q *EnrichmentQueue) removeFromPending(jobID string) {
	for i, id := range q.pendingOrder {
		if id == jobID {
			q.pendingOrder = append(q.pendingOrder[:i], q.pendingOrder[i+1:]...)
			return
		}
	}
}

// GetStatus mirrors AnalysisQueue.GetStatus.
func (q *EnrichmentQueue) GetStatus(jobID string) (EnrichmentStatus, string, error) {
	j, ok := q.byID[jobID]
	if !ok {
		return "", "", errJobNotFound(jobID)
	}
	return j.Status, j.ErrorMessage, nil
}

// Get returns the full job record, or NotFound.
func (q *EnrichmentQueue) Get(jobID string) (*EnrichmentJob, error) {
	j, ok := q.byID[jobID]
	if !ok {
		return nil, errJobNotFound(jobID)
	}
	return j, nil
}

// List returns recent enrichment jobs, newest first.
func (q *EnrichmentQueue) List(limit int) []*EnrichmentJob {
	all := make([]*EnrichmentJob, 0, len(q.byID))
	for _, j := range q.byID {
		all = append(all, j)
	}
	sortEnrichmentJobsNewestFirst(all)
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// PendingCount mirrors AnalysisQueue.PendingCount.
func (q *EnrichmentQueue) PendingCount() int {
	return len(q.pendingOrder)
}

// SweepStuckJobs mirrors AnalysisQueue.SweepStuckJobs.
func (q *EnrichmentQueue) SweepStuckJobs(olderThan time.Time) int {
	n := 0
	now := time.Now()
	for _, j := range q.byID {
		if j.Status != EnrichmentProcessing || j.ClaimedAt == nil || !j.ClaimedAt.Before(olderThan) {
			continue
		}
		j.Status = EnrichmentFailed
		j.ErrorMessage = ReclaimedMessage
		j.CompletedAt = &now
		n++
	}
	return n
}

// EnrichmentQueueSnapshot mirrors AnalysisQueueSnapshot.
type EnrichmentQueueSnapshot struct {
	Jobs         []*EnrichmentJob `json:"jobs"`
	PendingOrder []string         `json:"pending_order"`
	Counter      int64            `json:"counter"`
}

// Snapshot captures the queue for the pre-shutdown hook.
func (q *EnrichmentQueue) Snapshot() EnrichmentQueueSnapshot {
	jobs := make([]*EnrichmentJob, 0, len(q.byID))
	for _, j := range q.byID {
		jobs = append(jobs, j)
	}
	sortEnrichmentJobsNewestFirst(jobs)
	return EnrichmentQueueSnapshot{
		Jobs:         jobs,
		PendingOrder: append([]string(nil), q.pendingOrder...),
		Counter:      q.counter,
	}
}

// Restore replaces the queue's state with a prior Snapshot.
func (q *EnrichmentQueue) Restore(snap EnrichmentQueueSnapshot) {
	q.byID = make(map[string]*EnrichmentJob, len(snap.Jobs))
	for _, j := range snap.Jobs {
		q.byID[j.JobID] = j
	}
	q.pendingOrder = append([]string(nil), snap.PendingOrder...)
	q.counter = snap.Counter
}
