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

// Package jobs implements the Analysis Queue and Enrichment Queue scheduling
// cores: FIFO pending order, at-most-once claim, and
// idempotent terminal transitions. Neither queue touches skill or profile
// state directly — callers (pkg/coordinator) supply snapshots at submission
// time and apply completion side effects after a successful transition.
package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// AnalysisStatus is the AnalysisJob state set.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "Pending"
	AnalysisProcessing AnalysisStatus = "Processing"
	AnalysisCompleted  AnalysisStatus = "Completed"
	AnalysisFailed     AnalysisStatus = "Failed"
)

// EnrichmentStatus is the EnrichmentJob state set, a superset of
// AnalysisStatus adding NotFound.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "Pending"
	EnrichmentProcessing EnrichmentStatus = "Processing"
	EnrichmentCompleted  EnrichmentStatus = "Completed"
	EnrichmentNotFound   EnrichmentStatus = "NotFound"
	EnrichmentFailed     EnrichmentStatus = "Failed"
)

// CancelledByRequester is the well-known error_message for user-initiated
// cancellation.
const CancelledByRequester = "cancelled by requester"

// ReclaimedMessage is the error_message an admin sweep assigns to a
// Processing job reclaimed for exceeding its claim age.
const ReclaimedMessage = "reclaimed: claim timed out"

// DefaultClaimLimit is the suggested bound on claim_pending_jobs.
const DefaultClaimLimit = 10

// AnalysisJob is a single requested analysis run for a skill.
type AnalysisJob struct {
	JobID                       string         `json:"job_id"`
	SkillID                     string         `json:"skill_id"`
	RequesterIdentity           string         `json:"requester_identity"`
	Model                       string         `json:"model"`
	EncryptedCredentialSnapshot string         `json:"encrypted_credential_snapshot"`
	Status                      AnalysisStatus `json:"status"`
	CreatedAt                   time.Time      `json:"created_at"`
	ClaimedAt                   *time.Time     `json:"claimed_at,omitempty"`
	ClaimedBy                   string         `json:"claimed_by,omitempty"`
	CompletedAt                 *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage                string         `json:"error_message,omitempty"`
	// cancelled marks a Processing job that was cancelled before the worker
	// completed it; it lets a late submit_job_result_with_metadata succeed
	// silently instead of erroring on an already-Failed job.
	cancelled bool
}

// PendingJobPayload is the claim_pending_jobs response shape before the
// caller enriches it with a current skill snapshot.
type PendingJobPayload struct {
	JobID                       string
	SkillID                     string
	RequesterIdentity           string
	Model                       string
	EncryptedCredentialSnapshot string
}

// EnrichmentJob is a single requested content fetch for a skill.
type EnrichmentJob struct {
	JobID                 string           `json:"job_id"`
	SkillID               string           `json:"skill_id"`
	RequesterIdentity     string           `json:"requester_identity"`
	AutoAnalyze           bool             `json:"auto_analyze"`
	Status                EnrichmentStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	ClaimedAt             *time.Time       `json:"claimed_at,omitempty"`
	ClaimedBy             string           `json:"claimed_by,omitempty"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage          string           `json:"error_message,omitempty"`
	ChainedAnalysisJobID  string           `json:"chained_analysis_job_id,omitempty"`
	cancelled             bool
}

// FileFound is one entry of an enrichment completion payload's files_found.
type FileFound struct {
	Path    string
	Content string
}

// EnrichmentCompletionPayload is the shape submitted by a worker completing
// an enrichment job.
type EnrichmentCompletionPayload struct {
	Found      bool
	Content    string
	SourceURL  string
	FilesFound []FileFound
}

func newJobID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func errJobNotFound(jobID string) error {
	return apperrors.Newf(apperrors.NotFound, "job %q not found", jobID)
}

func errNotClaimant(jobID string) error {
	return apperrors.Newf(apperrors.Unauthorized, "caller did not claim job %q", jobID)
}

func errWrongState(jobID string, status fmt.Stringer) error {
	return apperrors.Newf(apperrors.PreconditionFailed, "job %q is not in a valid state for this operation (status=%s)", jobID, status)
}

func (s AnalysisStatus) String() string  { return string(s) }
func (s EnrichmentStatus) String() string { return string(s) }
