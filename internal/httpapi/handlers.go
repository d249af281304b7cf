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

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/cache"
	"github.com/skillcore/coordinator/internal/obsmetrics"
	"github.com/skillcore/coordinator/pkg/coordinator"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/query"
	"github.com/skillcore/coordinator/pkg/skills"
)

// handlers holds the coordination core every chi route delegates to; one
// thin method per RPC operation, decode-call-encode over the core. cache
// is nil-safe: every cache-touching method falls back to calling core
// directly when it is nil.
type handlers struct {
	core  *coordinator.Core
	cache *cache.Cache
}

// invalidateQueryCache drops the cached get_stats/list_skills_filtered
// results after a mutation that could change them (skill add/file-set/
// install-count/analysis changes, profile creation). A no-op when no cache
// is configured.
func (h *handlers) invalidateQueryCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	_ = h.cache.Invalidate(ctx, cache.KeyStats)
	_ = h.cache.InvalidatePrefix(ctx, cache.ListPrefix)
}

// --- Identity & Authorization ---

func (h *handlers) addAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.AddAdmin(r.Context(), caller(r), req.Identity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) addWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.AddWorker(r.Context(), caller(r), req.Identity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) removeWorker(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "identity")
	if err := h.core.RemoveWorker(r.Context(), caller(r), target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) setAnalysisEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.SetAnalysisEnabled(r.Context(), caller(r), req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) setTeeWorkerURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.SetTeeWorkerURL(r.Context(), caller(r), req.URL); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) getTeeWorkerURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"tee_worker_url": h.core.GetTeeWorkerURL()})
}

// --- User Profile Store ---

func (h *handlers) setEncryptedCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blob string `json:"encrypted_credential" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.SetEncryptedCredential(r.Context(), caller(r), req.Blob); err != nil {
		writeError(w, err)
		return
	}
	// A first credential creates the caller's profile, which get_stats counts.
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) removeEncryptedCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.core.RemoveEncryptedCredential(r.Context(), caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) hasCredential(w http.ResponseWriter, r *http.Request) {
	has, err := h.core.HasCredential(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_credential": has})
}

func (h *handlers) getMyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.core.GetMyProfile(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// --- Skill Index ---

func (h *handlers) addSkill(w http.ResponseWriter, r *http.Request) {
	var skill skills.Skill
	if err := decodeJSON(r, &skill); err != nil {
		writeError(w, err)
		return
	}
	if err := h.core.AddSkill(r.Context(), caller(r), skill); err != nil {
		writeError(w, err)
		return
	}
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusCreated, skill)
}

func (h *handlers) addSkillBatch(w http.ResponseWriter, r *http.Request) {
	var batch []skills.Skill
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, err)
		return
	}
	inserted, err := h.core.AddSkillBatch(r.Context(), caller(r), batch)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": inserted})
}

func (h *handlers) setSkillFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files     []skills.SkillFile `json:"files"`
		SourceURL string              `json:"source_url,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.SetSkillFiles(r.Context(), caller(r), id, req.Files, req.SourceURL); err != nil {
		writeError(w, err)
		return
	}
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) addSkillFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		File      skills.SkillFile `json:"file"`
		SourceURL string           `json:"source_url,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.AddSkillFile(r.Context(), caller(r), id, req.File, req.SourceURL); err != nil {
		writeError(w, err)
		return
	}
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) recordInstall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	count, err := h.core.RecordInstall(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]int64{"install_count": count})
}

func (h *handlers) verifySkillFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Claims []skills.ClaimedChecksum `json:"claims"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	report, err := h.core.VerifySkillFiles(id, req.Claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) verifyFileChecksum(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path := r.URL.Query().Get("path")
	claimed := r.URL.Query().Get("checksum")
	ok, err := h.core.VerifyFileChecksum(id, path, claimed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"matches": ok})
}

// --- Prompt Registry ---

func (h *handlers) createPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required"`
		Version     string `json:"version" validate:"required"`
		Template    string `json:"prompt_template" validate:"required"`
		Description string `json:"description,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.core.CreatePrompt(r.Context(), caller(r), req.Name, req.Version, req.Template, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *handlers) setDefaultPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.core.SetDefaultPrompt(r.Context(), caller(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) deletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.core.DeletePrompt(r.Context(), caller(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.ListPrompts())
}

func (h *handlers) getPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prompt, err := h.core.GetPrompt(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (h *handlers) getDefaultPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.core.GetDefaultPrompt()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// --- Analysis Queue ---

func (h *handlers) requestAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkillID string `json:"skill_id" validate:"required"`
		Model   string `json:"model" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	jobID, err := h.core.RequestAnalysis(r.Context(), caller(r), req.SkillID, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordSubmitted(obsmetrics.QueueAnalysis)
	obsmetrics.SetPendingDepth(obsmetrics.QueueAnalysis, h.core.GetPendingJobCount())
	writeJSON(w, http.StatusCreated, map[string]string{"job_id": jobID})
}

func (h *handlers) claimPendingJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", jobs.DefaultClaimLimit)
	claimed, err := h.core.ClaimPendingJobs(r.Context(), caller(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordClaimed(obsmetrics.QueueAnalysis, len(claimed))
	obsmetrics.SetPendingDepth(obsmetrics.QueueAnalysis, h.core.GetPendingJobCount())
	writeJSON(w, http.StatusOK, claimed)
}

func (h *handlers) submitJobResultWithMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AnalysisJSON     string `json:"analysis_json" validate:"required"`
		TeeWorkerVersion string `json:"tee_worker_version,omitempty"`
		PromptVersion    string `json:"prompt_version,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.SubmitJobResultWithMetadata(r.Context(), caller(r), id, req.AnalysisJSON, req.TeeWorkerVersion, req.PromptVersion); err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordCompleted(obsmetrics.QueueAnalysis, "result")
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) submitJobResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AnalysisJSON string `json:"analysis_json" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.SubmitJobResult(r.Context(), caller(r), id, req.AnalysisJSON); err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordCompleted(obsmetrics.QueueAnalysis, "result")
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) submitJobError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"error_message" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.SubmitJobError(r.Context(), caller(r), id, req.Message); err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordFailed(obsmetrics.QueueAnalysis, "worker_error")
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) cancelAnalysisJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.core.CancelAnalysisJob(r.Context(), caller(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) getJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, errMsg, err := h.core.GetJobStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobStatusResponse{Status: string(status), ErrorMessage: errMsg})
}

func (h *handlers) listAnalysisJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	writeJSON(w, http.StatusOK, h.core.ListAnalysisJobs(limit))
}

func (h *handlers) getPendingJobCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"pending_count": h.core.GetPendingJobCount()})
}

func (h *handlers) getAnalyzedModels(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, h.core.GetAnalyzedModels(id))
}

func (h *handlers) sweepStuckAnalysisJobs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OlderThanSeconds int64 `json:"older_than_seconds" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cutoff := time.Now().Add(-time.Duration(req.OlderThanSeconds) * time.Second)
	reclaimed, err := h.core.SweepStuckAnalysisJobs(r.Context(), caller(r), cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	if reclaimed > 0 {
		obsmetrics.RecordFailed(obsmetrics.QueueAnalysis, "stuck_swept")
	}
	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}

// --- Enrichment Queue ---

func (h *handlers) requestEnrichment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkillID     string `json:"skill_id" validate:"required"`
		AutoAnalyze bool   `json:"auto_analyze"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	jobID, err := h.core.RequestEnrichment(r.Context(), caller(r), req.SkillID, req.AutoAnalyze)
	if err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordSubmitted(obsmetrics.QueueEnrichment)
	obsmetrics.SetPendingDepth(obsmetrics.QueueEnrichment, h.core.GetPendingEnrichmentJobCount())
	writeJSON(w, http.StatusCreated, map[string]string{"job_id": jobID})
}

func (h *handlers) claimPendingEnrichmentJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", jobs.DefaultClaimLimit)
	claimed, err := h.core.ClaimPendingEnrichmentJobs(r.Context(), caller(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordClaimed(obsmetrics.QueueEnrichment, len(claimed))
	obsmetrics.SetPendingDepth(obsmetrics.QueueEnrichment, h.core.GetPendingEnrichmentJobCount())
	writeJSON(w, http.StatusOK, claimed)
}

func (h *handlers) completeEnrichment(w http.ResponseWriter, r *http.Request) {
	var payload jobs.EnrichmentCompletionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.CompleteEnrichment(r.Context(), caller(r), id, payload); err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordCompleted(obsmetrics.QueueEnrichment, "result")
	h.invalidateQueryCache(r.Context())
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) submitEnrichmentError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"error_message" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.core.SubmitEnrichmentError(r.Context(), caller(r), id, req.Message); err != nil {
		writeError(w, err)
		return
	}
	obsmetrics.RecordFailed(obsmetrics.QueueEnrichment, "worker_error")
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) cancelEnrichmentJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.core.CancelEnrichmentJob(r.Context(), caller(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) getEnrichmentJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, errMsg, err := h.core.GetEnrichmentJobStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobStatusResponse{Status: string(status), ErrorMessage: errMsg})
}

func (h *handlers) listEnrichmentJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	writeJSON(w, http.StatusOK, h.core.ListEnrichmentJobs(limit))
}

func (h *handlers) getPendingEnrichmentJobCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"pending_count": h.core.GetPendingEnrichmentJobCount()})
}

func (h *handlers) sweepStuckEnrichmentJobs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OlderThanSeconds int64 `json:"older_than_seconds" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cutoff := time.Now().Add(-time.Duration(req.OlderThanSeconds) * time.Second)
	reclaimed, err := h.core.SweepStuckEnrichmentJobs(r.Context(), caller(r), cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	if reclaimed > 0 {
		obsmetrics.RecordFailed(obsmetrics.QueueEnrichment, "stuck_swept")
	}
	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}

// --- Query Surface ---

func (h *handlers) listSkillsFiltered(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intQuery(r, "limit", 20)
	offset := intQuery(r, "offset", 0)
	sortKey := query.SortKey(q.Get("sort"))
	if sortKey == "" {
		sortKey = query.SortRating
	}
	search := q.Get("search")
	category := q.Get("category")

	compute := func() (any, error) {
		list, total := h.core.ListSkillsFiltered(limit, offset, sortKey, search, category)
		return pagedSkills{Skills: list, Total: total}, nil
	}

	var page pagedSkills
	if h.cache == nil {
		v, _ := compute()
		page = v.(pagedSkills)
	} else {
		key := cache.ListPrefix + strings.Join([]string{
			string(sortKey), category, search, strconv.Itoa(limit), strconv.Itoa(offset),
		}, ":")
		if err := h.cache.GetOrCompute(r.Context(), key, &page, compute); err != nil {
			writeError(w, apperrors.Wrapf(err, apperrors.Internal, "listing skills"))
			return
		}
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) getSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	skill, err := h.core.GetSkill(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skill)
}

func (h *handlers) searchSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.SearchSkills(r.URL.Query().Get("q")))
}

func (h *handlers) getSkillsByCategory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetSkillsByCategory(chi.URLParam(r, "category")))
}

func (h *handlers) getSkillsByOwner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetSkillsByOwner(chi.URLParam(r, "owner")))
}

func (h *handlers) getTopRatedSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetTopRatedSkills(intQuery(r, "n", 10)))
}

func (h *handlers) getSkillsProvidingMCP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetSkillsProvidingMCP())
}

func (h *handlers) getSkillsWithFlags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetSkillsWithFlags())
}

func (h *handlers) getSkillsByTopicRating(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	n := intQuery(r, "n", 10)
	writeJSON(w, http.StatusOK, h.core.GetSkillsByTopicRating(topic, n))
}

func (h *handlers) getUnanalyzedSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetUnanalyzedSkills())
}

func (h *handlers) getCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetCategories())
}

func (h *handlers) getAllAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)
	entries, total := h.core.GetAllAnalysisHistory(limit, offset)
	writeJSON(w, http.StatusOK, pagedHistory{Entries: entries, Total: total})
}

func (h *handlers) getStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, h.core.GetStats())
		return
	}
	var stats query.Stats
	compute := func() (any, error) { return h.core.GetStats(), nil }
	if err := h.cache.GetOrCompute(r.Context(), cache.KeyStats, &stats, compute); err != nil {
		writeError(w, apperrors.Wrapf(err, apperrors.Internal, "computing stats"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) getAnalysisHistoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.GetAnalysisHistoryStats())
}

func (h *handlers) getMemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.core.MemoryStats()
	if err != nil {
		writeError(w, apperrors.Wrapf(err, apperrors.Internal, "computing memory stats"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- response/wire helper types ---

type jobStatusResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type pagedSkills struct {
	Skills []*skills.Skill `json:"skills"`
	Total  int             `json:"total"`
}

type pagedHistory struct {
	Entries []query.HistoryEntry `json:"entries"`
	Total   int                  `json:"total"`
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
