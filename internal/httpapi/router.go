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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skillcore/coordinator/internal/cache"
	"github.com/skillcore/coordinator/pkg/coordinator"
)

// NewRouter builds the chi router exposing one endpoint per RPC operation
// over core. queryCache may be nil, in which case the Query Surface read
// handlers fall straight through to core on every call.
func NewRouter(core *coordinator.Core, allowedOrigins []string, queryCache *cache.Cache) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withCallerIdentity)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", callerIdentityHeader},
		AllowCredentials: false,
	}))

	h := &handlers{core: core, cache: queryCache}

	r.Route("/v1", func(r chi.Router) {
		// Identity & Authorization
		r.Post("/admins", h.addAdmin)
		r.Post("/workers", h.addWorker)
		r.Delete("/workers/{identity}", h.removeWorker)
		r.Post("/analysis-enabled", h.setAnalysisEnabled)
		r.Post("/tee-worker-url", h.setTeeWorkerURL)
		r.Get("/tee-worker-url", h.getTeeWorkerURL)

		// User Profile Store
		r.Post("/profile/credential", h.setEncryptedCredential)
		r.Delete("/profile/credential", h.removeEncryptedCredential)
		r.Get("/profile/has-credential", h.hasCredential)
		r.Get("/profile/me", h.getMyProfile)

		// Skill Index
		r.Post("/skills", h.addSkill)
		r.Post("/skills/batch", h.addSkillBatch)
		r.Put("/skills/{id}/files", h.setSkillFiles)
		r.Post("/skills/{id}/files", h.addSkillFile)
		r.Post("/skills/{id}/install", h.recordInstall)
		r.Post("/skills/{id}/verify", h.verifySkillFiles)
		r.Get("/skills/{id}/verify-file", h.verifyFileChecksum)

		// Prompt Registry
		r.Post("/prompts", h.createPrompt)
		r.Post("/prompts/{id}/default", h.setDefaultPrompt)
		r.Delete("/prompts/{id}", h.deletePrompt)
		r.Get("/prompts", h.listPrompts)
		r.Get("/prompts/{id}", h.getPrompt)
		r.Get("/prompts/default", h.getDefaultPrompt)

		// Analysis Queue
		r.Post("/analysis-jobs", h.requestAnalysis)
		r.Post("/analysis-jobs/claim", h.claimPendingJobs)
		r.Post("/analysis-jobs/{id}/result-with-metadata", h.submitJobResultWithMetadata)
		r.Post("/analysis-jobs/{id}/result", h.submitJobResult)
		r.Post("/analysis-jobs/{id}/error", h.submitJobError)
		r.Post("/analysis-jobs/{id}/cancel", h.cancelAnalysisJob)
		r.Get("/analysis-jobs/{id}", h.getJobStatus)
		r.Get("/analysis-jobs", h.listAnalysisJobs)
		r.Get("/analysis-jobs-pending-count", h.getPendingJobCount)
		r.Get("/skills/{id}/analyzed-models", h.getAnalyzedModels)
		r.Post("/analysis-jobs/sweep", h.sweepStuckAnalysisJobs)

		// Enrichment Queue
		r.Post("/enrichment-jobs", h.requestEnrichment)
		r.Post("/enrichment-jobs/claim", h.claimPendingEnrichmentJobs)
		r.Post("/enrichment-jobs/{id}/complete", h.completeEnrichment)
		r.Post("/enrichment-jobs/{id}/error", h.submitEnrichmentError)
		r.Post("/enrichment-jobs/{id}/cancel", h.cancelEnrichmentJob)
		r.Get("/enrichment-jobs/{id}", h.getEnrichmentJobStatus)
		r.Get("/enrichment-jobs", h.listEnrichmentJobs)
		r.Get("/enrichment-jobs-pending-count", h.getPendingEnrichmentJobCount)
		r.Post("/enrichment-jobs/sweep", h.sweepStuckEnrichmentJobs)

		// Query Surface — anonymous, read-only
		r.Get("/skills", h.listSkillsFiltered)
		// Skill ids contain '/', which {id} cannot match, so the whole
		// remaining path is taken as the id.
		r.Get("/skills/*", func(w http.ResponseWriter, req *http.Request) {
			chi.RouteContext(req.Context()).URLParams.Add("id", chi.URLParam(req, "*"))
			h.getSkill(w, req)
		})
		r.Get("/search", h.searchSkills)
		r.Get("/categories/{category}/skills", h.getSkillsByCategory)
		r.Get("/owners/{owner}/skills", h.getSkillsByOwner)
		r.Get("/skills-top-rated", h.getTopRatedSkills)
		r.Get("/skills-providing-mcp", h.getSkillsProvidingMCP)
		r.Get("/skills-with-flags", h.getSkillsWithFlags)
		r.Get("/skills-by-topic-rating", h.getSkillsByTopicRating)
		r.Get("/skills-unanalyzed", h.getUnanalyzedSkills)
		r.Get("/categories", h.getCategories)
		r.Get("/analysis-history", h.getAllAnalysisHistory)
		r.Get("/stats", h.getStats)
		r.Get("/analysis-history-stats", h.getAnalysisHistoryStats)
		r.Get("/memory-stats", h.getMemoryStats)
	})

	return r
}
