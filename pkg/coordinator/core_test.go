package coordinator

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/skills"
)

const (
	testAdmin      = "admin-1"
	testWorker     = "worker-1"
	testUser       = "user-1"
	testSkillID    = "acme/widget-skill"
	okAnalysisJSON = `{"ratings":{"overall":4.2,"topics":[],"flags":[]},"primary_category":"productivity","summary":"does widgets well"}`
)

func newTestCore() *Core {
	ctx := context.Background()
	idReg, err := identity.NewRegistry(ctx, []string{testAdmin}, []string{testWorker}, true)
	Expect(err).NotTo(HaveOccurred())
	core := New(idReg, 1024*1024, 100, 10)
	Expect(core.AddSkill(ctx, testAdmin, skills.Skill{
		ID:          testSkillID,
		Name:        "widget-skill",
		Description: "a skill about widgets",
		Files: []skills.SkillFile{
			skills.NewSkillFile("SKILL.md", "# Widget Skill", skills.FileTypeSkillMd),
		},
	})).To(Succeed())
	Expect(core.SetEncryptedCredential(ctx, testUser, "blob-abc")).To(Succeed())
	return core
}

var _ = Describe("Core analysis lifecycle", func() {
	var (
		ctx  context.Context
		core *Core
	)

	BeforeEach(func() {
		ctx = context.Background()
		core = newTestCore()
	})

	It("runs request -> claim -> submit -> history append -> profile increment end to end", func() {
		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		Expect(jobID).NotTo(BeEmpty())

		claimed, err := core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed).To(HaveLen(1))
		Expect(claimed[0].JobID).To(Equal(jobID))
		Expect(claimed[0].SkillName).To(Equal("widget-skill"))
		Expect(claimed[0].SkillMdContent).To(Equal("# Widget Skill"))

		Expect(core.SubmitJobResultWithMetadata(ctx, testWorker, jobID, okAnalysisJSON, "tee-v1", "prompt-v1")).To(Succeed())

		skill, err := core.GetSkill(testSkillID)
		Expect(err).NotTo(HaveOccurred())
		Expect(skill.Analysis).NotTo(BeNil())
		Expect(skill.Analysis.PrimaryCategory).To(Equal("productivity"))
		Expect(skill.Analysis.TeeWorkerVersion).To(Equal("tee-v1"))
		Expect(skill.AnalysisHistory).To(HaveLen(1))

		profile, err := core.GetMyProfile(ctx, testUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.AnalysesPerformed).To(Equal(int64(1)))

		status, _, err := core.GetJobStatus(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(jobs.AnalysisCompleted))
	})

	It("dedups a second identical request while the first is pending, but allows a new one once terminal", func() {
		first, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())

		second, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))

		Expect(core.CancelAnalysisJob(ctx, testUser, first)).To(Succeed())

		third, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		Expect(third).NotTo(Equal(first))
	})

	It("silently no-ops a late submission against a cancelled job", func() {
		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		_, err = core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())

		Expect(core.CancelAnalysisJob(ctx, testUser, jobID)).To(Succeed())

		err = core.SubmitJobResultWithMetadata(ctx, testWorker, jobID, okAnalysisJSON, "", "")
		Expect(err).NotTo(HaveOccurred())

		skill, err := core.GetSkill(testSkillID)
		Expect(err).NotTo(HaveOccurred())
		Expect(skill.AnalysisHistory).To(BeEmpty())
	})

	It("rejects requesting analysis while the kill-switch is disabled", func() {
		Expect(core.SetAnalysisEnabled(ctx, testAdmin, false)).To(Succeed())
		_, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).To(HaveOccurred())
		Expect(apperrors.KindOf(err)).To(Equal(apperrors.PreconditionFailed))
	})

	It("rejects a non-claimant worker submitting a result", func() {
		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		_, err = core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())

		idReg := core.identity
		Expect(idReg.Resolve(ctx, "worker-2")).To(Equal(identity.RoleUser))
		idReg.AddWorker("worker-2")

		err = core.SubmitJobResultWithMetadata(ctx, "worker-2", jobID, okAnalysisJSON, "", "")
		Expect(err).To(HaveOccurred())
		Expect(apperrors.KindOf(err)).To(Equal(apperrors.Unauthorized))
	})

	It("reclaims a stuck job via the admin sweep", func() {
		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		_, err = core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())

		n, err := core.SweepStuckAnalysisJobs(ctx, testAdmin, time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		status, msg, err := core.GetJobStatus(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(jobs.AnalysisFailed))
		Expect(msg).To(Equal(jobs.ReclaimedMessage))
	})
})

var _ = Describe("Core enrichment lifecycle", func() {
	var (
		ctx  context.Context
		core *Core
	)

	BeforeEach(func() {
		ctx = context.Background()
		core = newTestCore()
	})

	It("applies a found file set and chains a new analysis job when auto_analyze is set", func() {
		jobID, err := core.RequestEnrichment(ctx, testUser, testSkillID, true)
		Expect(err).NotTo(HaveOccurred())

		claimed, err := core.ClaimPendingEnrichmentJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed).To(HaveLen(1))

		err = core.CompleteEnrichment(ctx, testWorker, jobID, jobs.EnrichmentCompletionPayload{
			Found:     true,
			Content:   "# Widget Skill v2",
			SourceURL: "https://example.com/widget",
			FilesFound: []jobs.FileFound{
				{Path: "reference.md", Content: "extra reference"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		skill, err := core.GetSkill(testSkillID)
		Expect(err).NotTo(HaveOccurred())
		Expect(skill.Files).To(HaveLen(2))

		job, jerr := core.enrichQ.Get(jobID)
		Expect(jerr).NotTo(HaveOccurred())
		Expect(job.ChainedAnalysisJobID).NotTo(BeEmpty())

		pending, err := core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(1))
		Expect(pending[0].JobID).To(Equal(job.ChainedAnalysisJobID))
	})

	It("transitions to NotFound and never chains when the worker reports not found", func() {
		jobID, err := core.RequestEnrichment(ctx, testUser, testSkillID, true)
		Expect(err).NotTo(HaveOccurred())
		_, err = core.ClaimPendingEnrichmentJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())

		Expect(core.CompleteEnrichment(ctx, testWorker, jobID, jobs.EnrichmentCompletionPayload{Found: false})).To(Succeed())

		status, _, err := core.GetEnrichmentJobStatus(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(jobs.EnrichmentNotFound))

		pendingAnalysis, err := core.ClaimPendingJobs(ctx, testWorker, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(pendingAnalysis).To(BeEmpty())
	})
})

var _ = Describe("Core memory and query aggregation", func() {
	It("reports total_users and non-zero byte estimates across containers", func() {
		ctx := context.Background()
		core := newTestCore()

		stats := core.GetStats()
		Expect(stats.TotalSkills).To(Equal(int64(1)))
		Expect(stats.TotalUsers).To(Equal(int64(1)))

		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		Expect(jobID).NotTo(BeEmpty())

		mem, err := core.MemoryStats()
		Expect(err).NotTo(HaveOccurred())
		Expect(mem.SkillsBytes).To(BeNumerically(">", 0))
		Expect(mem.JobsBytes).To(BeNumerically(">", 0))
		Expect(mem.ProfilesBytes).To(BeNumerically(">", 0))
		Expect(mem.TotalBytes).To(Equal(mem.SkillsBytes + mem.JobsBytes + mem.ProfilesBytes))
	})
})
