package jobs

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skillcore/coordinator/internal/apperrors"
)

var _ = Describe("AnalysisQueue", func() {
	var q *AnalysisQueue

	BeforeEach(func() {
		q = NewAnalysisQueue()
	})

	Describe("RequestAnalysis", func() {
		It("creates a Pending job appended to pending_order", func() {
			jobID, err := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(err).NotTo(HaveOccurred())
			Expect(jobID).NotTo(BeEmpty())
			Expect(q.PendingCount()).To(Equal(1))

			status, _, err := q.GetStatus(jobID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(AnalysisPending))
		})

		It("deduplicates identical (skill, requester, model) while Pending", func() {
			first, err := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(err).NotTo(HaveOccurred())
			second, err := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(q.PendingCount()).To(Equal(1))
		})

		It("deduplicates identical (skill, requester, model) while Processing", func() {
			first, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			second, err := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("does not dedup across different models", func() {
			first, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			second, _ := q.RequestAnalysis("o/r", "alice", "claude", "cred")
			Expect(second).NotTo(Equal(first))
		})
	})

	Describe("ClaimPending", func() {
		It("claims in FIFO order and is at-most-once across concurrent-style calls", func() {
			j1, _ := q.RequestAnalysis("o/r1", "alice", "gpt", "c")
			j2, _ := q.RequestAnalysis("o/r2", "alice", "gpt", "c")
			j3, _ := q.RequestAnalysis("o/r3", "alice", "gpt", "c")

			first := q.ClaimPending(2, "worker-1")
			Expect(first).To(HaveLen(2))
			Expect(first[0].JobID).To(Equal(j1))
			Expect(first[1].JobID).To(Equal(j2))

			second := q.ClaimPending(10, "worker-2")
			Expect(second).To(HaveLen(1))
			Expect(second[0].JobID).To(Equal(j3))

			// nothing left to claim
			Expect(q.ClaimPending(10, "worker-3")).To(BeEmpty())
		})

		It("caps the limit at DefaultClaimLimit", func() {
			for i := 0; i < 15; i++ {
				q.RequestAnalysis("o/r", string(rune('a'+i)), "m", "c")
			}
			claimed := q.ClaimPending(50, "worker-1")
			Expect(claimed).To(HaveLen(DefaultClaimLimit))
		})
	})

	Describe("SubmitResult", func() {
		It("transitions Processing -> Completed", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")

			job, noop, err := q.SubmitResult(jobID, "worker-1", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(noop).To(BeFalse())
			Expect(job.Status).To(Equal(AnalysisCompleted))
			Expect(job.CompletedAt).NotTo(BeNil())
		})

		It("is idempotent on an already-Completed job", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			_, _, err := q.SubmitResult(jobID, "worker-1", false)
			Expect(err).NotTo(HaveOccurred())

			_, noop, err := q.SubmitResult(jobID, "worker-1", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(noop).To(BeTrue())
		})

		It("rejects a caller who did not claim the job", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			_, _, err := q.SubmitResult(jobID, "worker-2", false)
			Expect(apperrors.KindOf(err)).To(Equal(apperrors.Unauthorized))
		})

		It("allows an admin to submit regardless of claimant", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			_, _, err := q.SubmitResult(jobID, "admin-1", true)
			Expect(err).NotTo(HaveOccurred())
		})

		It("errors for a Failed job that was not cancelled", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			Expect(q.SubmitError(jobID, "worker-1", "boom", false)).To(Succeed())

			_, _, err := q.SubmitResult(jobID, "worker-1", false)
			Expect(err).To(HaveOccurred())
		})

		It("silently no-ops a late completion on a job cancelled while Processing", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			q.ClaimPending(1, "worker-1")
			Expect(q.Cancel(jobID, "alice", false)).To(Succeed())

			_, noop, err := q.SubmitResult(jobID, "worker-1", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(noop).To(BeTrue())
		})
	})

	Describe("Cancel", func() {
		It("removes a Pending job from pending_order", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(q.PendingCount()).To(Equal(1))

			Expect(q.Cancel(jobID, "alice", false)).To(Succeed())
			Expect(q.PendingCount()).To(Equal(0))

			status, msg, _ := q.GetStatus(jobID)
			Expect(status).To(Equal(AnalysisFailed))
			Expect(msg).To(Equal(CancelledByRequester))
		})

		It("rejects cancellation by a non-requester non-admin", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			err := q.Cancel(jobID, "mallory", false)
			Expect(apperrors.KindOf(err)).To(Equal(apperrors.Unauthorized))
		})

		It("allows admin cancellation", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(q.Cancel(jobID, "admin-1", true)).To(Succeed())
		})

		It("rejects cancelling an already-terminal job", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "cred")
			Expect(q.Cancel(jobID, "alice", false)).To(Succeed())
			err := q.Cancel(jobID, "alice", false)
			Expect(apperrors.KindOf(err)).To(Equal(apperrors.Conflict))
		})
	})

	Describe("AnalyzedModels", func() {
		It("returns distinct model_used values across Completed jobs", func() {
			j1, _ := q.RequestAnalysis("o/r", "alice", "gpt", "c")
			q.ClaimPending(1, "worker-1")
			q.SubmitResult(j1, "worker-1", false)

			j2, _ := q.RequestAnalysis("o/r", "bob", "claude", "c")
			q.ClaimPending(1, "worker-1")
			q.SubmitResult(j2, "worker-1", false)

			Expect(q.AnalyzedModels("o/r")).To(ConsistOf("gpt", "claude"))
		})
	})

	Describe("SweepStuckJobs", func() {
		It("reclaims Processing jobs older than the cutoff", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "c")
			q.ClaimPending(1, "worker-1")

			n := q.SweepStuckJobs(time.Now().Add(time.Hour))
			Expect(n).To(Equal(1))

			status, msg, _ := q.GetStatus(jobID)
			Expect(status).To(Equal(AnalysisFailed))
			Expect(msg).To(Equal(ReclaimedMessage))
		})

		It("does not touch jobs claimed after the cutoff", func() {
			jobID, _ := q.RequestAnalysis("o/r", "alice", "gpt", "c")
			q.ClaimPending(1, "worker-1")

			n := q.SweepStuckJobs(time.Now().Add(-time.Hour))
			Expect(n).To(Equal(0))
			status, _, _ := q.GetStatus(jobID)
			Expect(status).To(Equal(AnalysisProcessing))
		})
	})
})
