package jobs

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skillcore/coordinator/internal/apperrors"
)

var _ = Describe("EnrichmentQueue", func() {
	var q *EnrichmentQueue

	BeforeEach(func() {
		q = NewEnrichmentQueue()
	})

	It("is not deduplicated across identical requests", func() {
		first := q.RequestEnrichment("o/r", "alice", false)
		second := q.RequestEnrichment("o/r", "alice", false)
		Expect(second).NotTo(Equal(first))
		Expect(q.PendingCount()).To(Equal(2))
	})

	It("transitions to NotFound when found=false", func() {
		jobID := q.RequestEnrichment("o/r", "alice", false)
		q.ClaimPending(1, "worker-1")

		job, noop, err := q.Complete(jobID, "worker-1", false, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(noop).To(BeFalse())
		Expect(job.Status).To(Equal(EnrichmentNotFound))
	})

	It("transitions to Completed when found=true", func() {
		jobID := q.RequestEnrichment("o/r", "alice", true)
		q.ClaimPending(1, "worker-1")

		job, _, err := q.Complete(jobID, "worker-1", true, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(job.Status).To(Equal(EnrichmentCompleted))
		Expect(job.AutoAnalyze).To(BeTrue())
	})

	It("records the chained analysis job id", func() {
		jobID := q.RequestEnrichment("o/r", "alice", true)
		q.ClaimPending(1, "worker-1")
		q.Complete(jobID, "worker-1", true, false)

		Expect(q.SetChainedAnalysisJobID(jobID, "analysis-job-123")).To(Succeed())
		job, _ := q.Get(jobID)
		Expect(job.ChainedAnalysisJobID).To(Equal("analysis-job-123"))
	})

	It("no-ops a late completion on a job cancelled while Processing", func() {
		jobID := q.RequestEnrichment("o/r", "alice", false)
		q.ClaimPending(1, "worker-1")
		Expect(q.Cancel(jobID, "alice", false)).To(Succeed())

		_, noop, err := q.Complete(jobID, "worker-1", true, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(noop).To(BeTrue())
	})

	It("rejects cancellation by a non-requester non-admin", func() {
		jobID := q.RequestEnrichment("o/r", "alice", false)
		err := q.Cancel(jobID, "mallory", false)
		Expect(apperrors.KindOf(err)).To(Equal(apperrors.Unauthorized))
	})
})
