package coordinator

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skillcore/coordinator/internal/identity"
)

var _ = Describe("Core lifecycle snapshot/restore", func() {
	It("round-trips every container through marshal/unmarshal and restores into a fresh core", func() {
		ctx := context.Background()
		core := newTestCore()

		jobID, err := core.RequestAnalysis(ctx, testUser, testSkillID, "gpt-5")
		Expect(err).NotTo(HaveOccurred())
		_, err = core.CreatePrompt(ctx, testAdmin, "default-prompt", "v1", "rate this skill", "seed prompt")
		Expect(err).NotTo(HaveOccurred())

		snap := core.Snapshot()
		Expect(snap.SchemaVersion).To(Equal(SnapshotSchemaVersion))

		data, err := MarshalSnapshot(snap)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := UnmarshalSnapshot(data)
		Expect(err).NotTo(HaveOccurred())

		idReg, err := identity.NewRegistry(ctx, nil, nil, false)
		Expect(err).NotTo(HaveOccurred())
		fresh := New(idReg, 1024*1024, 100, 10)
		Expect(fresh.Restore(decoded)).To(Succeed())

		status, _, err := fresh.GetJobStatus(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).NotTo(BeEmpty())

		skill, err := fresh.GetSkill(testSkillID)
		Expect(err).NotTo(HaveOccurred())
		Expect(skill.Name).To(Equal("widget-skill"))

		secondJobID, err := fresh.RequestAnalysis(ctx, testUser, testSkillID, "gpt-6")
		Expect(err).NotTo(HaveOccurred())
		Expect(secondJobID).NotTo(BeEmpty())

		prompts := fresh.ListPrompts()
		Expect(prompts).To(HaveLen(1))
	})

	It("rejects restoring a snapshot from a newer schema version", func() {
		core := newTestCore()
		snap := core.Snapshot()
		snap.SchemaVersion = SnapshotSchemaVersion + 1

		err := core.Restore(snap)
		Expect(err).To(HaveOccurred())
	})
})
