package identity

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var (
		ctx context.Context
		reg *Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		reg, err = NewRegistry(ctx, []string{"admin-1"}, []string{"worker-1"}, true)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Resolve", func() {
		It("classifies a seeded admin", func() {
			role, err := reg.Resolve(ctx, "admin-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleAdmin))
		})

		It("classifies a seeded worker", func() {
			role, err := reg.Resolve(ctx, "worker-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleWorker))
		})

		It("classifies any other non-empty identity as user", func() {
			role, err := reg.Resolve(ctx, "user-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleUser))
		})

		It("classifies the empty identity as anonymous", func() {
			role, err := reg.Resolve(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleAnonymous))
		})

		It("prefers admin when an identity is in both allow-lists", func() {
			reg.AddWorker("admin-1")
			role, err := reg.Resolve(ctx, "admin-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleAdmin))
		})
	})

	Describe("RequireAdmin", func() {
		It("fails for non-admins", func() {
			err := reg.RequireAdmin(ctx, "worker-1")
			Expect(err).To(HaveOccurred())
		})

		It("passes for admins", func() {
			Expect(reg.RequireAdmin(ctx, "admin-1")).To(Succeed())
		})
	})

	Describe("worker allow-list mutation", func() {
		It("removes a worker", func() {
			reg.RemoveWorker("worker-1")
			role, err := reg.Resolve(ctx, "worker-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(RoleUser))
		})
	})

	Describe("kill-switch", func() {
		It("defaults to the constructor value and can be flipped", func() {
			Expect(reg.AnalysisEnabled()).To(BeTrue())
			reg.SetAnalysisEnabled(false)
			Expect(reg.AnalysisEnabled()).To(BeFalse())
		})
	})
})
