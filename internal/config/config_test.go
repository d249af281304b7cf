package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  address: ":9090"
postgres:
  host: "db.internal"
  port: 5432
  user: "coordinator"
  database: "skill_coordinator"
redis:
  address: "redis.internal:6379"
caps:
  max_history_entries: 25
identity:
  seed_admins: ["admin-1"]
  seed_workers: ["worker-1"]
  analysis_enabled: true
logging:
  level: "debug"
  format: "console"
`
				gomega.Expect(os.WriteFile(configFile, []byte(validConfig), 0644)).To(gomega.Succeed())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(cfg.Server.Address).To(gomega.Equal(":9090"))
				gomega.Expect(cfg.Postgres.Host).To(gomega.Equal("db.internal"))
				gomega.Expect(cfg.Identity.SeedAdmins).To(gomega.ConsistOf("admin-1"))
				gomega.Expect(cfg.Caps.MaxHistoryEntries).To(gomega.Equal(25))
			})
		})

		Context("when the file does not exist", func() {
			It("returns an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				gomega.Expect(err).To(gomega.HaveOccurred())
			})
		})
	})

	Describe("DefaultPostgresConfig", func() {
		It("returns documented defaults", func() {
			cfg := DefaultPostgresConfig()
			gomega.Expect(cfg.Host).To(gomega.Equal("localhost"))
			gomega.Expect(cfg.Port).To(gomega.Equal(5432))
			gomega.Expect(cfg.MaxOpenConns).To(gomega.Equal(25))
		})
	})

	Describe("PostgresConfig.LoadFromEnv", func() {
		It("overrides fields present in the environment", func() {
			os.Setenv("DB_HOST", "envhost")
			defer os.Unsetenv("DB_HOST")

			cfg := DefaultPostgresConfig()
			cfg.LoadFromEnv()
			gomega.Expect(cfg.Host).To(gomega.Equal("envhost"))
		})

		It("keeps defaults when DB_PORT is invalid", func() {
			os.Setenv("DB_PORT", "not-a-port")
			defer os.Unsetenv("DB_PORT")

			cfg := DefaultPostgresConfig()
			original := cfg.Port
			cfg.LoadFromEnv()
			gomega.Expect(cfg.Port).To(gomega.Equal(original))
		})
	})
})
