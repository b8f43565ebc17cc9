package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/redirect-balancer/config"
	"github.com/angeloszaimis/redirect-balancer/internal/strategy"
)

func validConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Address: ":0", Environment: config.EnvDev, IdleTimeout: 2 * time.Minute},
		Registry: config.RegistryConfig{File: "./balancer_server_list.txt"},
		Probe:    config.ProbeConfig{Path: "files/plshelp.txt", Workers: 1},
		Strategy: config.StrategyConfig{Type: strategy.LatencyWeighted},
		Logging:  config.LoggingConfig{Level: config.LogLevelInfo},
	}
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	writeConfig := func(content string) {
		err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  address: "127.0.0.1:9000"
  environment: "staging"
  idle_timeout: "30s"

registry:
  file: "/etc/balancer/servers.txt"

probe:
  path: "files/probe.bin"
  timeout: "5s"
  workers: 4

strategy:
  type: "round-robin"

pages:
  dir: "/srv/pages"

metrics:
  address: ":9100"

logging:
  level: "debug"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse server settings", func() {
				cfg, _ := config.LoadFrom(tempDir)
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:9000"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Server.IdleTimeout).To(Equal(30 * time.Second))
			})

			It("should parse probe settings", func() {
				cfg, _ := config.LoadFrom(tempDir)
				Expect(cfg.Probe).To(Equal(config.ProbeConfig{
					Path:    "files/probe.bin",
					Timeout: 5 * time.Second,
					Workers: 4,
				}))
			})

			It("should parse the remaining sections", func() {
				cfg, _ := config.LoadFrom(tempDir)
				Expect(cfg.Registry.File).To(Equal("/etc/balancer/servers.txt"))
				Expect(cfg.Strategy.Type).To(Equal(strategy.RoundRobin))
				Expect(cfg.Pages.Dir).To(Equal("/srv/pages"))
				Expect(cfg.Metrics.Address).To(Equal(":9100"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
			})
		})

		Context("with an invalid config file", func() {
			It("should reject an unknown strategy", func() {
				writeConfig("strategy:\n  type: least-conn\n")

				_, err := config.LoadFrom(tempDir)
				Expect(err).To(HaveOccurred())

				var errs validation.Errors
				Expect(errors.As(err, &errs)).To(BeTrue())
				Expect(errs).To(HaveKey("Strategy"))
				Expect(errs).NotTo(HaveKey("Server"))
			})

			It("should reject a duration that does not parse", func() {
				writeConfig("server:\n  idle_timeout: soon\n")

				_, err := config.LoadFrom(tempDir)
				Expect(err).To(HaveOccurred())
			})

			It("should reject unparseable YAML", func() {
				writeConfig("server: [unclosed\n")

				_, err := config.LoadFrom(tempDir)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Address).To(Equal(":0"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Server.IdleTimeout).To(Equal(120 * time.Second))
				Expect(cfg.Registry.File).To(Equal("./balancer_server_list.txt"))
				Expect(cfg.Probe.Path).To(Equal("files/plshelp.txt"))
				Expect(cfg.Probe.Timeout).To(BeZero())
				Expect(cfg.Probe.Workers).To(Equal(1))
				Expect(cfg.Strategy.Type).To(Equal(strategy.LatencyWeighted))
				Expect(cfg.Pages.Dir).To(BeEmpty())
				Expect(cfg.Metrics.Address).To(BeEmpty())
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
			})

			It("should apply environment variables", func() {
				GinkgoT().Setenv("STRATEGY_TYPE", strategy.LeastLatency)
				GinkgoT().Setenv("PROBE_WORKERS", "8")
				GinkgoT().Setenv("SERVER_IDLE_TIMEOUT", "45s")

				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Strategy.Type).To(Equal(strategy.LeastLatency))
				Expect(cfg.Probe.Workers).To(Equal(8))
				Expect(cfg.Server.IdleTimeout).To(Equal(45 * time.Second))
			})
		})
	})

	Describe("Validate", func() {
		It("should accept a complete configuration", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		DescribeTable("rejects invalid values",
			func(mutate func(*config.Config)) {
				cfg := validConfig()
				mutate(cfg)
				Expect(cfg.Validate()).NotTo(Succeed())
			},
			Entry("unknown environment", func(c *config.Config) { c.Server.Environment = "qa" }),
			Entry("address without port", func(c *config.Config) { c.Server.Address = "localhost" }),
			Entry("address with bad host", func(c *config.Config) { c.Server.Address = "bad_host!:80" }),
			Entry("address with port out of range", func(c *config.Config) { c.Server.Address = ":70000" }),
			Entry("zero idle timeout", func(c *config.Config) { c.Server.IdleTimeout = 0 }),
			Entry("sub-millisecond idle timeout", func(c *config.Config) { c.Server.IdleTimeout = time.Microsecond }),
			Entry("empty registry file", func(c *config.Config) { c.Registry.File = "" }),
			Entry("empty probe path", func(c *config.Config) { c.Probe.Path = "" }),
			Entry("negative probe timeout", func(c *config.Config) { c.Probe.Timeout = -time.Second }),
			Entry("zero workers", func(c *config.Config) { c.Probe.Workers = 0 }),
			Entry("unknown strategy", func(c *config.Config) { c.Strategy.Type = "consistent_hash" }),
			Entry("bad metrics address", func(c *config.Config) { c.Metrics.Address = "metrics" }),
			Entry("unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }),
		)

		DescribeTable("accepts every strategy name",
			func(name string) {
				cfg := validConfig()
				cfg.Strategy.Type = name
				Expect(cfg.Validate()).To(Succeed())
			},
			Entry("latency-weighted", strategy.LatencyWeighted),
			Entry("round-robin", strategy.RoundRobin),
			Entry("random", strategy.Random),
			Entry("least-latency", strategy.LeastLatency),
		)
	})
})
