package healthcheck_test

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"testing/fstest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/healthcheck"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
	"github.com/angeloszaimis/redirect-balancer/internal/testserver"
)

const probePath = "files/plshelp.txt"

var probeFiles = fstest.MapFS{
	probePath: {Data: []byte(strings.Repeat("p", 64<<10))},
}

func startBackend(opts ...testserver.Option) *testserver.Server {
	srv := testserver.New(probeFiles, opts...)
	Expect(srv.Start("127.0.0.1:0")).To(Succeed())
	DeferCleanup(srv.Close)
	return srv
}

// refusedEndpoint returns an address nothing listens on.
func refusedEndpoint() backend.Endpoint {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := ln.Addr().(*net.TCPAddr)
	Expect(ln.Close()).To(Succeed())
	return backend.Endpoint{Host: "127.0.0.1", Port: addr.Port}
}

// rawBackend answers every connection with reply and closes it. An empty
// reply keeps the connection open without answering.
func rawBackend(reply string) backend.Endpoint {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(ln.Close)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 1024)
				_, _ = conn.Read(buf)
				if reply == "" {
					time.Sleep(2 * time.Second)
				} else {
					_, _ = conn.Write([]byte(reply))
				}
				conn.Close()
			}()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return backend.Endpoint{Host: "127.0.0.1", Port: addr.Port}
}

var _ = Describe("Prober", func() {
	var (
		log *slog.Logger
		ctx context.Context
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		ctx = context.Background()
	})

	Describe("Probe", func() {
		It("should score reachable endpoints in input order", func() {
			fast := startBackend()
			slow := startBackend(testserver.WithDelay(150 * time.Millisecond))

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			scored := prober.Probe(ctx, []backend.Endpoint{slow.Endpoint(), fast.Endpoint()})

			Expect(scored).To(HaveLen(2))
			Expect(scored[0].Endpoint).To(Equal(slow.Endpoint()))
			Expect(scored[1].Endpoint).To(Equal(fast.Endpoint()))
			Expect(scored[0].Latency).To(BeNumerically(">=", 150*time.Millisecond))
			Expect(scored[0].Latency).To(BeNumerically(">", scored[1].Latency))
			Expect(scored[0].CumulativeWeight).To(BeZero())
		})

		It("should request the test resource once per endpoint", func() {
			srv := startBackend()

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			prober.Probe(ctx, []backend.Endpoint{srv.Endpoint()})

			Expect(srv.Requests()).To(Equal(int64(1)))
		})

		It("should drop endpoints that refuse connections", func() {
			up := startBackend()

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			scored := prober.Probe(ctx, []backend.Endpoint{refusedEndpoint(), up.Endpoint()})

			Expect(scored).To(HaveLen(1))
			Expect(scored[0].Endpoint).To(Equal(up.Endpoint()))
		})

		It("should return nothing when every endpoint is down", func() {
			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			Expect(prober.Probe(ctx, []backend.Endpoint{refusedEndpoint(), refusedEndpoint()})).To(BeEmpty())
		})

		It("should return nothing for no endpoints", func() {
			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			Expect(prober.Probe(ctx, nil)).To(BeEmpty())
		})

		It("should still score endpoints that do not have the test resource", func() {
			srv := startBackend()

			prober := healthcheck.NewProber(healthcheck.Options{Path: "missing.txt", Logger: log})
			Expect(prober.Probe(ctx, []backend.Endpoint{srv.Endpoint()})).To(HaveLen(1))
		})

		It("should drop endpoints with a malformed status line", func() {
			broken := rawBackend("garbage\r\n\r\n")

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			Expect(prober.Probe(ctx, []backend.Endpoint{broken})).To(BeEmpty())
		})

		It("should drop endpoints that close before the declared body arrives", func() {
			short := rawBackend("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nonly-a-few")

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			Expect(prober.Probe(ctx, []backend.Endpoint{short})).To(BeEmpty())
		})

		It("should drop stalled endpoints once the probe timeout passes", func() {
			stalled := rawBackend("")

			prober := healthcheck.NewProber(healthcheck.Options{
				Path:    probePath,
				Timeout: 100 * time.Millisecond,
				Logger:  log,
			})

			start := time.Now()
			Expect(prober.Probe(ctx, []backend.Endpoint{stalled})).To(BeEmpty())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		It("should abandon a stalled probe when the context is cancelled", func() {
			stalled := rawBackend("")
			cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			Expect(prober.Probe(cctx, []backend.Endpoint{stalled})).To(BeEmpty())
		})

		It("should give the same results with parallel workers", func() {
			a := startBackend(testserver.WithDelay(100 * time.Millisecond))
			b := startBackend()
			c := startBackend(testserver.WithDelay(100 * time.Millisecond))
			endpoints := []backend.Endpoint{a.Endpoint(), refusedEndpoint(), b.Endpoint(), c.Endpoint()}

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Workers: 4, Logger: log})

			start := time.Now()
			scored := prober.Probe(ctx, endpoints)
			Expect(time.Since(start)).To(BeNumerically("<", 200*time.Millisecond))

			Expect(scored).To(HaveLen(3))
			Expect(scored[0].Endpoint).To(Equal(a.Endpoint()))
			Expect(scored[1].Endpoint).To(Equal(b.Endpoint()))
			Expect(scored[2].Endpoint).To(Equal(c.Endpoint()))
		})

		It("should report probe outcomes to the collector", func() {
			up := startBackend()
			down := refusedEndpoint()

			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			collector := metrics.NewCollector(10, log)
			collector.Start(cctx)

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log, Collector: collector})
			prober.Probe(ctx, []backend.Endpoint{up.Endpoint(), down})

			Eventually(func() int64 {
				return collector.Snapshot("").Endpoints[down.String()].ProbeFailures
			}).Should(Equal(int64(1)))
			Eventually(func() int64 {
				return collector.Snapshot("").Endpoints[up.Endpoint().String()].Probes
			}).Should(Equal(int64(1)))
		})
	})

	Describe("ProbeOne", func() {
		It("should include the body download in the latency", func() {
			srv := startBackend(testserver.WithDelay(50 * time.Millisecond))

			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			latency, err := prober.ProbeOne(ctx, srv.Endpoint())

			Expect(err).NotTo(HaveOccurred())
			Expect(latency).To(BeNumerically(">=", 50*time.Millisecond))
		})

		It("should fail for refused connections", func() {
			prober := healthcheck.NewProber(healthcheck.Options{Path: probePath, Logger: log})
			_, err := prober.ProbeOne(ctx, refusedEndpoint())
			Expect(err).To(MatchError(ContainSubstring("connect")))
		})
	})
})
