package strategy_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/strategy"
)

var _ = Describe("Strategies", func() {
	var table *strategy.Table

	BeforeEach(func() {
		table = strategy.BuildTable([]backend.Scored{
			scored("medium", 500*time.Millisecond),
			scored("fast", 200*time.Millisecond),
			scored("slow", 800*time.Millisecond),
		})
	})

	DescribeTable("All strategies can be instantiated by name",
		func(name string) {
			strat, known := strategy.New(name)
			Expect(known).To(BeTrue())
			Expect(strat).NotTo(BeNil())
		},
		Entry("Latency Weighted", strategy.LatencyWeighted),
		Entry("Round Robin", strategy.RoundRobin),
		Entry("Random", strategy.Random),
		Entry("Least Latency", strategy.LeastLatency),
	)

	It("should default to latency weighting for unknown names", func() {
		strat, known := strategy.New("consistent_hash")
		Expect(known).To(BeFalse())
		Expect(strat).NotTo(BeNil())
	})

	DescribeTable("All strategies select from the table",
		func(name string) {
			strat, _ := strategy.New(name)
			endpoint, ok := strat.Select(table)

			Expect(ok).To(BeTrue())
			Expect([]string{"slow", "medium", "fast"}).To(ContainElement(endpoint.Host))
		},
		Entry("Latency Weighted", strategy.LatencyWeighted),
		Entry("Round Robin", strategy.RoundRobin),
		Entry("Random", strategy.Random),
		Entry("Least Latency", strategy.LeastLatency),
	)

	DescribeTable("All strategies report no endpoint for empty tables",
		func(name string) {
			strat, _ := strategy.New(name)

			_, ok := strat.Select(strategy.BuildTable(nil))
			Expect(ok).To(BeFalse())

			_, ok = strat.Select(nil)
			Expect(ok).To(BeFalse())
		},
		Entry("Latency Weighted", strategy.LatencyWeighted),
		Entry("Round Robin", strategy.RoundRobin),
		Entry("Random", strategy.Random),
		Entry("Least Latency", strategy.LeastLatency),
	)

	Describe("LatencyWeighted", func() {
		It("should map fixed draws through the cumulative weights", func() {
			draws := []int{1, 6, 4, 2}
			strat := strategy.NewLatencyWeightedStrategyWithDraw(func(total int) int {
				Expect(total).To(Equal(6))
				d := draws[0]
				draws = draws[1:]
				return d
			})

			hosts := make([]string, 0, 4)
			for range 4 {
				endpoint, ok := strat.Select(table)
				Expect(ok).To(BeTrue())
				hosts = append(hosts, endpoint.Host)
			}
			Expect(hosts).To(Equal([]string{"slow", "fast", "fast", "medium"}))
		})

		It("should approach the triangular distribution", func() {
			strat := strategy.NewLatencyWeightedStrategy()
			counts := map[string]int{}
			const trials = 60000

			for range trials {
				endpoint, ok := strat.Select(table)
				Expect(ok).To(BeTrue())
				counts[endpoint.Host]++
			}

			Expect(float64(counts["slow"]) / trials).To(BeNumerically("~", 1.0/6, 0.02))
			Expect(float64(counts["medium"]) / trials).To(BeNumerically("~", 2.0/6, 0.02))
			Expect(float64(counts["fast"]) / trials).To(BeNumerically("~", 3.0/6, 0.02))
		})
	})

	Describe("RoundRobin", func() {
		It("should cycle through entries in table order", func() {
			strat := strategy.NewRoundRobinStrategy()

			hosts := make([]string, 0, 4)
			for range 4 {
				endpoint, _ := strat.Select(table)
				hosts = append(hosts, endpoint.Host)
			}
			Expect(hosts).To(Equal([]string{"slow", "medium", "fast", "slow"}))
		})
	})

	Describe("LeastLatency", func() {
		It("should always pick the fastest entry", func() {
			strat := strategy.NewLeastLatencyStrategy()
			for range 5 {
				endpoint, _ := strat.Select(table)
				Expect(endpoint.Host).To(Equal("fast"))
			}
		})
	})

	Describe("Random", func() {
		It("should reach every entry", func() {
			strat := strategy.NewRandomStrategy()
			seen := map[string]bool{}
			for range 300 {
				endpoint, _ := strat.Select(table)
				seen[endpoint.Host] = true
			}
			Expect(seen).To(HaveLen(3))
		})
	})
})
