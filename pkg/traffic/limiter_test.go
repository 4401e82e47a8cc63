package traffic_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/amd-aim/aimcore/pkg/traffic"
)

func TestTraffic(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Traffic Suite")
}

var _ = Describe("Limiter", func() {
	var (
		clk *clocktesting.FakeClock
		cfg traffic.Config
	)

	BeforeEach(func() {
		clk = clocktesting.NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
		cfg = traffic.DefaultConfig()
		cfg.RequestsPerMinute = 2
		cfg.RequestsPerHour = 100
		cfg.RequestsPerDay = 1000
	})

	It("allows requests under every limit", func() {
		l := traffic.New(cfg, clk, nil)
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
	})

	It("denies a blocked identity before checking anything else", func() {
		l := traffic.New(cfg, clk, nil)
		l.BlockIdentity("tenant-a")
		err := l.Check("tenant-a", 10, 1, "")
		Expect(errors.Is(err, traffic.ErrBlocked)).To(BeTrue())
	})

	It("unblocking restores access", func() {
		l := traffic.New(cfg, clk, nil)
		l.BlockIdentity("tenant-a")
		l.UnblockIdentity("tenant-a")
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
	})

	It("denies oversized context", func() {
		l := traffic.New(cfg, clk, nil)
		err := l.Check("tenant-a", cfg.MaxContextLength+1, 1, "")
		Expect(errors.Is(err, traffic.ErrContextTooLarge)).To(BeTrue())
	})

	It("denies oversized uploads", func() {
		l := traffic.New(cfg, clk, nil)
		err := l.Check("tenant-a", 10, cfg.MaxUploadSizeMB+1, "")
		Expect(errors.Is(err, traffic.ErrUploadTooLarge)).To(BeTrue())
	})

	It("denies geos outside the allow-list", func() {
		cfg.AllowedGeos = []string{"us-east", "us-west"}
		l := traffic.New(cfg, clk, nil)
		err := l.Check("tenant-a", 10, 1, "eu-central")
		Expect(errors.Is(err, traffic.ErrGeoDenied)).To(BeTrue())
		Expect(l.Check("tenant-a", 10, 1, "us-east")).To(Succeed())
	})

	It("denies outside business hours", func() {
		cfg.BusinessHoursOnly = true
		cfg.BusinessHoursStart = 9
		cfg.BusinessHoursEnd = 17
		clk.SetTime(time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC))
		l := traffic.New(cfg, clk, nil)
		err := l.Check("tenant-a", 10, 1, "")
		Expect(errors.Is(err, traffic.ErrOutsideHours)).To(BeTrue())
	})

	It("enforces the per-minute sliding window and recovers after it ages out", func() {
		l := traffic.New(cfg, clk, nil)
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())

		err := l.Check("tenant-a", 10, 1, "")
		Expect(errors.Is(err, traffic.ErrRateExceeded)).To(BeTrue())

		clk.Step(61 * time.Second)
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
	})

	It("tracks independent windows per identity", func() {
		l := traffic.New(cfg, clk, nil)
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
		Expect(l.Check("tenant-b", 10, 1, "")).To(Succeed())
	})

	It("reports stats reflecting current window occupancy", func() {
		l := traffic.New(cfg, clk, nil)
		Expect(l.Check("tenant-a", 10, 1, "")).To(Succeed())
		stats := l.Stats("tenant-a")
		Expect(stats.RequestsLastMinute).To(Equal(1))
		Expect(stats.Blocked).To(BeFalse())
	})
})

var _ = Describe("Config.Validate", func() {
	It("accepts the defaults", func() {
		Expect(traffic.DefaultConfig().Validate()).To(Succeed())
	})

	It("aggregates every malformed field in one error", func() {
		cfg := traffic.Config{
			RequestsPerMinute:  -1,
			RequestsPerHour:    -1,
			BusinessHoursOnly:  true,
			BusinessHoursStart: 20,
			BusinessHoursEnd:   9,
		}
		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		msg := err.Error()
		Expect(msg).To(ContainSubstring("requestsPerMinute"))
		Expect(msg).To(ContainSubstring("requestsPerHour"))
		Expect(msg).To(ContainSubstring("businessHoursStart must be before"))
	})
})
