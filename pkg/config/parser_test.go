package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/amd-aim/aimcore/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

const sample = `
partitions:
  device: cpx
  compute: cpx
  memory: quadrant
guardrails:
  toxicity:
    model: toxicity-v2
    preFilter: true
    postFilter: false
    threshold: 0.6
    action: block
traffic:
  rateLimits:
    perMinute: 30
qos:
  saturationCap: 50
`

var _ = Describe("LoadConfig", func() {
	var path string

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		path = filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte(sample), 0o644)).To(Succeed())
	})

	It("parses declared fields", func() {
		cfg, err := config.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Partitions.Device).To(Equal("cpx"))
		Expect(cfg.Guardrails["toxicity"].Model).To(Equal("toxicity-v2"))
		Expect(cfg.Guardrails["toxicity"].Threshold).To(Equal(0.6))
		Expect(cfg.Traffic.RateLimits.PerMinute).To(Equal(30))
		Expect(cfg.QoS.SaturationCap).To(Equal(50))
	})

	It("fills in defaults for everything the document leaves unset", func() {
		cfg, err := config.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Traffic.RateLimits.PerHour).To(Equal(1000))
		Expect(cfg.Traffic.Context.MaxContextLength).To(Equal(8192))
		Expect(cfg.Traffic.Access.Hours.Start).To(Equal(9))
		Expect(cfg.LatencyBudgets["chat"].GuardrailMs).To(Equal(100))
	})

	It("errors on an unreadable path", func() {
		_, err := config.LoadConfig(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("errors on malformed yaml", func() {
		dir := GinkgoT().TempDir()
		bad := filepath.Join(dir, "bad.yaml")
		Expect(os.WriteFile(bad, []byte("not: [valid"), 0o644)).To(Succeed())
		_, err := config.LoadConfig(bad)
		Expect(err).To(HaveOccurred())
	})
})
