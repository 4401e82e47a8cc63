package safety_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/amd-aim/aimcore/pkg/safety"
)

func TestSafety(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Safety Suite")
}

type fakeClassifier struct {
	name      string
	kind      safety.Kind
	available bool
	result    safety.ClassifierResult
	calls     int

	// advance, when set alongside clk, steps the fake clock forward by this
	// much each time Check runs, to deterministically simulate a slow call.
	advance time.Duration
	clk     *clocktesting.FakeClock
}

func (f *fakeClassifier) Name() string      { return f.name }
func (f *fakeClassifier) Kind() safety.Kind { return f.kind }
func (f *fakeClassifier) Available() bool   { return f.available }
func (f *fakeClassifier) Check(_ context.Context, _ string, _ float64) safety.ClassifierResult {
	f.calls++
	if f.clk != nil && f.advance > 0 {
		f.clk.Step(f.advance)
	}
	return f.result
}

var _ = Describe("ClassifierRegistry", func() {
	It("resolves the first available candidate in the ladder", func() {
		primary := &fakeClassifier{name: "primary", kind: safety.KindToxicity, available: false}
		fallback := &fakeClassifier{name: "fallback", kind: safety.KindToxicity, available: true}

		reg := safety.NewRegistry(nil)
		reg.Register(primary)
		reg.Register(fallback)

		resolved, ok := reg.Resolve(safety.KindToxicity)
		Expect(ok).To(BeTrue())
		Expect(resolved.Name()).To(Equal("fallback"))
	})

	It("still returns the first candidate when none are available, for its own open-by-default behavior", func() {
		only := &fakeClassifier{name: "only", kind: safety.KindPII, available: false,
			result: safety.ClassifierResult{Passed: true, Message: "unavailable"}}

		reg := safety.NewRegistry(nil)
		reg.Register(only)

		result, ok := reg.Check(context.Background(), safety.KindPII, "hello", 0.5)
		Expect(ok).To(BeTrue())
		Expect(result.Passed).To(BeTrue())
		Expect(result.Message).To(Equal("unavailable"))
	})

	It("memoizes identical checks instead of re-invoking the classifier", func() {
		c := &fakeClassifier{name: "c", kind: safety.KindSecrets, available: true,
			result: safety.ClassifierResult{Passed: true}}
		reg := safety.NewRegistry(nil)
		reg.Register(c)

		_, _ = reg.Check(context.Background(), safety.KindSecrets, "same content", 0.5)
		_, _ = reg.Check(context.Background(), safety.KindSecrets, "same content", 0.5)
		Expect(c.calls).To(Equal(1))
	})

	It("returns not-ok when no candidate is registered for a kind", func() {
		reg := safety.NewRegistry(nil)
		_, ok := reg.Resolve(safety.KindPolicy)
		Expect(ok).To(BeFalse())
	})
})
