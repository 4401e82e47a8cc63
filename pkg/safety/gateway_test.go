package safety_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/amd-aim/aimcore/pkg/safety"
)

func policy(kind safety.Kind, action safety.Action, threshold float64, pre, post bool, estimate time.Duration) safety.Policy {
	return safety.Policy{
		Kind:             kind,
		Model:            string(kind) + "-model",
		Enabled:          true,
		PreFilter:        pre,
		PostFilter:       post,
		Threshold:        threshold,
		Action:           action,
		EstimatedLatency: estimate,
	}
}

var _ = Describe("Gateway", func() {
	var reg *safety.Registry

	BeforeEach(func() {
		reg = safety.NewRegistry(nil)
	})

	It("denies the request when a block policy's classifier fails", func() {
		reg.Register(&fakeClassifier{name: "tox", kind: safety.KindToxicity, available: true,
			result: safety.ClassifierResult{Passed: false, Confidence: 0.9, Message: "toxic"}})

		gw := safety.NewGateway(reg, nil, nil, []safety.Policy{
			policy(safety.KindToxicity, safety.ActionBlock, 0.7, true, false, 20*time.Millisecond),
		}, nil)

		verdict := gw.CheckRequest(context.Background(), "some content", safety.UseCaseChat)
		Expect(verdict.Allowed).To(BeFalse())
		Expect(verdict.Results).To(HaveLen(1))
	})

	It("chains redacted content from one classifier into the next", func() {
		reg.Register(&fakeClassifier{name: "pii", kind: safety.KindPII, available: true,
			result: safety.ClassifierResult{Passed: false, Confidence: 0.9, Message: "pii", RedactedContent: "redacted-content"}})
		reg.Register(&fakeClassifier{name: "secrets", kind: safety.KindSecrets, available: true,
			result: safety.ClassifierResult{Passed: true}})

		gw := safety.NewGateway(reg, nil, nil, []safety.Policy{
			policy(safety.KindPII, safety.ActionRedact, 0.5, true, false, 10*time.Millisecond),
			policy(safety.KindSecrets, safety.ActionAllow, 0.5, true, false, 10*time.Millisecond),
		}, nil)

		verdict := gw.CheckRequest(context.Background(), "original content", safety.UseCaseChat)
		Expect(verdict.FinalContent).To(Equal("redacted-content"))
	})

	It("only selects policies whose direction matches (policy-compliance is response-only)", func() {
		reg.Register(&fakeClassifier{name: "policy", kind: safety.KindPolicy, available: true,
			result: safety.ClassifierResult{Passed: false, Confidence: 0.9}})

		gw := safety.NewGateway(reg, nil, nil, []safety.Policy{
			policy(safety.KindPolicy, safety.ActionBlock, 0.5, false, true, 10*time.Millisecond),
		}, nil)

		reqVerdict := gw.CheckRequest(context.Background(), "content", safety.UseCaseChat)
		Expect(reqVerdict.Results).To(BeEmpty())

		respVerdict := gw.CheckResponse(context.Background(), "content", safety.UseCaseChat)
		Expect(respVerdict.Results).To(HaveLen(1))
		Expect(respVerdict.Allowed).To(BeFalse())
	})

	It("drops classifiers the oracle estimates won't fit the use-case's budget", func() {
		reg.Register(&fakeClassifier{name: "slow", kind: safety.KindOmnibus, available: true,
			result: safety.ClassifierResult{Passed: false}})

		gw := safety.NewGateway(reg, nil, nil, []safety.Policy{
			// chat budget is 100ms; this estimate alone exceeds it.
			policy(safety.KindOmnibus, safety.ActionBlock, 0.5, true, false, 300*time.Millisecond),
		}, nil)

		verdict := gw.CheckRequest(context.Background(), "content", safety.UseCaseChat)
		Expect(verdict.Results).To(BeEmpty())
		Expect(verdict.Allowed).To(BeTrue())
	})

	It("stops invoking further classifiers once the hard budget is exceeded", func() {
		clk := clocktesting.NewFakeClock(time.Now())
		slow := &fakeClassifier{name: "a", kind: safety.KindToxicity, available: true,
			result: safety.ClassifierResult{Passed: true}, advance: 10 * time.Millisecond, clk: clk}
		never := &fakeClassifier{name: "b", kind: safety.KindPII, available: true,
			result: safety.ClassifierResult{Passed: true}}
		reg.Register(slow)
		reg.Register(never)

		gw := safety.NewGateway(reg, nil, clk, []safety.Policy{
			policy(safety.KindToxicity, safety.ActionAllow, 0.5, true, false, 1*time.Millisecond),
			// redact forces its own stage, so it is only invoked after the
			// budget check following the first stage runs.
			policy(safety.KindPII, safety.ActionRedact, 0.5, true, false, 1*time.Millisecond),
		}, map[safety.UseCase]time.Duration{safety.UseCaseChat: 5 * time.Millisecond})

		verdict := gw.CheckRequest(context.Background(), "content", safety.UseCaseChat)
		Expect(verdict.BudgetExceeded).To(BeTrue())
		Expect(verdict.Results).To(HaveLen(1))
		Expect(never.calls).To(Equal(0))
	})
})
