/*
Copyright The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package safety

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

// defaultBudgets is the exact, normative §4.6 table. Overridden per use-case
// by the §6 config schema's latencyBudgets.<useCase>.guardrailMs.
var defaultBudgets = map[UseCase]time.Duration{
	UseCaseChat:    100 * time.Millisecond,
	UseCaseRAG:     150 * time.Millisecond,
	UseCaseCodeGen: 200 * time.Millisecond,
	UseCaseBatch:   500 * time.Millisecond,
}

// Gateway orchestrates the classifier pipeline against a per-use-case
// latency budget (§4.6).
type Gateway struct {
	registry *Registry
	sink     metrics.Sink
	clock    clock.Clock
	budgets  map[UseCase]time.Duration

	mu       sync.RWMutex
	policies []Policy
}

// NewGateway constructs a Gateway. budgetOverrides may be nil; any use-case
// present there replaces the §4.6 default for that use-case only.
func NewGateway(registry *Registry, sink metrics.Sink, clk clock.Clock, policies []Policy, budgetOverrides map[UseCase]time.Duration) *Gateway {
	if sink == nil {
		sink = metrics.Noop()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	budgets := make(map[UseCase]time.Duration, len(defaultBudgets))
	for uc, d := range defaultBudgets {
		budgets[uc] = d
	}
	for uc, d := range budgetOverrides {
		budgets[uc] = d
	}
	return &Gateway{registry: registry, sink: sink, clock: clk, policies: policies, budgets: budgets}
}

func (g *Gateway) budgetFor(uc UseCase) time.Duration {
	if d, ok := g.budgets[uc]; ok {
		return d
	}
	return defaultBudgets[UseCaseChat]
}

// CheckRequest runs the pre-filter pipeline against prompt content (§4.6).
func (g *Gateway) CheckRequest(ctx context.Context, content string, useCase UseCase) Verdict {
	return g.run(ctx, content, DirectionRequest, useCase)
}

// CheckResponse runs the post-filter pipeline against response content.
// Policy-compliance classifiers only ever run here (§4.5).
func (g *Gateway) CheckResponse(ctx context.Context, content string, useCase UseCase) Verdict {
	return g.run(ctx, content, DirectionResponse, useCase)
}

// stage is a maximal run of selected policies safe to invoke together: every
// member except possibly the last has a non-redact action, so none of them
// depends on another's rewritten content (§5: "may be parallelized ... when
// their declared dependencies permit"). A redact policy always starts its
// own single-member stage, since the next stage must see its output.
type stage struct {
	policies []Policy
}

func groupStages(policies []Policy) []stage {
	var stages []stage
	var current []Policy
	for _, p := range policies {
		if p.Action == ActionRedact {
			if len(current) > 0 {
				stages = append(stages, stage{policies: current})
				current = nil
			}
			stages = append(stages, stage{policies: []Policy{p}})
			continue
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		stages = append(stages, stage{policies: current})
	}
	return stages
}

// selectForBudget applies the §4.6 step-3 oracle: a deterministic function
// of (use-case, enabled policies) that drops classifiers whose estimate
// would not fit in what remains of the budget, in configured order.
func selectForBudget(policies []Policy, budget time.Duration) []Policy {
	remaining := budget
	var selected []Policy
	for _, p := range policies {
		if p.EstimatedLatency <= remaining {
			selected = append(selected, p)
			remaining -= p.EstimatedLatency
		}
	}
	return selected
}

func (g *Gateway) run(ctx context.Context, content string, dir Direction, useCase UseCase) Verdict {
	start := g.clock.Now()
	budget := g.budgetFor(useCase)

	g.mu.RLock()
	all := make([]Policy, len(g.policies))
	copy(all, g.policies)
	g.mu.RUnlock()

	var candidates []Policy
	for _, p := range all {
		if p.Enabled && p.appliesTo(dir) {
			candidates = append(candidates, p)
		}
	}
	selected := selectForBudget(candidates, budget)

	verdict := Verdict{Allowed: true, FinalContent: content}
	var fastFailed bool

	for _, st := range groupStages(selected) {
		if fastFailed {
			break
		}
		if g.clock.Now().Sub(start) > budget {
			verdict.BudgetExceeded = true
			g.sink.Counter("latency_budget_exceeded_total", map[string]string{"useCase": string(useCase)}).Inc(1)
			break
		}

		results := g.invokeStage(ctx, st.policies, verdict.FinalContent, budget-g.clock.Now().Sub(start))
		for i, res := range results {
			policy := st.policies[i]
			g.sink.Counter("guardrail_requests_total", map[string]string{"direction": string(dir), "kind": string(policy.Kind)}).Inc(1)

			if !res.Passed {
				switch policy.Action {
				case ActionBlock:
					verdict.Allowed = false
					g.sink.Counter("guardrail_requests_blocked_total", map[string]string{"direction": string(dir), "kind": string(policy.Kind)}).Inc(1)
					if policy.FastFail {
						fastFailed = true
					}
				case ActionRedact:
					if res.RedactedContent != "" {
						verdict.FinalContent = res.RedactedContent
					}
				case ActionWarn, ActionAllow:
					// no effect on Allowed; the result itself carries the warning.
				}
			}
			verdict.Results = append(verdict.Results, res)
		}

		if g.clock.Now().Sub(start) > budget {
			verdict.BudgetExceeded = true
			g.sink.Counter("latency_budget_exceeded_total", map[string]string{"useCase": string(useCase)}).Inc(1)
			break
		}
	}

	elapsed := g.clock.Now().Sub(start)
	g.sink.Histogram("guardrail_by_usecase_seconds", map[string]string{"useCase": string(useCase)}).Observe(elapsed.Seconds())
	verdict.ElapsedMS = elapsed.Milliseconds()
	return verdict
}

// invokeStage runs every policy in a stage, concurrently when there is more
// than one (errgroup), against a shared content snapshot — safe because a
// stage never mixes a redact policy with others.
func (g *Gateway) invokeStage(ctx context.Context, policies []Policy, content string, remaining time.Duration) []ClassifierResult {
	results := make([]ClassifierResult, len(policies))
	grp, gctx := errgroup.WithContext(ctx)
	for i, policy := range policies {
		i, policy := i, policy
		grp.Go(func() error {
			timeout := policy.EstimatedLatency * 2
			if remaining < timeout {
				timeout = remaining
			}
			if timeout <= 0 {
				timeout = time.Millisecond
			}
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			callStart := g.clock.Now()
			result, ok := g.registry.Check(cctx, policy.Kind, content, policy.Threshold)
			if !ok {
				result = ClassifierResult{Kind: policy.Kind, Passed: true, Message: "unavailable"}
			}
			result.Action = policy.Action
			g.sink.Histogram("guardrail_check_seconds", map[string]string{"kind": string(policy.Kind)}).Observe(g.clock.Now().Sub(callStart).Seconds())
			results[i] = result
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

// SetPolicies replaces the active policy set (e.g. on config reload).
func (g *Gateway) SetPolicies(policies []Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies = policies
}
