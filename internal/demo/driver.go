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

package demo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/amd-aim/aimcore/pkg/catalog"
	"github.com/amd-aim/aimcore/pkg/config"
	"github.com/amd-aim/aimcore/pkg/devicecontroller"
	"github.com/amd-aim/aimcore/pkg/metrics"
	"github.com/amd-aim/aimcore/pkg/partition"
	"github.com/amd-aim/aimcore/pkg/qos"
	"github.com/amd-aim/aimcore/pkg/safety"
	"github.com/amd-aim/aimcore/pkg/safety/classifiers"
	"github.com/amd-aim/aimcore/pkg/scheduler"
	"github.com/amd-aim/aimcore/pkg/traffic"
)

// demoDevices is the fixed device catalog the driver boots against: a single
// class large enough to host a handful of demo-scale models.
var demoDevices = []catalog.DeviceSpec{
	{
		Name:              "mi300x",
		TotalMemory:       resource.MustParse("192Gi"),
		TotalComputeUnits: 304,
		ComputeModes:      []catalog.ComputeMode{catalog.ComputeSingle, catalog.ComputeCPX},
		MemoryModes:       []catalog.MemoryMode{catalog.MemoryUniform, catalog.MemoryQuadrant},
		SubDeviceCount:    8,
	},
}

// Driver orchestrates one scenario run against a freshly constructed
// scheduler, safety gateway, QoS manager, and traffic limiter, the same role
// the e2e driver plays against a live cluster - minus any Kubernetes API
// server, expressed over this repo's own in-process runtime instead.
type Driver struct {
	scenario *Scenario
	clock    *clocktesting.FakeClock
	tracker  *Tracker
	logger   *Logger
	log      logr.Logger

	partitioner *partition.Partitioner
	gateway     *safety.Gateway
	qosMgr      *qos.Manager
	limiter     *traffic.Limiter
	sched       *scheduler.Scheduler

	stepsExecuted int
}

// NewDriver wires up the runtime described by scenario.Core and returns a
// Driver ready to execute scenario.Steps. log receives one entry per step
// and per denied/rejected request; a logr.Discard() is fine for tests that
// only care about the resulting audit log.
func NewDriver(scenario *Scenario, logDir string, log logr.Logger) (*Driver, error) {
	now := time.Now()
	clk := clocktesting.NewFakeClock(now)
	sink := metrics.Noop()

	cat := catalog.New(demoDevices, nil, nil)
	device := scenario.Core.Partitions.Device
	if device == "" {
		device = "mi300x"
	}
	controller := devicecontroller.NewNull()
	partitioner := partition.New(controller, cat, sink, clk)
	if err := partitioner.Initialize(
		device,
		catalog.ComputeMode(scenario.Core.Partitions.Compute),
		catalog.MemoryMode(scenario.Core.Partitions.Memory),
	); err != nil {
		return nil, fmt.Errorf("initializing partitioner: %w", err)
	}

	sched := scheduler.New(partitioner, cat)

	gateway, err := buildGateway(scenario.Core, sink, clk)
	if err != nil {
		return nil, fmt.Errorf("building safety gateway: %w", err)
	}

	qosMgr := qos.NewManager(clk, sink)
	qosMgr.SetSaturationCap(scenario.Core.QoS.SaturationCap)

	trafficCfg := traffic.Config{
		RequestsPerMinute:  scenario.Core.Traffic.RateLimits.PerMinute,
		RequestsPerHour:    scenario.Core.Traffic.RateLimits.PerHour,
		RequestsPerDay:     scenario.Core.Traffic.RateLimits.PerDay,
		MaxContextLength:   scenario.Core.Traffic.Context.MaxContextLength,
		MaxUploadSizeMB:    scenario.Core.Traffic.Context.MaxUploadMB,
		AllowedGeos:        scenario.Core.Traffic.Access.AllowedGeos,
		BusinessHoursOnly:  scenario.Core.Traffic.Access.BusinessHoursOnly,
		BusinessHoursStart: scenario.Core.Traffic.Access.Hours.Start,
		BusinessHoursEnd:   scenario.Core.Traffic.Access.Hours.End,
		BurstPerSecond:     float64(scenario.Core.Traffic.RateLimits.PerMinute) / 60,
		BurstSize:          scenario.Core.Traffic.RateLimits.PerMinute,
	}
	if err := trafficCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid traffic config: %w", err)
	}
	limiter := traffic.New(trafficCfg, clk, sink)

	return &Driver{
		scenario:    scenario,
		clock:       clk,
		tracker:     NewTracker(now),
		logger:      NewLogger(scenario.Run.Run.ID, scenario.Run.Run.Description, logDir),
		log:         log,
		partitioner: partitioner,
		gateway:     gateway,
		qosMgr:      qosMgr,
		limiter:     limiter,
		sched:       sched,
	}, nil
}

// buildGateway instantiates the classifier candidate ladder for each
// configured guardrail kind and assembles the resulting safety.Policy set,
// the runtime counterpart of the §6 config schema's `guardrails` section.
// Toxicity, injection, and PII each register two independent candidates -
// a model-backed primary bound to spec.Model and a fast pattern-based
// fallback bound to spec.Fallback (or a default name, so the ladder always
// has a real second entry even when the config omits one) - mirroring the
// originating system's paired checkers (roberta_toxicity_checker.py next to
// toxicity_checker.py, and so on).
func buildGateway(cfg *config.Config, sink metrics.Sink, clk clock.Clock) (*safety.Gateway, error) {
	registry := safety.NewRegistry(sink)
	var policies []safety.Policy

	for kind, spec := range cfg.Guardrails {
		candidates, err := newClassifiers(safety.Kind(kind), spec.Model, spec.Fallback)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			registry.Register(c)
		}

		policies = append(policies, safety.Policy{
			Kind:       safety.Kind(kind),
			Model:      spec.Model,
			Enabled:    true,
			PreFilter:  spec.PreFilter,
			PostFilter: spec.PostFilter,
			Threshold:  spec.Threshold,
			Action:     safety.Action(spec.Action),
		})
	}

	budgets := make(map[safety.UseCase]time.Duration, len(cfg.LatencyBudgets))
	for useCase, budget := range cfg.LatencyBudgets {
		budgets[safety.UseCase(useCase)] = time.Duration(budget.GuardrailMs) * time.Millisecond
	}

	return safety.NewGateway(registry, sink, clk, policies, budgets), nil
}

// newClassifiers returns the ordered candidate ladder for kind: the
// model-backed variant first (preferred when available), then the fast
// pattern-based variant as fallback. Kinds with only one shipped variant
// return a single-element ladder.
func newClassifiers(kind safety.Kind, model, fallback string) ([]safety.Classifier, error) {
	switch kind {
	case safety.KindToxicity:
		if fallback == "" {
			fallback = "toxicity-keyword-v1"
		}
		return []safety.Classifier{classifiers.NewToxicityML(model), classifiers.NewToxicity(fallback)}, nil
	case safety.KindInjection:
		if fallback == "" {
			fallback = "injection-keyword-v1"
		}
		return []safety.Classifier{classifiers.NewInjectionML(model), classifiers.NewInjection(fallback)}, nil
	case safety.KindPII:
		if fallback == "" {
			fallback = "pii-keyword-v1"
		}
		return []safety.Classifier{classifiers.NewPIIML(model), classifiers.NewPII(fallback)}, nil
	case safety.KindSecrets:
		return []safety.Classifier{classifiers.NewSecrets(model)}, nil
	case safety.KindPolicy:
		return []safety.Classifier{classifiers.NewPolicyCompliance(model, nil)}, nil
	case safety.KindOmnibus:
		return []safety.Classifier{classifiers.NewOmnibus(model)}, nil
	default:
		return nil, fmt.Errorf("unknown guardrail kind %q", kind)
	}
}

// priorityFromQoS maps a scenario action's priority field to a QoS band,
// defaulting to medium the same way an orchestrator-absent GPUSharing.QosPriority does.
func priorityFromQoS(s string) qos.Priority {
	switch strings.ToLower(s) {
	case "high":
		return qos.PriorityHigh
	case "low":
		return qos.PriorityLow
	default:
		return qos.PriorityMedium
	}
}

// findModel looks up a scenario-declared model by id.
func (d *Driver) findModel(modelID string) (ModelEntry, bool) {
	for _, m := range d.scenario.Run.Models {
		if m.ModelID == modelID {
			return m, true
		}
	}
	return ModelEntry{}, false
}

// Run executes every step in order, advancing the clock and logging as it
// goes, and returns the path of the saved audit log.
func (d *Driver) Run(ctx context.Context, logDir string) (string, error) {
	for _, step := range d.scenario.Steps.Scenario {
		name := step.StepBody.Name
		d.log.Info("executing step", "name", name, "actions", len(step.StepBody.Actions))
		for _, action := range step.StepBody.Actions {
			if err := d.executeAction(ctx, action); err != nil {
				return "", fmt.Errorf("step %q: %w", name, err)
			}
		}
		d.logger.RecordStep(name)
		d.stepsExecuted++
	}
	d.log.Info("scenario complete", "stepsExecuted", d.stepsExecuted)
	return d.logger.Save(d.tracker, d.clock.Now())
}

func (d *Driver) executeAction(ctx context.Context, action Action) error {
	fields := parseActionData(action.ActionBody.ActionData)
	now := d.clock.Now()

	switch strings.ToUpper(action.ActionBody.ActionType) {
	case "REGISTER":
		modelID := fields["model_id"]
		model, ok := d.findModel(modelID)
		if !ok {
			return fmt.Errorf("unknown model %q", modelID)
		}
		partitionID, err := d.sched.Schedule(model.ModelID, model.Precision, model.Priority, model.PreferredPartition)
		d.tracker.Track("model", modelID, "schedule", map[string]any{"partition": partitionID, "err": errString(err)}, now)
		return err

	case "UNSCHEDULE":
		modelID := fields["model_id"]
		err := d.sched.Unschedule(modelID)
		d.tracker.Track("model", modelID, "unschedule", map[string]any{"err": errString(err)}, now)
		return err

	case "ADVANCE":
		d.clock.Step(parseDuration(fields["duration"]))
		return nil

	case "REQUEST":
		return d.executeRequest(ctx, fields, now)

	default:
		return fmt.Errorf("unsupported action type %q", action.ActionBody.ActionType)
	}
}

func (d *Driver) executeRequest(ctx context.Context, fields map[string]string, now time.Time) error {
	identity := fields["identity"]
	modelID := fields["model_id"]
	useCase := safety.UseCase(fields["use_case"])
	content := fields["content"]
	contextLength, _ := strconv.Atoi(fields["context_length"])
	uploadMB, _ := strconv.ParseFloat(fields["upload_mb"], 64)
	priority := priorityFromQoS(fields["priority"])

	inst, ok := d.sched.Get(modelID)
	if !ok {
		return fmt.Errorf("model %q is not scheduled", modelID)
	}

	if err := d.limiter.Check(identity, contextLength, uploadMB, fields["geo"]); err != nil {
		d.tracker.Track("request", identity, "traffic_denied", err.Error(), now)
		d.log.Info("request denied by traffic limiter", "identity", identity, "reason", err.Error())
		return nil
	}

	verdict := d.gateway.CheckRequest(ctx, content, useCase)
	d.tracker.Track("request", identity, "safety_request", verdict, now)
	if !verdict.Allowed {
		d.log.Info("request denied by safety gateway", "identity", identity, "useCase", useCase, "budgetExceeded", verdict.BudgetExceeded)
		return nil
	}

	req := qos.Request{
		ID:          qos.NewRequestID(),
		ModelID:     modelID,
		PartitionID: inst.PartitionID,
		Priority:    priority,
		EnqueuedAt:  now,
		MaxLimit:    1,
	}
	if err := d.qosMgr.Enqueue(req); err != nil {
		d.tracker.Track("request", identity, "qos_rejected", err.Error(), now)
		d.log.Info("request rejected by QoS manager", "identity", identity, "reason", err.Error())
		return nil
	}

	dequeued, ok := d.qosMgr.Dequeue()
	if !ok {
		d.tracker.Track("request", identity, "qos_expired", nil, now)
		d.log.Info("request expired before dequeue", "identity", identity)
		return nil
	}

	respVerdict := d.gateway.CheckResponse(ctx, verdict.FinalContent, useCase)
	d.tracker.Track("request", identity, "safety_response", respVerdict, d.clock.Now())
	if !respVerdict.Allowed {
		d.log.Info("response denied by safety gateway", "identity", identity, "useCase", useCase)
	}

	latency := d.clock.Now().Sub(dequeued.EnqueuedAt)
	d.qosMgr.RecordCompletion(modelID, latency, respVerdict.Allowed)
	d.tracker.Track("model", modelID, "completion", map[string]any{"latency": latency.String(), "ok": respVerdict.Allowed}, d.clock.Now())
	return nil
}

// parseActionData parses the driver's "key=value,key=value" action_data
// format, the same convention the e2e driver's ParseScaleAction uses.
func parseActionData(data string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(data, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fields[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return fields
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
