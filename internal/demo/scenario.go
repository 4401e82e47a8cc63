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

// Package demo drives a scripted sequence of AIM Core operations - model
// registration, scheduling, inference requests - against a single in-process
// instance of the scheduler, safety gateway, QoS manager, and traffic
// limiter, for manual exploration and smoke-testing without a live
// orchestrator.
package demo

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/config"
)

// RunConfig is the top-level run.yml describing the scenario identity and
// the static model catalog it exercises.
type RunConfig struct {
	Run struct {
		ID          string `yaml:"id"`
		Description string `yaml:"description"`
		Identity    string `yaml:"identity"`
		Geo         string `yaml:"geo"`
	} `yaml:"run"`
	Models []ModelEntry `yaml:"models"`
}

// ModelEntry declares one workload the scenario can schedule by name.
type ModelEntry struct {
	ModelID            string           `yaml:"modelId"`
	Precision          aimv1.Precision  `yaml:"precision"`
	Priority           int              `yaml:"priority"`
	PreferredPartition *int             `yaml:"preferredPartition,omitempty"`
	QoSPriority        string           `yaml:"qosPriority"`
}

// Steps is the steps.yml step/action sequence, mirroring the run_scenario
// driver's scenario.yml shape but over AIM Core actions instead of ECS/K8s
// deployments.
type Steps struct {
	Scenario []Step `yaml:"scenario"`
}

// Step is a named group of actions executed together before the next
// timestep.
type Step struct {
	StepBody struct {
		Name    string   `yaml:"name"`
		Actions []Action `yaml:"actions"`
	} `yaml:"step"`
}

// Action is one instruction. ActionData is type-specific and parsed by the
// handler named by ActionType; see driver.go's executeStep switch.
type Action struct {
	ActionBody struct {
		Comment    string `yaml:"comment"`
		ActionType string `yaml:"action_type"`
		ActionData string `yaml:"action_data"`
	} `yaml:"action"`
}

// Scenario bundles a run config, its steps, and the AIM Core config.yaml
// those steps are evaluated against.
type Scenario struct {
	Run   RunConfig
	Steps Steps
	Core  *config.Config
	Dir   string
}

// Load reads run.yml, steps.yml, and config.yaml from dir.
func Load(dir string) (*Scenario, error) {
	runData, err := os.ReadFile(filepath.Join(dir, "run.yml"))
	if err != nil {
		return nil, fmt.Errorf("reading run.yml: %w", err)
	}
	var run RunConfig
	if err := yaml.Unmarshal(runData, &run); err != nil {
		return nil, fmt.Errorf("parsing run.yml: %w", err)
	}

	stepsData, err := os.ReadFile(filepath.Join(dir, "steps.yml"))
	if err != nil {
		return nil, fmt.Errorf("reading steps.yml: %w", err)
	}
	var steps Steps
	if err := yaml.Unmarshal(stepsData, &steps); err != nil {
		return nil, fmt.Errorf("parsing steps.yml: %w", err)
	}

	core, err := config.LoadConfig(filepath.Join(dir, "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading config.yaml: %w", err)
	}

	return &Scenario{Run: run, Steps: steps, Core: core, Dir: dir}, nil
}
