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

// Command aimcore-demo runs a scripted scenario (model registration,
// inference traffic, clock advances) against a single in-process instance
// of the partition scheduler, safety gateway, QoS manager, and traffic
// limiter, and writes an audit log of what happened. It replaces the e2e
// driver's live-cluster scenario runner for a domain with no cluster to
// drive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/amd-aim/aimcore/internal/demo"
)

func main() {
	scenarioDir := flag.String("scenario", "", "path to scenario directory containing run.yml, steps.yml, and config.yaml")
	logDir := flag.String("log-dir", "./logs", "directory to write the run's audit log")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	zapCfg := zap.NewProductionConfig()
	if *verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("constructing logger: %v", err)
	}
	defer zapLog.Sync() //nolint:errcheck
	logger := zapr.NewLogger(zapLog)

	if *scenarioDir == "" {
		log.Fatal("scenario directory is required; use -scenario")
	}

	absScenarioDir, err := filepath.Abs(*scenarioDir)
	if err != nil {
		log.Fatalf("resolving scenario directory: %v", err)
	}
	if _, err := os.Stat(absScenarioDir); os.IsNotExist(err) {
		log.Fatalf("scenario directory does not exist: %s", absScenarioDir)
	}

	absLogDir, err := filepath.Abs(*logDir)
	if err != nil {
		log.Fatalf("resolving log directory: %v", err)
	}

	scenario, err := demo.Load(absScenarioDir)
	if err != nil {
		log.Fatalf("loading scenario: %v", err)
	}

	driver, err := demo.NewDriver(scenario, absLogDir, logger)
	if err != nil {
		log.Fatalf("constructing driver: %v", err)
	}

	fmt.Printf("running scenario %s: %s\n", scenario.Run.Run.ID, scenario.Run.Run.Description)
	logPath, err := driver.Run(context.Background(), absLogDir)
	if err != nil {
		log.Fatalf("scenario failed: %v", err)
	}

	fmt.Printf("scenario complete, audit log written to %s\n", logPath)
}
