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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogCollection is the on-disk record of one scenario run: every step
// executed, the tracker's entity histories, and the final resource state.
// Shaped after the e2e driver's LogCollection, minus the Kubernetes-specific
// audit event stream (there is no API server to tail here).
type LogCollection struct {
	RunID        string               `json:"run_id"`
	Description  string               `json:"description"`
	Timestamp    string               `json:"timestamp"`
	StepsRun     []string             `json:"steps_run"`
	EntityEvents int                  `json:"entity_events"`
	Entities     int                  `json:"entities"`
	History      map[string]*History  `json:"history"`
}

// Logger accumulates a run's step log and writes it out as JSON, mirroring
// the e2e driver's audit.Logger minus its Kubernetes apiserver plumbing.
type Logger struct {
	runID       string
	description string
	logDir      string
	stepsRun    []string
}

// NewLogger constructs a Logger for a run writing under logDir.
func NewLogger(runID, description, logDir string) *Logger {
	return &Logger{runID: runID, description: description, logDir: logDir}
}

// RecordStep appends a completed step name to the run log.
func (l *Logger) RecordStep(name string) {
	l.stepsRun = append(l.stepsRun, name)
}

// Save writes the accumulated log, together with the tracker's history, to
// logDir/<runID>.json and returns the path written.
func (l *Logger) Save(tracker *Tracker, at time.Time) (string, error) {
	if err := os.MkdirAll(l.logDir, 0o755); err != nil {
		return "", fmt.Errorf("creating log dir: %w", err)
	}

	collection := LogCollection{
		RunID:        l.runID,
		Description:  l.description,
		Timestamp:    at.UTC().Format(time.RFC3339),
		StepsRun:     l.stepsRun,
		EntityEvents: tracker.EventCount(),
		Entities:     tracker.EntityCount(),
		History:      tracker.History(),
	}

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling log collection: %w", err)
	}

	path := filepath.Join(l.logDir, l.runID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing log file: %w", err)
	}
	return path, nil
}
