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

// Package catalog is the static, I/O-free knowledge of device classes and
// per-model memory estimates that the rest of the core consults for sizing
// decisions. It never mutates after construction.
package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
)

// ComputeMode is a device's compute-partition mode.
type ComputeMode string

// MemoryMode is a device's memory-partition mode.
type MemoryMode string

const (
	ComputeSingle ComputeMode = "single"
	ComputeCPX    ComputeMode = "cpx"

	MemoryUniform  MemoryMode = "uniform"
	MemoryQuadrant MemoryMode = "quadrant"
)

// DeviceSpec is the static description of one accelerator class.
type DeviceSpec struct {
	Name              string
	TotalMemory       resource.Quantity
	TotalComputeUnits int
	ComputeModes      []ComputeMode
	MemoryModes       []MemoryMode
	// SubDeviceCount is how many logical sub-devices `cpx` compute mode
	// yields on this class (e.g. 8 for MI300X). Exposed so Partitioner never
	// has to hardcode a vendor-specific constant.
	SubDeviceCount int
}

// SupportsCompute reports whether the device class advertises a compute mode.
func (d DeviceSpec) SupportsCompute(m ComputeMode) bool {
	for _, c := range d.ComputeModes {
		if c == m {
			return true
		}
	}
	return false
}

// SupportsMemory reports whether the device class advertises a memory mode.
func (d DeviceSpec) SupportsMemory(m MemoryMode) bool {
	for _, c := range d.MemoryModes {
		if c == m {
			return true
		}
	}
	return false
}

// ModelSizeEntry is one explicit per-precision memory override.
type ModelSizeEntry struct {
	ModelID   string
	Precision aimv1.Precision
	Bytes     int64
}

// precisionRatio expresses other precisions as a fraction of an fp16 baseline,
// confirmed against original_source/aim-gpu-sharing/runtime/model_sizing.py.
var precisionRatio = map[aimv1.Precision]float64{
	aimv1.PrecisionFP16: 1.0,
	aimv1.PrecisionBF16: 1.0,
	aimv1.PrecisionInt8: 0.60,
	aimv1.PrecisionInt4: 0.40,
}

// bytesPerParam is used when deriving a size from a parsed parameter count.
var bytesPerParam = map[aimv1.Precision]float64{
	aimv1.PrecisionFP16: 2.0,
	aimv1.PrecisionBF16: 2.0,
	aimv1.PrecisionInt8: 1.0,
	aimv1.PrecisionInt4: 0.5,
}

const (
	paramOverhead   = 1.2
	fallbackBytes   = 40 * 1024 * 1024 * 1024 // documented 40 GB fallback
)

// paramSuffixPattern matches a trailing parameter-count suffix in a model id,
// e.g. "Llama-3.1-8B-Instruct" -> "8B", "Qwen2.5-1.5B" -> "1.5B".
var paramSuffixPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([BM])(?:[^a-zA-Z0-9]|$)`)

// Catalog is the immutable, constructed-once device/model knowledge base.
type Catalog struct {
	devices map[string]DeviceSpec
	// explicit holds exact (model-id, precision) -> bytes overrides.
	explicit map[string]map[aimv1.Precision]int64
	// baseline holds a baseline fp16 byte count per model-id, used to derive
	// other precisions via precisionRatio when no explicit entry exists.
	baseline map[string]int64
}

// New constructs a Catalog from a static device list and size table. Both
// slices are copied; the Catalog never mutates them afterward.
func New(devices []DeviceSpec, explicitSizes []ModelSizeEntry, baselines map[string]int64) *Catalog {
	c := &Catalog{
		devices:  make(map[string]DeviceSpec, len(devices)),
		explicit: make(map[string]map[aimv1.Precision]int64),
		baseline: make(map[string]int64, len(baselines)),
	}
	for _, d := range devices {
		c.devices[d.Name] = d
	}
	for _, e := range explicitSizes {
		m, ok := c.explicit[e.ModelID]
		if !ok {
			m = make(map[aimv1.Precision]int64)
			c.explicit[e.ModelID] = m
		}
		m[e.Precision] = e.Bytes
	}
	for k, v := range baselines {
		c.baseline[k] = v
	}
	return c
}

// LookupDevice returns the static spec for a device class, if known.
func (c *Catalog) LookupDevice(name string) (DeviceSpec, bool) {
	d, ok := c.devices[name]
	return d, ok
}

// EstimateModelMemory follows the ladder documented in spec §4.1:
// explicit entry -> baseline ratio -> parameter-count parse -> fallback.
func (c *Catalog) EstimateModelMemory(modelID string, precision aimv1.Precision) int64 {
	if sizes, ok := c.explicit[modelID]; ok {
		if b, ok := sizes[precision]; ok {
			return b
		}
	}
	if baseline, ok := c.baseline[modelID]; ok {
		ratio := precisionRatio[precision]
		if ratio == 0 {
			ratio = 1.0
		}
		return int64(float64(baseline) * ratio)
	}
	if params, ok := parseParamCount(modelID); ok {
		bpp := bytesPerParam[precision]
		if bpp == 0 {
			bpp = bytesPerParam[aimv1.PrecisionFP16]
		}
		return int64(params * bpp * paramOverhead)
	}
	return fallbackBytes
}

// parseParamCount extracts a parameter count from a model id suffix such as
// "70B" or "1.5B", returning the absolute parameter count (e.g. 70e9).
func parseParamCount(modelID string) (float64, bool) {
	matches := paramSuffixPattern.FindAllStringSubmatch(modelID, -1)
	if len(matches) == 0 {
		return 0, false
	}
	// The last match closest to the end of the id is the parameter-count
	// suffix by convention (e.g. "Llama-3.1-8B-Instruct").
	m := matches[len(matches)-1]
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "B":
		return n * 1e9, true
	case "M":
		return n * 1e6, true
	}
	return 0, false
}

// NewModelSizeEntry is a constructor for callers building an explicit size
// table outside this package (e.g. config loading).
func NewModelSizeEntry(modelID string, precision aimv1.Precision, bytes int64) ModelSizeEntry {
	return ModelSizeEntry{ModelID: modelID, Precision: precision, Bytes: bytes}
}
