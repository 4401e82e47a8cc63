package config

// Config is the single declarative document described by the §6
// configuration schema.
type Config struct {
	Partitions     PartitionsConfig         `yaml:"partitions"`
	Guardrails     map[string]GuardrailSpec `yaml:"guardrails"`
	Traffic        TrafficConfig            `yaml:"traffic"`
	LatencyBudgets map[string]LatencyBudget `yaml:"latencyBudgets"`
	QoS            QoSConfig                `yaml:"qos"`
}

// PartitionsConfig sets the target device modes at boot.
type PartitionsConfig struct {
	Device  string `yaml:"device"`
	Compute string `yaml:"compute"`
	Memory  string `yaml:"memory"`
}

// GuardrailSpec wires one classifier kind to its backing model and policy.
type GuardrailSpec struct {
	Model      string  `yaml:"model"`
	Fallback   string  `yaml:"fallback,omitempty"`
	PreFilter  bool    `yaml:"preFilter"`
	PostFilter bool    `yaml:"postFilter"`
	Threshold  float64 `yaml:"threshold"`
	Action     string  `yaml:"action"`
}

// TrafficConfig is the §4.7 TrafficLimiter's declarative configuration.
type TrafficConfig struct {
	RateLimits RateLimitsConfig `yaml:"rateLimits"`
	Context    ContextConfig    `yaml:"context"`
	Access     AccessConfig     `yaml:"access"`
}

// RateLimitsConfig sets the sliding-window caps.
type RateLimitsConfig struct {
	PerMinute int `yaml:"perMinute"`
	PerHour   int `yaml:"perHour"`
	PerDay    int `yaml:"perDay"`
}

// ContextConfig sets request/upload size caps.
type ContextConfig struct {
	MaxContextLength int     `yaml:"maxContextLength"`
	MaxUploadMB      float64 `yaml:"maxUploadMB"`
}

// AccessConfig gates traffic by geography and time of day.
type AccessConfig struct {
	AllowedGeos       []string    `yaml:"allowedGeos,omitempty"`
	BusinessHoursOnly bool        `yaml:"businessHoursOnly"`
	Hours             HoursConfig `yaml:"hours"`
}

// HoursConfig is the business-hours gate's local-hour window.
type HoursConfig struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// LatencyBudget overrides the §4.6 default guardrail budget for one use-case.
type LatencyBudget struct {
	GuardrailMs int `yaml:"guardrailMs"`
}

// QoSConfig configures the §4.8 QoSManager.
type QoSConfig struct {
	SaturationCap int `yaml:"saturationCap"`
}
