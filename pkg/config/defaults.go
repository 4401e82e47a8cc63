package config

// Defaults returns the baseline configuration layered underneath whatever a
// loaded document specifies (§4.6's default budget table, §4.7/§4.8's
// documented defaults).
func Defaults() Config {
	return Config{
		Partitions: PartitionsConfig{
			Device:  "single",
			Compute: "single",
			Memory:  "uniform",
		},
		Traffic: TrafficConfig{
			RateLimits: RateLimitsConfig{PerMinute: 60, PerHour: 1000, PerDay: 10000},
			Context:    ContextConfig{MaxContextLength: 8192, MaxUploadMB: 10},
			Access:     AccessConfig{Hours: HoursConfig{Start: 9, End: 17}},
		},
		LatencyBudgets: map[string]LatencyBudget{
			"chat":     {GuardrailMs: 100},
			"rag":      {GuardrailMs: 150},
			"code-gen": {GuardrailMs: 200},
			"batch":    {GuardrailMs: 500},
		},
		QoS: QoSConfig{SaturationCap: 100},
	}
}
