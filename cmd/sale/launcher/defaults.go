package launcher

import "time"

// DefaultConfig returns the baseline configuration the launcher starts
// from before the config file, environment and CLI flags override it.
// The fake preset is the default so a fresh checkout runs without any
// operator setup.
func DefaultConfig() Config {
	return Config{
		Sale: SaleConfig{
			Preset:      "fake",
			RefundBatch: -1,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    "127.0.0.1",
			Port:    4090,
			Timeout: Duration(15 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1",
			Port:    6060,
		},
		Logging: LoggingConfig{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
	}
}
