// Package report publishes ingestion run summaries to Kafka so downstream
// consumers (dashboards, alerting) can observe pipeline health without
// scraping logs.
package report

import (
	"time"

	"github.com/pitwall-io/pitwall/internal/config"
)

const (
	defaultTopic        = "pitwall.ingestion-runs"
	defaultWriteTimeout = 10 * time.Second
)

// Config holds Kafka publisher configuration. Publishing is optional: with no
// brokers configured the publisher becomes a no-op and runs are only logged.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// LoadConfig loads publisher configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Brokers:      config.ParseCommaSeparatedList(config.GetEnvStr("PITWALL_KAFKA_BROKERS", "")),
		Topic:        config.GetEnvStr("PITWALL_KAFKA_TOPIC", defaultTopic),
		WriteTimeout: config.GetEnvDuration("PITWALL_KAFKA_WRITE_TIMEOUT", defaultWriteTimeout),
	}
}

// Enabled reports whether a broker list was configured.
func (c *Config) Enabled() bool {
	return len(c.Brokers) > 0
}
