package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers:
      - localhost:9092
    group_id: trafikinfod
    delta_topic: traffic_deltas
    sink_topic: traffic_admitted
database:
  redis:
    host: localhost
    port: 6379
logging:
  level: debug
`

func TestLoadConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://traffic.example.com/api", cfg.Upstream.BaseURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "traffic_deltas", cfg.Broker.Kafka.DeltaTopic)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Reconciler.RefreshInterval)
	assert.Equal(t, 500, cfg.Reconciler.SnapshotLimit)
	assert.Equal(t, "realtime", cfg.Reconciler.MessageType)
	assert.Equal(t, "redis", cfg.Preferences.Backend)
	assert.Equal(t, "trafikinfo:counties", cfg.Preferences.Key)
	assert.Equal(t, 15*time.Second, cfg.Upstream.RequestTimeout)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantErr string
	}{
		{
			name: "missing upstream url",
			mutate: `
server:
  port: 8080
broker:
  kafka:
    brokers: [localhost:9092]
    delta_topic: traffic_deltas
database:
  redis:
    host: localhost
`,
			wantErr: "upstream.base_url",
		},
		{
			name: "missing kafka brokers",
			mutate: `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    delta_topic: traffic_deltas
database:
  redis:
    host: localhost
`,
			wantErr: "broker.kafka.brokers",
		},
		{
			name: "missing delta topic",
			mutate: `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers: [localhost:9092]
database:
  redis:
    host: localhost
`,
			wantErr: "broker.kafka.delta_topic",
		},
		{
			name: "invalid port",
			mutate: `
server:
  port: 99999
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers: [localhost:9092]
    delta_topic: traffic_deltas
database:
  redis:
    host: localhost
`,
			wantErr: "server.port",
		},
		{
			name: "redis backend without host",
			mutate: `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers: [localhost:9092]
    delta_topic: traffic_deltas
`,
			wantErr: "database.redis.host",
		},
		{
			name: "unknown message type",
			mutate: `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers: [localhost:9092]
    delta_topic: traffic_deltas
database:
  redis:
    host: localhost
reconciler:
  message_type: breaking
`,
			wantErr: "reconciler.message_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMemoryBackend(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 8080
upstream:
  base_url: http://traffic.example.com/api
broker:
  kafka:
    brokers: [localhost:9092]
    delta_topic: traffic_deltas
preferences:
  backend: memory
`))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Preferences.Backend)
}

func TestValidateStaticDirect(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Upstream: UpstreamConfig{BaseURL: "http://example.com", RequestTimeout: 10 * time.Second},
		Broker: BrokerConfig{Kafka: KafkaConfig{
			Brokers:    []string{"localhost:9092"},
			DeltaTopic: "traffic_deltas",
		}},
		Reconciler: ReconcilerConfig{
			RefreshInterval: time.Minute,
			SnapshotLimit:   500,
			MessageType:     "realtime",
		},
		Preferences: PreferencesConfig{Backend: "memory", Key: "trafikinfo:counties"},
	}
	assert.NoError(t, ValidateStatic(cfg))

	cfg.Reconciler.SnapshotLimit = 0
	assert.Error(t, ValidateStatic(cfg))
}
