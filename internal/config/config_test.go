package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "http://localhost:1337", cfg.CMS.BaseURL)
				assert.Equal(t, 600*time.Millisecond, cfg.CMS.RequestGap)
				assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
				assert.True(t, cfg.Poller.DemoMode)
				assert.Equal(t, 10, cfg.Schedule.DailyCapacity)
				assert.Equal(t, "America/Chicago", cfg.Schedule.Timezone)
				assert.Equal(t, "data/outbox.db", cfg.Outbox.Path)
				assert.Equal(t, "opsboard.events", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "opsboard-api", cfg.App.Name)
				assert.Equal(t, 4, cfg.Worker.Concurrency)
			}
		})
	}
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv("CMS_API_TOKEN", "env-token")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.CMS.Token, "environment token overrides the file")
}

// validConfig returns a configuration that passes both validations; each test
// case mutates one field.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		CMS:    CMSConfig{BaseURL: "http://localhost:1337"},
		Schedule: ScheduleConfig{
			DailyCapacity: 10,
			Timezone:      "America/Chicago",
		},
		Outbox: OutboxConfig{Path: "data/outbox.db"},
		RabbitMQ: RabbitMQConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "opsboard.events"},
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			PollInterval:    5 * time.Second,
			SyncTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "rabbitmq fields optional when disabled",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
			wantErr: false,
		},
		{
			name:    "empty timezone falls back to host",
			mutate:  func(c *Config) { c.Schedule.Timezone = "" },
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty cms base url",
			mutate:    func(c *Config) { c.CMS.BaseURL = "" },
			wantErr:   true,
			errString: "cms base_url is required",
		},
		{
			name:      "empty outbox path",
			mutate:    func(c *Config) { c.Outbox.Path = "" },
			wantErr:   true,
			errString: "outbox path is required",
		},
		{
			name:      "negative daily capacity",
			mutate:    func(c *Config) { c.Schedule.DailyCapacity = -1 },
			wantErr:   true,
			errString: "daily_capacity must not be negative",
		},
		{
			name:      "unknown timezone",
			mutate:    func(c *Config) { c.Schedule.Timezone = "Mars/Olympus_Mons" },
			wantErr:   true,
			errString: "invalid schedule timezone",
		},
		{
			name:      "rabbitmq enabled without host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "rabbitmq enabled with bad port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 0 },
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
		{
			name:      "rabbitmq enabled without exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "empty cms base url",
			mutate:    func(c *Config) { c.CMS.BaseURL = "" },
			wantErr:   true,
			errString: "cms base_url is required",
		},
		{
			name:      "empty outbox path",
			mutate:    func(c *Config) { c.Outbox.Path = "" },
			wantErr:   true,
			errString: "outbox path is required",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Worker.PollInterval = 0 },
			wantErr:   true,
			errString: "worker poll_interval must be greater than 0",
		},
		{
			name:      "zero sync timeout",
			mutate:    func(c *Config) { c.Worker.SyncTimeout = 0 },
			wantErr:   true,
			errString: "worker sync_timeout must be greater than 0",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(c *Config) { c.Worker.ShutdownTimeout = 0 },
			wantErr:   true,
			errString: "worker shutdown_timeout must be greater than 0",
		},
		{
			name:      "rabbitmq enabled without exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestScheduleConfig_Location(t *testing.T) {
	t.Run("empty timezone uses host location", func(t *testing.T) {
		cfg := &ScheduleConfig{}
		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, time.Local, loc)
	})

	t.Run("named timezone loads", func(t *testing.T) {
		cfg := &ScheduleConfig{Timezone: "America/Chicago"}
		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "America/Chicago", loc.String())
	})

	t.Run("unknown timezone errors", func(t *testing.T) {
		cfg := &ScheduleConfig{Timezone: "Nowhere/Specific"}
		_, err := cfg.Location()
		require.Error(t, err)
	})
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing cms section", func(t *testing.T) {
		cfg, err := Load("testdata/missing_cms.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cms base_url is required")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("valid port range", func(t *testing.T) {
		validPorts := []int{1, 80, 443, 8080, 65535}
		for _, port := range validPorts {
			assert.GreaterOrEqual(t, port, MinPort)
			assert.LessOrEqual(t, port, MaxPort)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
