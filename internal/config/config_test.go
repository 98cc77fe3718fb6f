package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmorsell/microrail-remote/internal/link"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(Flags("test"), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Endpoint.URL(); got != "ws://microrail.local:81/" {
		t.Errorf("expected default URL, got %q", got)
	}
	if cfg.Endpoint.Subprotocol != link.DefaultSubprotocol {
		t.Errorf("expected subprotocol %q, got %q", link.DefaultSubprotocol, cfg.Endpoint.Subprotocol)
	}
	if cfg.HandshakeTimeout != link.DefaultHandshakeTimeout {
		t.Errorf("expected handshake timeout %v, got %v", link.DefaultHandshakeTimeout, cfg.HandshakeTimeout)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("expected mqtt mirror disabled, got broker %q", cfg.MQTT.Broker)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
}

func TestLoad_Flags(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(Flags("test"), []string{
		"--host", "192.168.4.1",
		"--port", "8081",
		"--command-rate", "0",
		"--handshake-timeout", "3s",
		"--mqtt-broker", "tcp://broker:1883",
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Endpoint.URL(); got != "ws://192.168.4.1:8081/" {
		t.Errorf("unexpected URL %q", got)
	}
	if cfg.CommandRate != 0 {
		t.Errorf("expected command rate 0, got %d", cfg.CommandRate)
	}
	if cfg.HandshakeTimeout != 3*time.Second {
		t.Errorf("expected 3s handshake timeout, got %v", cfg.HandshakeTimeout)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTT.Topic != DefaultMQTTTopic {
		t.Errorf("unexpected mqtt config %+v", cfg.MQTT)
	}
}

func TestLoad_Env(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MICRORAIL_HOST", "rail.lan")
	t.Setenv("MICRORAIL_MQTT_TOPIC", "trains/one")

	cfg, err := Load(Flags("test"), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Endpoint.Host != "rail.lan" {
		t.Errorf("expected host from env, got %q", cfg.Endpoint.Host)
	}
	if cfg.MQTT.Topic != "trains/one" {
		t.Errorf("expected topic from env, got %q", cfg.MQTT.Topic)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MICRORAIL_HOST", "rail.lan")

	cfg, err := Load(Flags("test"), []string{"--host", "10.0.0.2"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Endpoint.Host != "10.0.0.2" {
		t.Errorf("expected flag to win over env, got %q", cfg.Endpoint.Host)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := "host: microrail02.local\nport: 82\nmqtt:\n  broker: tcp://localhost:1883\n  topic: rail/status\n"
	if err := os.WriteFile(filepath.Join(dir, "microrail.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(Flags("test"), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Endpoint.URL(); got != "ws://microrail02.local:82/" {
		t.Errorf("unexpected URL %q", got)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.Topic != "rail/status" {
		t.Errorf("unexpected mqtt config %+v", cfg.MQTT)
	}
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load(Flags("test"), []string{"--config", "does-not-exist.yaml"}); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Endpoint:         link.NewEndpoint("microrail.local"),
			HandshakeTimeout: time.Second,
			CommandRate:      5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty host", func(c *Config) { c.Endpoint.Host = "" }, true},
		{"zero port", func(c *Config) { c.Endpoint.Port = 0 }, true},
		{"zero timeout", func(c *Config) { c.HandshakeTimeout = 0 }, true},
		{"negative rate", func(c *Config) { c.CommandRate = -1 }, true},
		{"broker without topic", func(c *Config) { c.MQTT.Broker = "tcp://b:1883" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}
