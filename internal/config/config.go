// Package config loads settings from defaults, an optional config file,
// MICRORAIL_* environment variables, and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vmorsell/microrail-remote/internal/link"
	"github.com/vmorsell/microrail-remote/internal/ratelimit"
)

const (
	EnvPrefix  = "MICRORAIL"
	ConfigName = "microrail"

	DefaultHost      = "microrail.local"
	DefaultLogLevel  = "info"
	DefaultMQTTTopic = "microrail/status"
	DefaultSimListen = ":81"
)

type MQTT struct {
	Broker   string
	Topic    string
	ClientID string
}

type Config struct {
	Endpoint         link.Endpoint
	HandshakeTimeout time.Duration
	CommandRate      int
	LogLevel         string
	MQTT             MQTT
	SimListen        string
}

// Flags returns the flag set understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("host", DefaultHost, "device host name or address")
	fs.Int("port", link.DefaultPort, "device WebSocket port")
	fs.String("path", link.DefaultPath, "device WebSocket path")
	fs.String("subprotocol", link.DefaultSubprotocol, "WebSocket sub-protocol")
	fs.Duration("handshake-timeout", link.DefaultHandshakeTimeout, "WebSocket handshake timeout")
	fs.Int("command-rate", ratelimit.DefaultCommandLimit, "max commands of one kind per second, 0 disables throttling")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("mqtt-broker", "", "MQTT broker URI for the status mirror, empty disables it")
	fs.String("mqtt-topic", DefaultMQTTTopic, "MQTT topic for the status mirror")
	fs.String("mqtt-client-id", "", "MQTT client ID, random when empty")
	fs.String("sim-listen", DefaultSimListen, "simulator listen address")
	fs.String("config", "", "path to a config file")
	return fs
}

var flagKeys = map[string]string{
	"host":              "host",
	"port":              "port",
	"path":              "path",
	"subprotocol":       "subprotocol",
	"handshake-timeout": "handshake_timeout",
	"command-rate":      "command_rate",
	"log-level":         "log_level",
	"mqtt-broker":       "mqtt.broker",
	"mqtt-topic":        "mqtt.topic",
	"mqtt-client-id":    "mqtt.client_id",
	"sim-listen":        "sim.listen",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", link.DefaultPort)
	v.SetDefault("path", link.DefaultPath)
	v.SetDefault("subprotocol", link.DefaultSubprotocol)
	v.SetDefault("handshake_timeout", link.DefaultHandshakeTimeout)
	v.SetDefault("command_rate", ratelimit.DefaultCommandLimit)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("sim.listen", DefaultSimListen)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load parses args with fs and resolves the configuration.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := newViper()
	for flagName, key := range flagKeys {
		if f := fs.Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	cfg := &Config{
		Endpoint: link.Endpoint{
			Host:        v.GetString("host"),
			Port:        v.GetInt("port"),
			Path:        v.GetString("path"),
			Subprotocol: v.GetString("subprotocol"),
		},
		HandshakeTimeout: v.GetDuration("handshake_timeout"),
		CommandRate:      v.GetInt("command_rate"),
		LogLevel:         v.GetString("log_level"),
		MQTT: MQTT{
			Broker:   v.GetString("mqtt.broker"),
			Topic:    v.GetString("mqtt.topic"),
			ClientID: v.GetString("mqtt.client_id"),
		},
		SimListen: v.GetString("sim.listen"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/microrail")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake timeout must be positive")
	}
	if c.CommandRate < 0 {
		return fmt.Errorf("command rate must not be negative")
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt topic is required when a broker is set")
	}
	return nil
}
