// Package config holds rtspd's runtime configuration: the listen
// addresses, the encoder command line, and log verbosity. Defaults can
// be overlaid by an optional YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avloop/rtspd/internal/logger"
)

// Config is rtspd's complete runtime configuration.
type Config struct {
	// RTSPAddr is the TCP listen address for the RTSP control channel.
	RTSPAddr string `yaml:"rtsp_addr"`

	// RTPAddr and RTCPAddr are the UDP listen addresses used to send
	// media to clients that negotiated UDP transport.
	RTPAddr  string `yaml:"rtp_addr"`
	RTCPAddr string `yaml:"rtcp_addr"`

	// ServerIP is advertised in the DESCRIBE SDP body's o= line;
	// ServerName fills in the s= line.
	ServerIP   string `yaml:"server_ip"`
	ServerName string `yaml:"server_name"`

	// EncoderCommand is the shell command line of the external encoder
	// subprocess; it must write a raw Annex-B H.264 bytestream to its
	// stdout.
	EncoderCommand string `yaml:"encoder_command"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// IdleTimeoutSeconds closes a RTSP/TCP connection that issues no
	// request for this long (default 60; 0 also selects the 60s default,
	// a negative value disables it).
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		RTSPAddr:           "0.0.0.0:8554",
		RTPAddr:            "0.0.0.0:6000",
		RTCPAddr:           "0.0.0.0:6001",
		ServerIP:           "0.0.0.0",
		ServerName:         "rtspd",
		LogLevel:           "info",
		IdleTimeoutSeconds: 60,
	}
}

// LoadYAML overlays cfg with any field set in the YAML document at path.
// A missing file is not an error: the YAML config is optional.
func (c *Config) LoadYAML(path string) error {
	if path == "" {
		return nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

// LogLevelValue parses LogLevel into a logger.Level, defaulting to Info
// on an unrecognized value.
func (c Config) LogLevelValue() logger.Level {
	switch c.LogLevel {
	case "debug":
		return logger.Debug
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Info
	}
}
