package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Server Server `yaml:"server"`
	Auth   Auth   `yaml:"auth"`
	Audio  Audio  `yaml:"audio"`
	Voice  Voice  `yaml:"voice"`
}

// Server contains the council service location
type Server struct {
	BaseURL string `yaml:"base_url"`
}

// Auth contains login credentials; a pre-issued token skips the login call
type Auth struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

// Audio selects the capture/playback backend
type Audio struct {
	Backend    string `yaml:"backend"`     // miniaudio, portaudio or none
	BufferSize int    `yaml:"buffer_size"` // frames per buffer, portaudio only
}

// Voice contains voice session tuning
type Voice struct {
	HandshakeTimeout int `yaml:"handshake_timeout"` // seconds
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Server: Server{BaseURL: "http://localhost:8000"},
		Audio:  Audio{Backend: "miniaudio", BufferSize: 480},
		Voice:  Voice{HandshakeTimeout: 15},
	}
}

// Load reads and parses the configuration file, falling back to defaults for
// omitted sections.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Voice.Validate(); err != nil {
		return fmt.Errorf("voice config: %w", err)
	}

	return nil
}

// Validate validates the server section
func (s *Server) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	return nil
}

// Validate validates the audio section
func (a *Audio) Validate() error {
	validBackends := map[string]bool{"miniaudio": true, "portaudio": true, "none": true}
	if !validBackends[a.Backend] {
		return fmt.Errorf("backend must be one of [miniaudio, portaudio, none], got '%s'", a.Backend)
	}

	if a.Backend == "portaudio" && a.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be at least 1 frame, got %d", a.BufferSize)
	}

	return nil
}

// Validate validates the voice section
func (v *Voice) Validate() error {
	if v.HandshakeTimeout < 1 {
		return fmt.Errorf("handshake_timeout must be at least 1 second, got %d", v.HandshakeTimeout)
	}
	return nil
}

// GetHandshakeTimeout returns the handshake timeout as a time.Duration
func (v *Voice) GetHandshakeTimeout() time.Duration {
	return time.Duration(v.HandshakeTimeout) * time.Second
}
