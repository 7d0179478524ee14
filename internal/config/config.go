package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTCPPort         = 12345
	DefaultDiscoveryPort   = 37020
	DefaultReadBuffer      = 1024
	DefaultBeaconInterval  = 2 * time.Second
	DefaultDiscoverTimeout = 10 * time.Second
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Journal   JournalConfig   `yaml:"journal"`
	Feed      FeedConfig      `yaml:"feed"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ReadBuffer bounds a single read; one read is one command.
	ReadBuffer int `yaml:"read_buffer"`
}

type DiscoveryConfig struct {
	Port        int           `yaml:"port"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	Broadcast   string        `yaml:"broadcast"`
	MDNS        bool          `yaml:"mdns"`
	MDNSService string        `yaml:"mdns_service"`
}

type JournalConfig struct {
	XMLPath      string `yaml:"xml_path"`
	HTMLPath     string `yaml:"html_path"`
	BoltPath     string `yaml:"bolt_path"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
	PostgresURL  string `yaml:"postgres_url"`
}

type FeedConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       DefaultTCPPort,
			ReadBuffer: DefaultReadBuffer,
		},
		Discovery: DiscoveryConfig{
			Port:        DefaultDiscoveryPort,
			Interval:    DefaultBeaconInterval,
			Timeout:     DefaultDiscoverTimeout,
			Broadcast:   "255.255.255.255",
			MDNSService: "_cmdbeacon._tcp",
		},
		Journal: JournalConfig{
			XMLPath:      "utils/log.xml",
			HTMLPath:     "utils/log.html",
			RedisChannel: "cmdbeacon.activity",
		},
		Feed: FeedConfig{
			Host:              "127.0.0.1",
			Port:              8090,
			SnapshotInterval:  5 * time.Second,
			BroadcastThrottle: 100 * time.Millisecond,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ReadBuffer <= 0 {
		return fmt.Errorf("server.read_buffer must be positive, got %d", c.Server.ReadBuffer)
	}
	if c.Discovery.Port <= 0 || c.Discovery.Port > 65535 {
		return fmt.Errorf("discovery.port %d out of range", c.Discovery.Port)
	}
	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("discovery.interval must be positive, got %s", c.Discovery.Interval)
	}
	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("discovery.timeout must be positive, got %s", c.Discovery.Timeout)
	}
	if c.Feed.Enabled && (c.Feed.Port <= 0 || c.Feed.Port > 65535) {
		return fmt.Errorf("feed.port %d out of range", c.Feed.Port)
	}
	return nil
}

// ListenAddr is the host:port the TCP listener binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BroadcastAddr is the UDP target the beacon sends announcements to.
func (c *Config) BroadcastAddr() string {
	return net.JoinHostPort(c.Discovery.Broadcast, strconv.Itoa(c.Discovery.Port))
}
