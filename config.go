package jms

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/glimte/mmate-jms-go/contracts"
)

// Config is the file form of the factory options. Unset booleans keep the
// factory defaults.
type Config struct {
	QueueManager           string `toml:"queue_manager" yaml:"queue_manager"`
	Channel                string `toml:"channel" yaml:"channel"`
	Host                   string `toml:"host" yaml:"host"`
	Port                   int    `toml:"port" yaml:"port"`
	CacheOpenSendQueues    *bool  `toml:"cache_open_send_queues" yaml:"cache_open_send_queues"`
	CacheOpenReceiveQueues *bool  `toml:"cache_open_receive_queues" yaml:"cache_open_receive_queues"`
	UseSharedConnections   *bool  `toml:"use_shared_connections" yaml:"use_shared_connections"`
	DynamicQueueTemplate   string `toml:"dynamic_queue_template" yaml:"dynamic_queue_template"`
	SSL                    bool   `toml:"ssl" yaml:"ssl"`
	SSLCipherSpec          string `toml:"ssl_cipher_spec" yaml:"ssl_cipher_spec"`
	SSLKeyRepository       string `toml:"ssl_key_repository" yaml:"ssl_key_repository"`
	NeedsMCD               *bool  `toml:"needs_mcd" yaml:"needs_mcd"`
	QueueManagerVersion    string `toml:"queue_manager_version" yaml:"queue_manager_version"`
}

// LoadConfig reads a TOML or YAML file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(bytes.NewReader(data))
	case ".yaml", ".yml":
		return ParseYAML(bytes.NewReader(data))
	default:
		return nil, &contracts.ConfigurationError{Field: "path", Reason: fmt.Sprintf("unsupported config format %q", filepath.Ext(path))}
	}
}

// ParseTOML decodes a TOML config
func ParseTOML(r io.Reader) (*Config, error) {
	var c Config
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &contracts.ConfigurationError{Field: undecoded[0].String(), Reason: "unknown key"}
	}
	return &c, nil
}

// ParseYAML decodes a YAML config
func ParseYAML(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return &c, nil
}

// Options converts the config into factory options. Options passed to
// NewConnectionFactory after these override them.
func (c *Config) Options() []FactoryOption {
	var opts []FactoryOption
	if c.QueueManager != "" {
		opts = append(opts, WithQueueManager(c.QueueManager))
	}
	if c.Channel != "" {
		opts = append(opts, WithChannel(c.Channel))
	}
	if c.Host != "" || c.Port != 0 {
		host, port := c.Host, c.Port
		if host == "" {
			host = "localhost"
		}
		if port == 0 {
			port = 1414
		}
		opts = append(opts, WithListener(host, port))
	}
	if c.CacheOpenSendQueues != nil {
		opts = append(opts, WithCacheOpenSendQueues(*c.CacheOpenSendQueues))
	}
	if c.CacheOpenReceiveQueues != nil {
		opts = append(opts, WithCacheOpenReceiveQueues(*c.CacheOpenReceiveQueues))
	}
	if c.UseSharedConnections != nil {
		opts = append(opts, WithSharedConnections(*c.UseSharedConnections))
	}
	if c.DynamicQueueTemplate != "" {
		opts = append(opts, WithDynamicQueueTemplate(c.DynamicQueueTemplate))
	}
	if c.SSL {
		opts = append(opts, WithSSL(c.SSLCipherSpec, c.SSLKeyRepository))
	}
	if c.QueueManagerVersion != "" {
		opts = append(opts, WithQueueManagerVersion(c.QueueManagerVersion))
	}
	// an explicit needs_mcd wins over the version
	if c.NeedsMCD != nil {
		opts = append(opts, WithMCD(*c.NeedsMCD))
	}
	return opts
}

// Validate applies the config to a default factory configuration and
// reports the first problem.
func (c *Config) Validate() error {
	cfg := defaultFactoryConfig()
	for _, opt := range c.Options() {
		opt(cfg)
	}
	return cfg.validate()
}
