// Package config loads the settings for connecting to the EVE-NG server
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/eve-link-manager/pkg/eveng"
	"github.com/grafana/eve-link-manager/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	HostVar     = "EVE_HOST"
	UsernameVar = "EVE_USERNAME"
	PasswordVar = "EVE_PASSWORD"
	LabVar      = "EVE_LAB"
	InsecureVar = "EVE_INSECURE"
	TenantVar   = "EVE_TENANT"
	WrapperVar  = "EVE_WRAPPER"
	SudoVar     = "EVE_SUDO"
	LabsRootVar = "EVE_LABS_ROOT"
	TimeoutVar  = "EVE_TIMEOUT"
)

// DefaultEnvFile is the dotenv file loaded if present in the working directory
const DefaultEnvFile = ".env"

// ErrInvalidConfig is returned when the configuration is incomplete or has invalid values
var ErrInvalidConfig = errors.New("invalid configuration")

// Config defines the access to the EVE-NG server and the lab
type Config struct {
	Host     string        `yaml:"host"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Lab      string        `yaml:"lab"`
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
	Tenant   int           `yaml:"tenant"`
	Wrapper  string        `yaml:"wrapper"`
	Sudo     bool          `yaml:"sudo"`
	LabsRoot string        `yaml:"labs_root"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Username: "admin",
		Timeout:  30 * time.Second,
		Wrapper:  eveng.DefaultWrapperPath,
		Sudo:     true,
		LabsRoot: eveng.DefaultLabsRoot,
	}
}

// Sources defines where the configuration is loaded from
type Sources struct {
	// File is an optional YAML configuration file
	File string
	// EnvFile is a dotenv file. If empty, DefaultEnvFile is loaded if it exists.
	EnvFile string
	// Vars are the environment variables of the process
	Vars map[string]string
}

// Load returns the configuration merging, in increasing order of precedence, the defaults,
// the configuration file, the dotenv file and the environment variables.
func Load(sources Sources) (*Config, error) {
	c := Default()

	if sources.File != "" {
		if err := c.LoadFile(sources.File); err != nil {
			return nil, err
		}
	}

	vars, err := ReadEnvFile(sources.EnvFile)
	if err != nil {
		return nil, err
	}

	for k, v := range sources.Vars {
		vars[k] = v
	}

	if err := c.ApplyEnv(vars); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadFile overrides the configuration with the values defined in a YAML file
func (c *Config) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}

	return nil
}

// ReadEnvFile returns the variables defined in a dotenv file. The variables are not
// exported to the process environment. If path is empty, DefaultEnvFile is read if it exists.
func ReadEnvFile(path string) (map[string]string, error) {
	optional := path == ""
	if optional {
		path = DefaultEnvFile
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return vars, nil
}

// ApplyEnv overrides the configuration with the values of the environment variables
func (c *Config) ApplyEnv(vars map[string]string) error {
	var err error

	c.Host = utils.GetStringEnvVar(vars, HostVar, c.Host)
	c.Username = utils.GetStringEnvVar(vars, UsernameVar, c.Username)
	c.Password = utils.GetStringEnvVar(vars, PasswordVar, c.Password)
	c.Lab = utils.GetStringEnvVar(vars, LabVar, c.Lab)
	c.Wrapper = utils.GetStringEnvVar(vars, WrapperVar, c.Wrapper)
	c.LabsRoot = utils.GetStringEnvVar(vars, LabsRootVar, c.LabsRoot)

	if c.Insecure, err = utils.GetBooleanEnvVar(vars, InsecureVar, c.Insecure); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Sudo, err = utils.GetBooleanEnvVar(vars, SudoVar, c.Sudo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Tenant, err = utils.GetIntEnvVar(vars, TenantVar, c.Tenant); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if timeout := vars[TimeoutVar]; timeout != "" {
		if c.Timeout, err = time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("%w: invalid value for %s: %q", ErrInvalidConfig, TimeoutVar, timeout)
		}
	}

	return nil
}

// Validate checks the settings required for accessing the server. The password is not
// checked as it can be requested interactively.
func (c *Config) Validate() error {
	missing := []string{}
	if c.Host == "" {
		missing = append(missing, "host ("+HostVar+")")
	}
	if c.Username == "" {
		missing = append(missing, "username ("+UsernameVar+")")
	}
	if c.Lab == "" {
		missing = append(missing, "lab ("+LabVar+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if c.Tenant < 0 {
		return fmt.Errorf("%w: tenant must be non-negative: %d", ErrInvalidConfig, c.Tenant)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative: %s", ErrInvalidConfig, c.Timeout)
	}

	return nil
}

// LabPath returns the normalized path of the configured lab
func (c *Config) LabPath() (eveng.LabPath, error) {
	lab, err := eveng.ParseLabPath(c.LabsRoot, c.Lab)
	if err != nil {
		return eveng.LabPath{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return lab, nil
}

// ClientConfig returns the configuration of the EVE-NG API client
func (c *Config) ClientConfig() eveng.ClientConfig {
	return eveng.ClientConfig{
		URL:      c.Host,
		Username: c.Username,
		Password: c.Password,
		Insecure: c.Insecure,
		Timeout:  c.Timeout,
	}
}

// WrapperConfig returns the configuration of the unl_wrapper command
func (c *Config) WrapperConfig() eveng.WrapperConfig {
	return eveng.WrapperConfig{
		Path:   c.Wrapper,
		Sudo:   c.Sudo,
		Tenant: c.Tenant,
	}
}
