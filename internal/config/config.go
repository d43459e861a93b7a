// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads sirseer-pulse configuration.
//
// Sources, highest precedence first:
//  1. Command-line flags (applied by the caller)
//  2. Environment variables
//  3. Repository-specific configuration
//  4. Configuration file
//  5. Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from configPath, or when it is empty from
// the first file found among:
//   - .sirseer-pulse.yaml (current directory)
//   - .sirseer-pulse.yml (current directory)
//   - ~/.sirseer/pulse.yaml
//   - ~/.sirseer/pulse.yml
//
// A missing file in the standard locations is not an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		home, _ := os.UserHomeDir()
		defaultPaths := []string{
			".sirseer-pulse.yaml",
			".sirseer-pulse.yml",
			filepath.Join(home, ".sirseer", "pulse.yaml"),
			filepath.Join(home, ".sirseer", "pulse.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Output.ReportDir = expandPath(cfg.Output.ReportDir)

	return cfg, nil
}

// LoadConfigForRepo loads configuration and applies the overrides for
// repo, given as owner/repo. PULSE_AGENT still wins over a repository
// override.
func LoadConfigForRepo(configPath, repo string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if os.Getenv("PULSE_AGENT") == "" {
		cfg.Search.Agent = cfg.AgentFor(repo)
	}
	return cfg, nil
}

// AgentFor returns the agent identity for repo, honouring repository
// overrides. Repository keys match case-insensitively.
func (c *Config) AgentFor(repo string) string {
	for name, rc := range c.Repositories {
		if strings.EqualFold(name, repo) && rc.Agent != "" {
			return rc.Agent
		}
	}
	return c.Search.Agent
}

// Token reads the token from the configured environment variable.
func (c *Config) Token() string {
	env := c.GitHub.TokenEnv
	if env == "" {
		env = "GITHUB_TOKEN"
	}
	return os.Getenv(env)
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	// GitHub endpoints
	if endpoint := os.Getenv("GITHUB_API_ENDPOINT"); endpoint != "" {
		cfg.GitHub.APIEndpoint = endpoint
	}
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}

	if agent := os.Getenv("PULSE_AGENT"); agent != "" {
		cfg.Search.Agent = agent
	}
	if transport := os.Getenv("PULSE_TRANSPORT"); transport != "" {
		cfg.Transport = strings.ToLower(transport)
	}

	// Cache
	if backend := os.Getenv("PULSE_CACHE_BACKEND"); backend != "" {
		cfg.Cache.Backend = strings.ToLower(backend)
	}
	if dir := os.Getenv("PULSE_CACHE_DIR"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if dsn := os.Getenv("PULSE_CACHE_DSN"); dsn != "" {
		cfg.Cache.DSN = dsn
	}
	if ttl := os.Getenv("PULSE_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.Cache.TTL = d
		}
	}
	if quota := os.Getenv("PULSE_CACHE_QUOTA_BYTES"); quota != "" {
		if n, err := parsePositiveInt(quota); err == nil {
			cfg.Cache.QuotaBytes = int64(n)
		}
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validateEndpoint("GitHub API endpoint", c.GitHub.APIEndpoint); err != nil {
		return err
	}
	if err := validateEndpoint("GitHub GraphQL endpoint", c.GitHub.GraphQLEndpoint); err != nil {
		return err
	}
	if strings.TrimSpace(c.Search.Agent) == "" {
		return fmt.Errorf("search agent cannot be empty")
	}

	switch c.Transport {
	case "auto", "rest", "graphql":
	default:
		return fmt.Errorf("unknown transport %q (want auto, rest or graphql)", c.Transport)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendFile:
	case BackendPostgres:
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache backend postgres requires a dsn")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want memory, file or postgres)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got: %s", c.Cache.TTL)
	}
	if c.Cache.SweepInterval < 0 {
		return fmt.Errorf("cache sweep interval cannot be negative, got: %s", c.Cache.SweepInterval)
	}
	if c.Cache.QuotaBytes < 0 {
		return fmt.Errorf("cache quota cannot be negative, got: %d", c.Cache.QuotaBytes)
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "ndjson", "json":
	default:
		return fmt.Errorf("unknown output format %q (want ndjson or json)", c.Output.Format)
	}
	return nil
}

func validateEndpoint(name, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q is not an http(s) URL", name, endpoint)
	}
	return nil
}
