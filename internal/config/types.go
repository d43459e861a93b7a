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

package config

import "time"

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the complete configuration for sirseer-pulse.
type Config struct {
	GitHub       GitHubConfig          `yaml:"github"`
	Search       SearchConfig          `yaml:"search"`
	Cache        CacheConfig           `yaml:"cache"`
	Output       OutputConfig          `yaml:"output"`
	Repositories map[string]RepoConfig `yaml:"repositories"`

	// Transport forces "rest" or "graphql"; "auto" picks GraphQL when a
	// token is available.
	Transport string `yaml:"transport"`
}

// GitHubConfig contains API endpoints and where to find the token.
// Custom endpoints serve GitHub Enterprise deployments.
type GitHubConfig struct {
	APIEndpoint     string `yaml:"api_endpoint"`
	GraphQLEndpoint string `yaml:"graphql_endpoint"`
	TokenEnv        string `yaml:"token_env"`
}

// SearchConfig sets the agent identity used in the author: qualifier.
type SearchConfig struct {
	Agent string `yaml:"agent"`
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	DSN           string        `yaml:"dsn"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	QuotaBytes    int64         `yaml:"quota_bytes"`
}

// OutputConfig contains defaults for the fetch command's output.
type OutputConfig struct {
	Format    string `yaml:"format"`
	ReportDir string `yaml:"report_dir"`
}

// RepoConfig holds per-repository overrides, keyed by owner/repo.
type RepoConfig struct {
	Agent string `yaml:"agent"`
}

// DefaultConfig returns the built-in defaults, which target github.com.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIEndpoint:     "https://api.github.com",
			GraphQLEndpoint: "https://api.github.com/graphql",
			TokenEnv:        "GITHUB_TOKEN",
		},
		Search: SearchConfig{
			Agent: "app/copilot-swe-agent",
		},
		Cache: CacheConfig{
			Backend:       BackendFile,
			Dir:           "~/.sirseer/cache/pulse",
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
			QuotaBytes:    50 << 20,
		},
		Output: OutputConfig{
			Format:    "ndjson",
			ReportDir: "~/.sirseer/pulse/reports",
		},
		Repositories: make(map[string]RepoConfig),
		Transport:    "auto",
	}
}
