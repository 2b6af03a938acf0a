package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Service ServiceConfig `toml:"service"`
	Wiki    WikiConfig    `toml:"wiki"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

type ServiceConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	Port        int    `toml:"port"`
	// SyncInterval is the period between scheduled runs, e.g. "6h".
	SyncInterval string `toml:"sync_interval"`
	// SyncOnStart triggers a run immediately at startup.
	SyncOnStart bool `toml:"sync_on_start"`
}

// WikiConfig identifies the Azure DevOps wiki the sync pulls from.
// All four identity values are required before a run may contact the wiki.
type WikiConfig struct {
	Organization string `toml:"organization"`
	Project      string `toml:"project"`
	WikiID       string `toml:"wiki_id"`
	// PAT is sent as the Basic-auth password with an empty username.
	PAT     string `toml:"pat"`
	Timeout int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
	SnapshotPath string `toml:"snapshot_path"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	return &Config{
		Service: ServiceConfig{
			Name:         execName,
			Environment:  "development",
			Port:         8080,
			SyncInterval: "6h",
		},
		Wiki: WikiConfig{
			Timeout: 30,
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(execDir, "data", execName+".db"),
			SnapshotPath: filepath.Join(execDir, "data", execName+"-snapshots.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file next to the binary or in the working dir
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if org := os.Getenv("AZURE_DEVOPS_ORG"); org != "" {
		config.Wiki.Organization = org
	}
	if project := os.Getenv("AZURE_DEVOPS_PROJECT"); project != "" {
		config.Wiki.Project = project
	}
	if wikiID := os.Getenv("AZURE_DEVOPS_WIKI_ID"); wikiID != "" {
		config.Wiki.WikiID = wikiID
	}
	if pat := os.Getenv("AZURE_DEVOPS_PAT"); pat != "" {
		config.Wiki.PAT = pat
	}

	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
	if snapPath := os.Getenv("SNAPSHOT_PATH"); snapPath != "" {
		config.Storage.SnapshotPath = snapPath
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Service.Port = portNum
		}
	}
	if interval := os.Getenv("SYNC_INTERVAL"); interval != "" {
		config.Service.SyncInterval = interval
	}
}

func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}
	if c.Storage.SnapshotPath == "" {
		return fmt.Errorf("storage snapshot_path is required")
	}

	if c.Service.Port <= 0 {
		c.Service.Port = 8080
	}

	if _, err := time.ParseDuration(c.Service.SyncInterval); err != nil {
		return fmt.Errorf("invalid sync_interval %q: %w", c.Service.SyncInterval, err)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

// SyncIntervalDuration returns the parsed scheduler period. Validate has
// already rejected unparseable values.
func (c *Config) SyncIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Service.SyncInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ValidateWiki checks the values required before any wiki call is made.
// Missing names are reported together so one sync error entry describes
// the whole problem.
func (c *Config) ValidateWiki() error {
	var missing []string
	if c.Wiki.Organization == "" {
		missing = append(missing, "wiki.organization")
	}
	if c.Wiki.Project == "" {
		missing = append(missing, "wiki.project")
	}
	if c.Wiki.WikiID == "" {
		missing = append(missing, "wiki.wiki_id")
	}
	if c.Wiki.PAT == "" {
		missing = append(missing, "wiki.pat")
	}
	if len(missing) > 0 {
		return NewConfigurationError(fmt.Sprintf("missing required configuration: %v", missing))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}
