package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codectx/codectx/constants/lipgloss"
)

// configCacheEntry holds cached configuration with metadata
type configCacheEntry struct {
	config  *Config
	modTime time.Time
}

// Global cache for configuration files
var (
	configCache = make(map[string]*configCacheEntry)
	cacheMutex  sync.RWMutex
)

// SummarizerConfig selects and configures the summarization backend.
type SummarizerConfig struct {
	Backend     string   `mapstructure:"backend"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version     string            `mapstructure:"version"`
	Theme       string            `mapstructure:"theme"`
	OutputFile  string            `mapstructure:"output_file"`
	CacheDir    string            `mapstructure:"cache_dir"`
	EnableCache bool              `mapstructure:"enable_cache"`
	TokenBudget int               `mapstructure:"token_budget"`
	HashWorkers int               `mapstructure:"hash_workers"`
	Summarizer  *SummarizerConfig `mapstructure:"summarizer"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:     "1.0.0",
	Theme:       "dracula",
	OutputFile:  "PROJECT_CONTEXT.md",
	CacheDir:    ".context-cache",
	EnableCache: true,
	TokenBudget: 8000,
	HashWorkers: 0,
	Summarizer: &SummarizerConfig{
		Backend:     "heuristic",
		BaseURL:     "http://localhost:11434/api",
		Model:       "llama3.1",
		Temperature: nil,
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	// Set default values using Viper
	setDefaults()

	// Automatically read environment variables
	viper.AutomaticEnv()

	// Explicitly bind environment variables to config keys
	bindEnv()

	// Check if the user provided a config file
	if cfgFile != "" {
		// Use the config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Look for configuration files in the current directory
		viper.SetConfigName("codectx-config") // Name of config file (without extension)
		viper.AddConfigPath(cwd)              // Look in the current working directory

		// Support both JSON and YAML formats
		viper.SetConfigType("yaml") // Set default type
		if err := viper.ReadInConfig(); err != nil {
			// If YAML fails, try JSON
			viper.SetConfigType("json")
			_ = viper.ReadInConfig() // Fall back to defaults when neither exists
		}
	}

	// Read the explicitly specified config file (if any)
	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	}

	// Bind CLI flags to override config values
	bindFlags(rootCmd)

	// Unmarshal the configuration into the Config struct
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("output_file", DefaultConfig.OutputFile)
	viper.SetDefault("cache_dir", DefaultConfig.CacheDir)
	viper.SetDefault("enable_cache", DefaultConfig.EnableCache)
	viper.SetDefault("token_budget", DefaultConfig.TokenBudget)
	viper.SetDefault("hash_workers", DefaultConfig.HashWorkers)
	viper.SetDefault("summarizer.backend", DefaultConfig.Summarizer.Backend)
	viper.SetDefault("summarizer.base_url", DefaultConfig.Summarizer.BaseURL)
	viper.SetDefault("summarizer.model", DefaultConfig.Summarizer.Model)
	viper.SetDefault("summarizer.temperature", DefaultConfig.Summarizer.Temperature)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("output_file", "OUTPUT_FILE")
	_ = viper.BindEnv("cache_dir", "CACHE_DIR")
	_ = viper.BindEnv("enable_cache", "ENABLE_CACHE")
	_ = viper.BindEnv("token_budget", "TOKEN_BUDGET")
	_ = viper.BindEnv("summarizer.backend", "SUMMARIZER_BACKEND")
	_ = viper.BindEnv("summarizer.base_url", "SUMMARIZER_BASE_URL")
	_ = viper.BindEnv("summarizer.model", "SUMMARIZER_MODEL")
	_ = viper.BindEnv("summarizer.temperature", "SUMMARIZER_TEMPERATURE")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("output_file", rootCmd.PersistentFlags().Lookup("output_file"))
	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache_dir"))
	_ = viper.BindPFlag("enable_cache", rootCmd.PersistentFlags().Lookup("enable_cache"))
	_ = viper.BindPFlag("token_budget", rootCmd.PersistentFlags().Lookup("token_budget"))
	_ = viper.BindPFlag("summarizer.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("summarizer.base_url", rootCmd.PersistentFlags().Lookup("base_url"))
	_ = viper.BindPFlag("summarizer.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("summarizer.temperature", rootCmd.PersistentFlags().Lookup("temperature"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	// Theme configuration
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for rendering the context document. (e.g., 'dracula', 'light', 'dark')")

	// Output and cache configuration
	rootCmd.PersistentFlags().String("output_file", DefaultConfig.OutputFile, "Path of the generated context document, relative to the project root.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory holding cached file summaries.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable summary caching for faster regeneration")
	rootCmd.PersistentFlags().Int("token_budget", DefaultConfig.TokenBudget, "Approximate token budget for the generated document; exceeding it produces a warning.")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	// Summarizer backend configuration
	rootCmd.PersistentFlags().String("backend", DefaultConfig.Summarizer.Backend, "The summarization backend (e.g., 'heuristic', 'ollama')")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.Summarizer.BaseURL, "The base URL of the Ollama API (default is 'http://localhost:11434/api').")
	rootCmd.PersistentFlags().String("model", DefaultConfig.Summarizer.Model, "The name of the model used for summarization, such as 'llama3.1'.")
	rootCmd.PersistentFlags().Float32("temperature", 0, "Adjusts the model's creativity (0-1, default 0.2).")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// LoadConfigWithCache loads configuration with caching support
func LoadConfigWithCache(rootCmd *cobra.Command, cwd string) *Config {
	var configFilePath string

	// Determine config file path
	if cfgFile != "" {
		configFilePath = cfgFile
	} else {
		// Check for default config files
		yamlPath := fmt.Sprintf("%s/codectx-config.yaml", cwd)
		ymlPath := fmt.Sprintf("%s/codectx-config.yml", cwd)
		jsonPath := fmt.Sprintf("%s/codectx-config.json", cwd)

		if _, err := os.Stat(yamlPath); err == nil {
			configFilePath = yamlPath
		} else if _, err := os.Stat(ymlPath); err == nil {
			configFilePath = ymlPath
		} else if _, err := os.Stat(jsonPath); err == nil {
			configFilePath = jsonPath
		}
	}

	// If no config file exists, return default configuration loading
	if configFilePath == "" {
		return LoadConfigs(rootCmd, cwd)
	}

	// Check file modification time
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		// File doesn't exist or error, fallback to regular loading
		return LoadConfigs(rootCmd, cwd)
	}

	// Check cache first
	cacheMutex.RLock()
	if cached, exists := configCache[configFilePath]; exists {
		// Check if file has been modified since cache
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.config
		}
	}
	cacheMutex.RUnlock()

	// Load configuration normally
	config := LoadConfigs(rootCmd, cwd)

	// Update cache
	cacheMutex.Lock()
	configCache[configFilePath] = &configCacheEntry{
		config:  config,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return config
}

// ClearConfigCache clears all cached configuration files
func ClearConfigCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	configCache = make(map[string]*configCacheEntry)
}

// InvalidateConfigCache removes a specific config file from cache
func InvalidateConfigCache(configPath string) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	delete(configCache, configPath)
}
