package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fine-dev/fine-go/internal/common/httpclient"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Environment variables that override the config file.
const (
	EnvServerURL    = "FINE_URL"
	EnvAPIKey       = "FINE_API_KEY"
	EnvSessionToken = "FINE_SESSION_TOKEN"
)

// Config represents the configuration for the fine CLI
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the base URL of the fine backend
	ServerURL string `yaml:"server_url" validate:"required,url"`
	// RestURL and AIURL override the service URLs derived from ServerURL
	RestURL string `yaml:"rest_url,omitempty" validate:"omitempty,url"`
	AIURL   string `yaml:"ai_url,omitempty" validate:"omitempty,url"`
	// APIKey is sent as a bearer credential when no session token is usable
	APIKey string `yaml:"api_key"`
	// SessionToken is the session token issued by the auth service
	SessionToken string `yaml:"session_token"`
}

var config *Config

var validate = validator.New(validator.WithRequiredStructEnabled())

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/fine on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "fine", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from file and applies environment overrides. A missing
// file is tolerated when FINE_URL is set.
func LoadConfig(file string) error {
	var c Config
	yamlStr, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(yamlStr, &c); err != nil {
			return fmt.Errorf("unable to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv(EnvServerURL) != "":
	default:
		return fmt.Errorf("unable to read config file: %w", err)
	}

	c.applyEnv()
	c.ServerURL = MorphServer(c.ServerURL)
	if err := c.ValidateConfig(); err != nil {
		return err
	}

	config = &c
	return nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvSessionToken); v != "" {
		cfg.SessionToken = v
	}
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to file
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0o700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig validates the configuration
func (cfg *Config) ValidateConfig() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds https:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}
	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.ServerURL)
}

// GetAPIKey returns the API key from the configuration
func (cfg *Config) GetAPIKey() string {
	return cfg.APIKey
}

// GetToken returns the session token from the configuration
func (cfg *Config) GetToken() string {
	return cfg.SessionToken
}

// GetTokenExpiry returns the session token's expiry, read from its exp claim
func (cfg *Config) GetTokenExpiry() time.Time {
	return httpclient.TokenExpiry(cfg.SessionToken)
}

var _ httpclient.Configurator = (*Config)(nil)

func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `Manage CLI configuration settings like the backend URL and credentials.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	configCmd.AddCommand(newConfigCreateCmd(), newConfigShowCmd(), newConfigClearCmd())
	return configCmd
}

func newConfigCreateCmd() *cobra.Command {
	cfg := &Config{Version: "0.1.0"}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the configuration file",
		Long: `Create the configuration file, replacing any existing one.

Examples:
  fine config create --server https://app.example.com --api-key sk_live_123
  fine config create --server localhost:8080 --rest-url http://localhost:8787/db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ServerURL = MorphServer(cfg.ServerURL)
			if err := cfg.ValidateConfig(); err != nil {
				return err
			}
			if err := cfg.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(out, map[string]string{
					"server":      cfg.ServerURL,
					"config_file": configFile,
				})
			} else {
				okLabel.Fprintf(out, "Server configured: %s\n", cfg.ServerURL)
				fmt.Fprintf(out, "Config file: %s\n", configFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ServerURL, "server", "", "Base URL of the fine backend (e.g., https://app.example.com)")
	cmd.Flags().StringVar(&cfg.RestURL, "rest-url", "", "Override the table API URL")
	cmd.Flags().StringVar(&cfg.AIURL, "ai-url", "", "Override the assistant API URL")
	cmd.Flags().StringVar(&cfg.APIKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&cfg.SessionToken, "token", "", "Session token")
	cmd.MarkFlagRequired("server")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadConfig(configFile); err != nil {
				return err
			}
			cfg := GetConfig()
			expiry := ""
			if exp := cfg.GetTokenExpiry(); !exp.IsZero() {
				expiry = exp.Format(time.RFC3339)
			}
			view := map[string]string{
				"server":        cfg.ServerURL,
				"rest_url":      cfg.RestURL,
				"ai_url":        cfg.AIURL,
				"api_key":       mask(cfg.APIKey),
				"session_token": mask(cfg.SessionToken),
				"token_expiry":  expiry,
				"config_file":   configFile,
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(out, view)
				return nil
			}
			fmt.Fprintf(out, "Server: %s\n", view["server"])
			if cfg.RestURL != "" {
				fmt.Fprintf(out, "Rest URL: %s\n", cfg.RestURL)
			}
			if cfg.AIURL != "" {
				fmt.Fprintf(out, "AI URL: %s\n", cfg.AIURL)
			}
			fmt.Fprintf(out, "API key: %s\n", view["api_key"])
			fmt.Fprintf(out, "Session token: %s\n", view["session_token"])
			if expiry != "" {
				fmt.Fprintf(out, "Token expiry: %s\n", expiry)
			}
			return nil
		},
	}
}

func newConfigClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored session token",
		Long: `Clear the stored session token. The server URL and API key are kept, so later
requests authenticate with the API key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yamlStr, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("unable to read config file: %w", err)
			}
			var cfg Config
			if err := yaml.Unmarshal(yamlStr, &cfg); err != nil {
				return fmt.Errorf("unable to parse config file: %w", err)
			}
			cfg.SessionToken = ""
			if err := cfg.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to save config: %v", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				printJSON(out, map[string]int{"result": 1})
			} else {
				fmt.Fprintln(out, "Session token cleared")
			}
			return nil
		},
	}
}
