package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. QUICKCHAT_WORK_DIR.
const EnvPrefix = "QUICKCHAT"

// Config captures the options shared by every command.
type Config struct {
	WorkDir     string
	LogLevel    string
	LogDir      string
	DisplayName string
	ConfigFile  string
	DryRun      bool
}

var keys = []string{"work-dir", "log-level", "log-dir", "user", "dry-run"}

// RegisterFlags attaches the persistent flags to the root command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultWorkDir, err := defaultWorkDir()
	if err != nil {
		return err
	}

	flags := cmd.PersistentFlags()
	flags.String("work-dir", defaultWorkDir, "Directory holding the message files")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Also write logs to a timestamped file in this directory")
	flags.String("user", "", "Display name reported as the sender of sent messages")
	flags.String("config", "", "Optional YAML config file")
	flags.Bool("dry-run", false, "Run without writing message files")

	return nil
}

// LoadConfig resolves the options from flags, QUICKCHAT_* environment
// variables and the optional config file, in that order of precedence.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	configFile, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	workDir := strings.TrimSpace(v.GetString("work-dir"))
	if workDir == "" {
		workDir, err = defaultWorkDir()
		if err != nil {
			return Config{}, err
		}
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		WorkDir:     filepath.Clean(workDir),
		LogLevel:    logLevel,
		LogDir:      v.GetString("log-dir"),
		DisplayName: strings.TrimSpace(v.GetString("user")),
		ConfigFile:  configFile,
		DryRun:      v.GetBool("dry-run"),
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range keys {
		flag := flags.Lookup(key)
		if flag == nil {
			return fmt.Errorf("flag --%s is not registered", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("--work-dir is required")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultWorkDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quickchat", "messages"), nil
}
