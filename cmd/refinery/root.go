package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/logging"
)

var (
	// Global flags
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	// Loaded once per invocation by setup
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "refinery",
	Short: "Profile, clean and audit tabular datasets",
	Long: `refinery detects the semantic type of every column of a CSV, Excel sheet or
warehouse table, applies the matching cleaning rules, and records an audit entry
for every change together with the issues that need a human decision.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal: setup refers to rootCmd,
	// which would otherwise be an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup()
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file whose keys fill unset environment variables (e.g. store_driver, postgres_db)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console (overrides LOG_FORMAT)")
}

// setup resolves configuration with the precedence flags > env > config
// file > defaults and builds the logger.
func setup() error {
	if cfgFile != "" {
		if err := applyConfigFile(cfgFile); err != nil {
			return err
		}
	}

	c, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") {
		v.Set("log_level", logLevel)
	}
	if f.Changed("log-format") {
		v.Set("log_format", logFormat)
	}
	c.LogLevel = v.GetString("log_level")
	c.LogFormat = v.GetString("log_format")

	l, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	cfg, logger = c, l
	return nil
}

// applyConfigFile copies every key of a config file into the environment
// unless the variable is already set. Nested keys join with an underscore.
func applyConfigFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		env := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if err := os.Setenv(env, configValue(v.Get(key))); err != nil {
			return fmt.Errorf("failed to apply %s: %w", key, err)
		}
	}
	return nil
}

func configValue(v interface{}) string {
	switch x := v.(type) {
	case []interface{}:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
