package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rrcal/internal/config"
	appLog "rrcal/internal/log"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "rrcal",
	Short: "Expand iCalendar recurrence rules into a merged agenda",
	Long: `rrcal reads iCalendar feeds (local files or HTTP URLs), expands their
RRULE/EXDATE recurrences and prints or serves one time-ordered stream of
occurrences.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			appLog.SetLevel(appLog.ParseLevel(logLevel))
		}
	},
}

func init() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "config file (env RRCAL_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

func defaultConfigPath() string {
	if p := os.Getenv("RRCAL_CONFIG"); p != "" {
		return p
	}
	return "./rrcal.yaml"
}

// loadConfig reads cfgFile and applies its log level unless --log-level
// was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", cfgFile)
		return nil, err
	}
	if logLevel == "" {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
