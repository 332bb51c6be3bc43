package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "evolvisense",
	Short: "Clip-based emotion analysis pipeline",
	Long: `evolvisense submits recorded clips to the EvolviSense emotion-inference
service, keeps a rolling session history of clip scores, and produces
summary statistics, chart-ready timelines and session reports.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (default: config/$CONFIG_ENV/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
}

func setLogLevel(fromConfig string) {
	lvl := logLevel
	if lvl == "" {
		lvl = fromConfig
	}
	if lvl == "" {
		lvl = "info"
	}
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		log.WithField("level", lvl).Warn("unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
}
