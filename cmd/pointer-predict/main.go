// Command pointer-predict evaluates pointer prediction algorithms against
// recorded or synthetic traces and serves live prediction sessions over
// HTTP.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/config"
	"github.com/banshee-data/pointer.predict/internal/monitoring"
	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pointer-predict",
		Short: "Pointer position prediction engine",
		Long: `pointer-predict estimates where a touch or mouse pointer will be a few
milliseconds ahead, so that renderers can hide input latency.

It replays traces through every prediction model, stores and charts the
results, and serves per-pointer prediction sessions over HTTP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			monitoring.SetVerbose(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", getEnvBool("POINTER_PREDICT_VERBOSE", false), "Log engine selection switches and session lifecycle")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pointer-predict %s (%s) built %s\n", version.Version, version.GitSHA, version.BuildTime)
		},
	})
	rootCmd.AddCommand(
		newEvaluateCmd(),
		newGenerateCmd(),
		newServeCmd(),
		newReplayCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

// loadConfig reads a tuning file, or the built-in defaults when path is
// empty.
func loadConfig(path string) (*config.TuningConfig, predict.EngineConfig, error) {
	tuning := config.DefaultTuningConfig()
	if path != "" {
		loaded, err := config.LoadTuningConfig(path)
		if err != nil {
			return nil, predict.EngineConfig{}, err
		}
		tuning = loaded
		log.Printf("loaded tuning config from %s", path)
	}
	cfg, err := predict.EngineConfigFromTuning(tuning)
	if err != nil {
		return nil, predict.EngineConfig{}, err
	}
	return tuning, cfg, nil
}

// getEnvStr returns environment variable or default
func getEnvStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns environment variable as int or default
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool returns environment variable as bool or default
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultVal
}
