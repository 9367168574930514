// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the methnet CLI: download a PubMed
// citation dataset and animate its citation network by method keyword.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	logger  = zerolog.Nop()
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "methnet",
	Short: "Visualize which analysis methods a research field's citation network uses",
	Long: `methnet searches PubMed, downloads the PubMed Central full text and
citation links of every hit, counts mentions of method keywords (for
example spm, afni, fsl) and draws the citation network on a circle, one
frame per publication year, assembled into an animated GIF.

Datasets are cached per --data-id and figures per --gif-id; pass a new id
to fetch or draw again.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
			Output: "stderr",
		})
		metrics = observability.NewMetrics()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./methnet.yaml or ~/.config/methnet/methnet.yaml)")
	pf.String("data-dir", "data", "directory for pubmed_data__<id>.csv files")
	pf.String("image-dir", "images", "directory for frames, PNG and GIF")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("on-error", "abort", "per-record fetch failure policy (abort, skip)")
	pf.Bool("resume", false, "keep a checkpoint so a failed download can continue")
	pf.String("email", "", "contact email sent to NCBI (default: .secrets/ncbi-email)")
	pf.String("api-key", "", "NCBI API key (default: .secrets/ncbi-api-key)")

	bindFlags(pf.Lookup, map[string]string{
		"data_dir":     "data-dir",
		"image_dir":    "image-dir",
		"log_level":    "log-level",
		"log_format":   "log-format",
		"metrics_file": "metrics-file",
		"on_error":     "on-error",
		"resume":       "resume",
		"ncbi.email":   "email",
		"ncbi.api_key": "api-key",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("methnet")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "methnet"))
		}
	}

	viper.SetEnvPrefix("METHNET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if path := viper.GetString("metrics_file"); path != "" && metrics != nil {
		if werr := metrics.WriteTextfile(path); werr != nil {
			logger.Warn().Err(werr).Str("path", path).Msg("writing metrics")
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
