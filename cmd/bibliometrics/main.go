// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibliometrics CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibliometrics/internal/fetch"
	"github.com/pdiddy/bibliometrics/internal/logging"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/provider"
	"github.com/pdiddy/bibliometrics/internal/secrets"
	"github.com/pdiddy/bibliometrics/internal/stats"
	"github.com/pdiddy/bibliometrics/internal/timeline"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration, loaded before every command.
	cfg types.Config

	logger = zerolog.Nop()
)

// rootCmd is the base command for the bibliometrics CLI.
var rootCmd = &cobra.Command{
	Use:   "bibliometrics",
	Short: "Citation statistics for authors and papers",
	Long: `bibliometrics queries a bibliographic search service (INSPIRE, OpenAlex or
Semantic Scholar) for an author's papers and the records citing them, and
derives citation curves, the mean citation rate and the h-index.

Long author runs print progress as they go and stop cleanly on Ctrl-C,
keeping the papers processed so far.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.New(cfg.Log)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		secrets.Apply(s, &cfg.Fetch)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./bibliometrics.yaml or ~/.config/bibliometrics/bibliometrics.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	pf.String("provider", types.DefaultProvider, "bibliographic service: "+strings.Join(provider.Names, ", "))
	pf.String("base-url", "", "override the provider endpoint")
	pf.Int("page-size", types.DefaultPageSize, "records requested per page")
	pf.Duration("request-delay", 0, "minimum delay between page requests")
	pf.Int("retries-on-429", 0, "retries on HTTP 429 responses")
	pf.String("store", types.DefaultStorePath, "SQLite database for saved runs")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")

	for key, flag := range map[string]string{
		"fetch.provider":       "provider",
		"fetch.base_url":       "base-url",
		"fetch.page_size":      "page-size",
		"fetch.request_delay":  "request-delay",
		"fetch.retries_on_429": "retries-on-429",
		"store.path":           "store",
		"log.level":            "log-level",
		"log.format":           "log-format",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibliometrics")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibliometrics"))
		}
	}

	viper.SetEnvPrefix("BIBLIOMETRICS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, the environment and flags.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	defaults := map[string]any{
		"fetch.provider":       c.Fetch.Provider,
		"fetch.page_size":      c.Fetch.PageSize,
		"fetch.timeout":        c.Fetch.Timeout,
		"fetch.user_agent":     c.Fetch.UserAgent,
		"fetch.request_delay":  c.Fetch.RequestDelay,
		"fetch.retries_on_429": c.Fetch.RetriesOn429,
		"fetch.base_url":       "",
		"fetch.api_key":        "",
		"fetch.email":          "",
		"stats.throttle_after": c.Stats.ThrottleAfter,
		"stats.throttle_delay": c.Stats.ThrottleDelay,
		"store.path":           c.Store.Path,
		"log.level":            c.Log.Level,
		"log.format":           c.Log.Format,
		"log.output":           c.Log.Output,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// engine wires a provider, fetcher, timeline builder and aggregator from cfg.
func engine(m *metrics.Metrics) (*stats.Aggregator, provider.Provider, error) {
	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	p, err := provider.New(cfg.Fetch, client)
	if err != nil {
		return nil, nil, err
	}
	log := logger.With().Str("provider", p.Name()).Logger()

	f := fetch.New(p, cfg.Fetch, fetch.WithMetrics(m), fetch.WithLogger(log))
	b := timeline.New(f, timeline.WithLogger(log))
	return stats.New(f, b, cfg.Stats, stats.WithLogger(log), stats.WithMetrics(m)), p, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
