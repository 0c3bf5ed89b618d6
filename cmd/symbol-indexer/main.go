// Command symbol-indexer indexes Java and Python sources into a SQLite
// symbol database and serves it over MCP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeusData/symbol-indexer/internal/config"
	"github.com/DeusData/symbol-indexer/internal/discover"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/pipeline"
	"github.com/DeusData/symbol-indexer/internal/store"
)

var version = "dev"

var (
	configPath string
	dbFlag     string
	buildFlag  string
	levelFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "symbol-indexer",
	Short:         "Index Java and Python symbols into a queryable database",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "symbol-indexer", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetVersionTemplate("symbol-indexer {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (default ~/.cache/symbol-indexer/index.db)")
	rootCmd.PersistentFlags().StringVarP(&buildFlag, "build", "b", "", "Build id")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, environment and persistent flags and
// installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbFlag != "" {
		cfg.Database = dbFlag
	}
	if buildFlag != "" {
		cfg.Build = buildFlag
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Database
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	s, err := store.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	slog.Debug("store.open", "path", path)
	return s, nil
}

func discoverOptions(cfg *config.Config) *discover.Options {
	opts := &discover.Options{Ignore: cfg.Ignore}
	for _, l := range cfg.Languages {
		opts.Languages = append(opts.Languages, lang.Language(l))
	}
	return opts
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		BuildID:     cfg.Build,
		CreateBuild: cfg.CreateBuild,
		Workers:     cfg.Workers,
		Incremental: cfg.Incremental,
		Discover:    discoverOptions(cfg),
	}
}
