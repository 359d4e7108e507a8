// Package cmd provides the root command and CLI setup for covpatch.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/config"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/controller"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var workflow domain.Workflow
var settings *config.Config

var configFileFlag string

// newWorkflow wires the production adapters. Tests replace it.
var newWorkflow = func(cmd *cobra.Command, cfg *config.Config) domain.Workflow {
	return domain.NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewReportStore(),
		adapter.NewManifestStore(),
		controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()) && !cfg.Log.JSON),
		domain.Settings{
			BaseID:      cfg.BaseID,
			Concurrency: domain.ConcurrencyMode(cfg.Concurrency),
			Workers:     cfg.Workers,
			Cache:       adapter.NewDiskAnalysisCache(cfg.CacheDir),
			Stdout:      cmd.OutOrStdout(),
		},
	)
}

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"include":     "include",
	"exclude":     "exclude",
	"base-id":     "base_id",
	"concurrency": "concurrency",
	"workers":     "workers",
	"out":         "out_dir",
	"reports":     "reports_dir",
	"cache":       "cache_dir",
	"limit":       "stats.limit",
	"min-hits":    "stats.min_hits",
	"json":        "log.json",
	"verbose":     "log.verbose",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covpatch",
		Short: "Luau code coverage for Roblox projects",
		Long: `covpatch instruments Luau modules with statement, function and branch
counters and turns the counts into Istanbul coverage reports.

Sources on disk are never modified. Coverage is collected either by running
an entry script in the embedded host (covpatch run) or by instrumenting a
copy of the project for an external runtime (covpatch instrument) and
merging the counter dump it prints afterwards (covpatch report).

Settings come from .covpatch.yaml, COVPATCH_* environment variables and flags,
in increasing order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFileFlag, "config", "c", "", "config file (default .covpatch.yaml)")
	flags.StringSlice("include", nil, "directories to instrument, relative to the root (can be repeated)")
	flags.StringSlice("exclude", nil, "directories to skip; exclusion wins over inclusion (can be repeated)")
	flags.Int("base-id", 0, "first probe id of every kind")
	flags.String("concurrency", config.ConcurrencyCooperative, "counter regime: cooperative or parallel")
	flags.IntP("workers", "w", 4, "number of modules analysed at once")
	flags.StringP("reports", "o", "coverage", "directory the reports are written to")
	flags.Bool("json", false, "emit logs as JSON")
	flags.BoolP("verbose", "v", false, "log debug details to stderr")

	return cmd
}

// setup loads the configuration of the command being run and wires the
// workflow it drives.
func setup(cmd *cobra.Command, _ []string) error {
	v := config.New()
	bindFlags(v, cmd)

	cfg, err := config.Load(v, configFileFlag)
	if err != nil {
		return err
	}

	level := "warn"
	if cfg.Log.Verbose {
		level = "debug"
	}

	if err := logger.Initialize(logger.Options{JSON: cfg.Log.JSON, Level: level, Output: cmd.ErrOrStderr()}); err != nil {
		return err
	}

	logger.Named("cli").Debugw("config loaded",
		logger.FieldPath, v.ConfigFileUsed(),
		logger.FieldMode, cfg.Concurrency,
	)

	settings = cfg
	workflow = newWorkflow(cmd, cfg)

	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func scopeArgs(args []string) domain.ScopeArgs {
	scope := domain.ScopeArgs{
		Include: settings.IncludeScopes(),
		Exclude: settings.ExcludeScopes(),
	}

	if len(args) > 0 {
		scope.Root = m.Path(strings.TrimSpace(args[0]))
	}

	return scope
}
