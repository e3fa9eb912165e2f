package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wavecrit/wavecrit/internal/assign"
	"github.com/wavecrit/wavecrit/internal/matching"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/notify"
	"github.com/wavecrit/wavecrit/internal/output"
	"github.com/wavecrit/wavecrit/internal/store"
	"github.com/wavecrit/wavecrit/internal/sweep"
	"github.com/wavecrit/wavecrit/internal/tier"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "wavecrit",
	Short: "Wavecrit - reviewer assignment and queue engine",
	Long: `wavecrit runs the reviewer assignment engine for the track review
marketplace. It matches submitted tracks to eligible reviewers, manages
review leases and expiry, and keeps reviewer tiers current.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/wavecrit/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "wavecrit")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WAVECRIT")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "wavecrit")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "wavecrit.db"))

	viper.SetDefault("engine.lease_hours", 48)
	viper.SetDefault("engine.min_account_age_hours", 24)
	viper.SetDefault("engine.sweep_interval_minutes", 5)
	viper.SetDefault("engine.sweep_concurrency", 5)
	viper.SetDefault("engine.expiry_batch_size", 100)
	viper.SetDefault("engine.allowlist", []string{})

	viper.SetDefault("packages.standard.top_tier_quota", 1)
	viper.SetDefault("packages.standard.priority", 10)
	viper.SetDefault("packages.priority.top_tier_quota", 2)
	viper.SetDefault("packages.priority.priority", 20)
	viper.SetDefault("packages.deep.top_tier_quota", 3)
	viper.SetDefault("packages.deep.priority", 30)
	viper.SetDefault("packages.peer.top_tier_quota", 0)
	viper.SetDefault("packages.peer.priority", 5)

	viper.SetDefault("tier.fast_track_commendations", 10)
	viper.SetDefault("tier.min_reviews", 25)
	viper.SetDefault("tier.min_rating", 4.5)
	viper.SetDefault("tier.rates.standard", 3.00)
	viper.SetDefault("tier.rates.pro", 7.50)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Initialize store lazily — only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// rootRun handles `wavecrit` with no subcommand: show the track dashboard.
func rootRun(cmd *cobra.Command) error {
	if _, err := getStore(); err != nil {
		return cmd.Help()
	}
	return trackListRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// assignConfig builds the assignment engine config from viper values.
func assignConfig() assign.Config {
	packages := make(map[models.Package]assign.PackagePolicy)
	for _, p := range []models.Package{
		models.PackageStandard,
		models.PackagePriority,
		models.PackageDeep,
		models.PackagePeer,
	} {
		packages[p] = assign.PackagePolicy{
			TopTierQuota: viper.GetInt(fmt.Sprintf("packages.%s.top_tier_quota", p)),
			Priority:     viper.GetInt(fmt.Sprintf("packages.%s.priority", p)),
		}
	}

	return assign.Config{
		LeaseDuration: time.Duration(viper.GetInt("engine.lease_hours")) * time.Hour,
		Packages:      packages,
		Matching: matching.Config{
			MinAccountAge: time.Duration(viper.GetInt("engine.min_account_age_hours")) * time.Hour,
			AllowList:     viper.GetStringSlice("engine.allowlist"),
		},
	}
}

func newAssigner(s store.Store) *assign.Assigner {
	return assign.New(s, assignConfig(), nil)
}

func newSweeper(s store.Store, a *assign.Assigner) *sweep.Sweeper {
	return sweep.New(s, a, sweep.Config{
		BatchSize:   viper.GetInt("engine.expiry_batch_size"),
		Concurrency: viper.GetInt("engine.sweep_concurrency"),
	}, nil)
}

func newRecalculator(s store.Store) *tier.Recalculator {
	return tier.New(s, &notify.LogNotifier{}, tier.Config{
		FastTrackCommendations: viper.GetInt("tier.fast_track_commendations"),
		MinReviews:             viper.GetInt("tier.min_reviews"),
		MinRating:              viper.GetFloat64("tier.min_rating"),
		Rates: map[models.ReviewerTier]float64{
			models.TierStandard: viper.GetFloat64("tier.rates.standard"),
			models.TierPro:      viper.GetFloat64("tier.rates.pro"),
		},
	}, nil)
}
