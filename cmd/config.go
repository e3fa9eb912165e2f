package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wavecrit"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage wavecrit configuration.

Running bare 'wavecrit config' is the same as 'wavecrit config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# wavecrit configuration
# See: wavecrit config show (for effective values and sources)

# State/data directory (default: ~/.config/wavecrit)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/wavecrit/wavecrit.db)
# db_path: {{ .DBPath }}

# Assignment engine
engine:
  # Review lease duration in hours (default: 48)
  lease_hours: {{ .LeaseHours }}

  # Minimum reviewer account age in hours before eligibility (default: 24)
  min_account_age_hours: {{ .MinAccountAgeHours }}

  # Minutes between lease-expiry sweeps (default: 5)
  sweep_interval_minutes: {{ .SweepIntervalMinutes }}

  # Concurrent track reassignments per sweep (default: 5)
  sweep_concurrency: {{ .SweepConcurrency }}

  # Expired leases processed per batch (default: 100)
  expiry_batch_size: {{ .ExpiryBatchSize }}

  # Reviewer emails exempt from account-age and genre gates
  # allowlist: []

# Reviewer tiers
tier:
  # Commendations that fast-track a reviewer to pro (default: 10)
  fast_track_commendations: {{ .FastTrackCommendations }}

  # Completed reviews required for pro (default: 25)
  min_reviews: {{ .MinReviews }}

  # Average rating required for pro (default: 4.5)
  min_rating: {{ .MinRating }}
`

type configTemplateData struct {
	StateDir               string
	DBPath                 string
	LeaseHours             int
	MinAccountAgeHours     int
	SweepIntervalMinutes   int
	SweepConcurrency       int
	ExpiryBatchSize        int
	FastTrackCommendations int
	MinReviews             int
	MinRating              float64
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:               viper.GetString("state_dir"),
		DBPath:                 viper.GetString("db_path"),
		LeaseHours:             viper.GetInt("engine.lease_hours"),
		MinAccountAgeHours:     viper.GetInt("engine.min_account_age_hours"),
		SweepIntervalMinutes:   viper.GetInt("engine.sweep_interval_minutes"),
		SweepConcurrency:       viper.GetInt("engine.sweep_concurrency"),
		ExpiryBatchSize:        viper.GetInt("engine.expiry_batch_size"),
		FastTrackCommendations: viper.GetInt("tier.fast_track_commendations"),
		MinReviews:             viper.GetInt("tier.min_reviews"),
		MinRating:              viper.GetFloat64("tier.min_rating"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "WAVECRIT_STATE_DIR"},
	{Key: "db_path", EnvVar: "WAVECRIT_DB_PATH"},
	{Key: "engine.lease_hours", EnvVar: "WAVECRIT_ENGINE_LEASE_HOURS"},
	{Key: "engine.min_account_age_hours", EnvVar: "WAVECRIT_ENGINE_MIN_ACCOUNT_AGE_HOURS"},
	{Key: "engine.sweep_interval_minutes", EnvVar: "WAVECRIT_ENGINE_SWEEP_INTERVAL_MINUTES"},
	{Key: "engine.sweep_concurrency", EnvVar: "WAVECRIT_ENGINE_SWEEP_CONCURRENCY"},
	{Key: "engine.expiry_batch_size", EnvVar: "WAVECRIT_ENGINE_EXPIRY_BATCH_SIZE"},
	{Key: "tier.fast_track_commendations", EnvVar: "WAVECRIT_TIER_FAST_TRACK_COMMENDATIONS"},
	{Key: "tier.min_reviews", EnvVar: "WAVECRIT_TIER_MIN_REVIEWS"},
	{Key: "tier.min_rating", EnvVar: "WAVECRIT_TIER_MIN_RATING"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-32s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'wavecrit config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
