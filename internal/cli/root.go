package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/linkmend/linkmend/internal/branding"
	"github.com/linkmend/linkmend/internal/config"
	"github.com/linkmend/linkmend/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	configPath string
	vaultDir   string
	verbose    bool
	logFormat  string
)

// Loaded by the root PersistentPreRunE for every command but version.
var (
	cfg      *config.Config
	settings config.Settings
	logger   = logging.Nop()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/"+branding.HomeDir()+"/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", "Vault root directory (overrides the vault setting)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` finds [[wikilinks]] in a Markdown vault that point to notes that do not
exist yet, suggests canonical spellings (capitalized, singular) for them, and
drafts the missing notes, optionally with a text-generation service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(logging.Options{
			Verbose: verbose,
			Format:  logFormat,
			Output:  cmd.ErrOrStderr(),
		})
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig()
	},
}

func loadConfig() error {
	config.LoadEnv()
	path := configPath
	if path == "" {
		path = config.FilePath()
	}
	c, err := config.Open(path)
	if err != nil {
		return err
	}
	cfg = c
	// config set must be able to repair an invalid file.
	s, err := c.Settings()
	if err != nil {
		logger.Warn("settings are invalid", "path", path, "error", err)
	}
	settings = s
	logger.Debug("loaded settings", "path", path, slog.Bool("generation", s.UseExternalGeneration))
	return nil
}

// requireSettings returns the settings error for commands that need them.
func requireSettings() error {
	if _, err := cfg.Settings(); err != nil {
		return fmt.Errorf("%w (fix with '%s config set')", err, branding.CLIName())
	}
	return nil
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
