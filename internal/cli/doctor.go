package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkmend/linkmend/internal/config"
	"github.com/linkmend/linkmend/internal/generate"
	"github.com/linkmend/linkmend/internal/vault"
)

var (
	checkConfig     bool
	checkVault      bool
	checkGeneration bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkConfig, "check-config", false, "Validate the settings")
	doctorCmd.Flags().BoolVar(&checkVault, "check-vault", false, "Verify the vault can be listed")
	doctorCmd.Flags().BoolVar(&checkGeneration, "check-generation", false, "Verify the generation service is reachable")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings, vault and generation service",
	Long:  `Run diagnostic checks on the configuration and the services it points to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := !checkConfig && !checkVault && !checkGeneration
		w := cmd.OutOrStdout()
		ctx := cmd.Context()

		failed := 0
		if all || checkConfig {
			failed += runConfigCheck(w)
		}
		if all || checkVault {
			failed += runVaultCheck(ctx, w)
		}
		if all || checkGeneration {
			failed += runGenerationCheck(ctx, w)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func runConfigCheck(w io.Writer) int {
	fmt.Fprintln(w, "Config check:")
	if _, err := os.Stat(cfg.Path()); err != nil {
		fmt.Fprintf(w, "  [INFO] %s not found, using defaults\n", cfg.Path())
	} else {
		fmt.Fprintf(w, "  [ OK ] %s\n", cfg.Path())
	}
	for _, k := range cfg.Unknown() {
		fmt.Fprintf(w, "  [WARN] unknown key %q is ignored\n", k)
	}
	if _, err := cfg.Settings(); err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return 1
	}
	fmt.Fprintf(w, "  [ OK ] settings valid (format %s)\n", config.SettingsVersion)
	return 0
}

func runVaultCheck(ctx context.Context, w io.Writer) int {
	fmt.Fprintln(w, "Vault check:")
	store, err := openStore()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return 1
	}
	docs, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] listing vault: %v\n", err)
		return 1
	}
	notes := 0
	for _, d := range docs {
		if vault.IsNote(d.Path) {
			notes++
		}
	}
	where := vaultRoot()
	if settings.VaultBackend == config.BackendS3 {
		where = "s3://" + settings.S3Bucket + "/" + settings.Vault
	}
	fmt.Fprintf(w, "  [ OK ] %s: %d notes\n", where, notes)
	return 0
}

func runGenerationCheck(ctx context.Context, w io.Writer) int {
	fmt.Fprintln(w, "Generation check:")
	if !settings.UseExternalGeneration {
		fmt.Fprintln(w, "  [INFO] generation disabled (useExternalGeneration=false)")
		return 0
	}
	switch settings.Provider {
	case config.ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			fmt.Fprintln(w, "  [FAIL] GEMINI_API_KEY is not set")
			return 1
		}
		fmt.Fprintf(w, "  [ OK ] gemini model %s, API key present\n", settings.Model)
		return 0
	default:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client := generate.NewHTTPClient(settings.ServiceURL, settings.GenerateOptions())
		if err := client.Ping(ctx); err != nil {
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", settings.ServiceURL, err)
			return 1
		}
		fmt.Fprintf(w, "  [ OK ] %s reachable (model %s)\n", settings.ServiceURL, settings.Model)
		return 0
	}
}
