// Command sshmenuc-sync keeps the sshmenuc connection book in sync with an
// encrypted copy in a private git repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/config"
	"github.com/disoardi/sshmenuc/internal/logging"
	"github.com/disoardi/sshmenuc/internal/ui"
)

var (
	v        = config.New()
	settings config.Settings
	logger   = zap.NewNop()
	flushLog = func() {}

	contextName string
	verbose     bool
	noColor     bool
	accessible  bool
)

var rootCmd = &cobra.Command{
	Use:   "sshmenuc-sync",
	Short: "Encrypted git sync for the sshmenuc connection book",
	Long: `Synchronize the sshmenuc connection book across machines.

The config is encrypted with AES-256-GCM under a passphrase-derived key and
stored in a private git repository. Nothing but ciphertext ever leaves the
machine. Settings live in ~/.config/sshmenuc (see --config-dir).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(v)
		if err != nil {
			return err
		}

		ui.Init(os.Stdout)
		if noColor {
			ui.DisableColor()
		}

		logger, flushLog, err = logging.New(logging.Options{
			File:       settings.LogFile,
			Level:      settings.LogLevel,
			MaxSizeMB:  settings.LogMaxSizeMB,
			MaxBackups: settings.LogMaxBackups,
			MaxAgeDays: settings.LogMaxAgeDays,
			Verbose:    verbose,
		})
		if err != nil {
			return err
		}
		logger.Debug("settings loaded", zap.String("config_dir", settings.ConfigDir))
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", "", "settings directory (default ~/.config/sshmenuc)")
	flags.String("config-file", "", "plaintext config in single-file mode (default <config-dir>/config.json)")
	flags.StringVarP(&contextName, "context", "c", "", "context to operate on (default: the active one)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&accessible, "accessible", false, "use plain prompts suitable for screen readers")

	_ = v.BindPFlag(config.KeyConfigDir, flags.Lookup("config-dir"))
	_ = v.BindPFlag(config.KeyConfigFile, flags.Lookup("config-file"))
}

// exitf reports a fatal error and exits. Logs are flushed first because
// os.Exit skips deferred calls.
func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), fmt.Sprintf(format, args...))
	flushLog()
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}
