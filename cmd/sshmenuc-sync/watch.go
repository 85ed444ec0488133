package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/disoardi/sshmenuc/internal/crypto"
	"github.com/disoardi/sshmenuc/internal/document"
	syncer "github.com/disoardi/sshmenuc/internal/sync"
	"github.com/disoardi/sshmenuc/internal/ui"
	"github.com/disoardi/sshmenuc/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Push the config whenever it is saved",
	Long: `Pull once, then watch the config file and push after every save.

Run this next to an editor or any tool that rewrites the config. Saves are
debounced; see watch.debounce in settings.yaml. The passphrase is asked once
at startup (or read from SSHMENUC_PASSPHRASE). Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		prefer, _ := cmd.Flags().GetString("prefer")
		resolver, err := newResolver(prefer)
		if err != nil {
			exitf("%v", err)
		}
		s, err := openSession(resolver)
		if err != nil {
			exitf("%v", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		st, err := s.engine.StartupPull(ctx)
		printOutcome(s, st, err)
		if st == syncer.NoSync {
			exitf("nothing to watch: no remote configured")
		}
		if err := ensurePassphrase(s, st); err != nil {
			exitf("%v", err)
		}

		w, err := watch.New(s.sel.ConfigFile, settings.WatchDebounce, logger)
		if err != nil {
			exitf("%v", err)
		}
		defer w.Close()

		fmt.Printf("%s Watching %s\n", ui.RenderAccent("👀"), s.sel.ConfigFile)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := w.Run(ctx, func(ctx context.Context) { onSave(ctx, s) }); err != nil {
			exitf("%v", err)
		}
	},
}

// ensurePassphrase asks once before watching, since saves never prompt and
// an offline start returns before the pull would have asked. When a backup
// exists the answer is checked against it, so a typo cannot re-encrypt the
// backup under a different passphrase.
func ensurePassphrase(s *session, st syncer.State) error {
	if st == syncer.NoSync || !s.sel.Profile.Enabled() || s.cache.Has() {
		return nil
	}
	pass, err := s.cache.GetOrPrompt(syncer.PromptPassphrase)
	if err != nil {
		return err
	}
	enc, ok, err := document.Read(s.engine.BackupFile())
	if err != nil || !ok {
		return err
	}
	if _, err := crypto.Decrypt(enc, pass); err != nil {
		s.cache.Clear()
		return fmt.Errorf("check passphrase against %s: %w", s.engine.BackupFile(), err)
	}
	return nil
}

// onSave pushes unless the file still matches what was last synced, which
// is also the case right after the engine itself wrote it.
func onSave(ctx context.Context, s *session) {
	if document.Hash(s.sel.ConfigFile) == s.engine.Profile().LastConfigHash {
		logger.Debug("config unchanged since last sync")
		return
	}
	before := s.engine.State()
	st, err := s.engine.PostSavePush(ctx)
	stamp := ui.RenderMuted(time.Now().Format(time.TimeOnly))
	switch {
	case err != nil:
		fmt.Printf("%s %s %v\n", stamp, ui.RenderWarn("⚠"), err)
		logger.Warn("post-save push failed", zap.Error(err))
	case st == syncer.SyncOK && s.engine.Profile().LastConfigHash == document.Hash(s.sel.ConfigFile):
		fmt.Printf("%s %s pushed\n", stamp, ui.RenderPass("✓"))
	case s.engine.ConflictPending():
		fmt.Printf("%s %s backup updated; not pushing until the conflict is resolved (run \"pull\")\n", stamp, ui.RenderWarn("⚠"))
	default:
		fmt.Printf("%s %s backup updated (%s)\n", stamp, ui.RenderMuted("-"), st)
	}
	if st != before && st.Label() != "" {
		fmt.Printf("%s state %s\n", stamp, ui.RenderStateLabel(st.Label()))
	}
}

func init() {
	watchCmd.Flags().String("prefer", "", "resolve a startup conflict without asking: local, remote or abort")
	rootCmd.AddCommand(watchCmd)
}
