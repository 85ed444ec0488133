package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/disoardi/sshmenuc/internal/conflict"
	"github.com/disoardi/sshmenuc/internal/document"
	syncer "github.com/disoardi/sshmenuc/internal/sync"
	"github.com/disoardi/sshmenuc/internal/ui"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "sync",
	Short:   "Pull the remote config (what sshmenuc does at startup)",
	Long: `Fetch the encrypted config from the remote and update the local copy.

The local config is overwritten only when it has not changed since the last
sync. When both sides changed you are shown a diff and asked which side to
keep; --prefer answers that question up front.`,
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

		st, err := s.engine.StartupPull(cmd.Context())
		printOutcome(s, st, err)
		if err != nil {
			flushLog()
			os.Exit(1)
		}
	},
}

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Encrypt the local config and push it",
	Long: `Encrypt the local config, refresh the local backup and push it to the
remote. The push is rejected if the remote changed since the last pull; run
"pull" first in that case.`,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openSession(nil)
		if err != nil {
			exitf("%v", err)
		}
		defer s.Close()

		st, err := s.engine.Publish(cmd.Context())
		printOutcome(s, st, err)
		if err != nil {
			flushLog()
			os.Exit(1)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show sync settings and the outcome of the last sync",
	Long: `Show the sync settings of the selected profile and what happened at the
last sync. Only local files are read unless --check is given, which runs a
pull first.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		check, _ := cmd.Flags().GetBool("check")

		// --check must not block on a prompt; a conflict is left for "pull".
		s, err := openSession(conflict.Fixed(conflict.Abort))
		if err != nil {
			exitf("%v", err)
		}
		defer s.Close()

		if check {
			if _, err := s.engine.StartupPull(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderWarn("Warning:"), err)
			}
		}
		r := s.engine.Status()

		switch format {
		case "yaml":
			out, err := yaml.Marshal(r)
			if err != nil {
				exitf("encoding status: %v", err)
			}
			fmt.Print(string(out))
		case "json":
			out, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				exitf("encoding status: %v", err)
			}
			fmt.Println(string(out))
		case "", "text":
			printStatus(s, r, check, toolVersion(cmd.Context(), s.remote))
		default:
			exitf("unknown format %q (want text, yaml or json)", format)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "sync",
	Short:   "Decrypt the local backup to a file or stdout",
	Long: `Decrypt the local encrypted backup and write the plaintext config.

This is the only way plaintext leaves sshmenuc's own files. Use "-o -" (the
default) for stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		s, err := openSession(nil)
		if err != nil {
			exitf("%v", err)
		}
		defer s.Close()

		if output == "-" {
			if err := s.engine.Export(cmd.Context(), os.Stdout); err != nil {
				exitf("%v", err)
			}
			return
		}
		var buf bytes.Buffer
		if err := s.engine.Export(cmd.Context(), &buf); err != nil {
			exitf("%v", err)
		}
		if err := document.WriteFile(output, buf.Bytes()); err != nil {
			exitf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "%s Plaintext config exported to %s\n", ui.RenderWarn("⚠"), output)
	},
}

func printOutcome(s *session, st syncer.State, err error) {
	name := s.sel.Profile.Name
	switch st {
	case syncer.SyncOK:
		fmt.Printf("%s %s in sync\n", ui.RenderPass("✓"), name)
	case syncer.SyncOffline:
		fmt.Printf("%s %s offline, local encrypted backup is current\n", ui.RenderWarn("⚠"), name)
	case syncer.LocalOnly:
		fmt.Printf("%s %s offline and no local backup exists\n", ui.RenderFail("✗"), name)
	case syncer.NoSync:
		fmt.Printf("%s %s has no remote configured (run \"sshmenuc-sync setup\")\n", ui.RenderMuted("-"), name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderWarn("Warning:"), err)
		switch {
		case errors.Is(err, syncer.ErrBusy):
			fmt.Fprintln(os.Stderr, "   Another sshmenuc process is syncing this profile; try again shortly.")
		case vcs.IsUserActionRequired(err):
			fmt.Fprintln(os.Stderr, "   The remote changed since the last pull. Run \"sshmenuc-sync pull\" first.")
		}
	}
}

// versioner is implemented by backends that can report their tool version.
type versioner interface {
	Version(ctx context.Context) (string, error)
}

func toolVersion(ctx context.Context, remote vcs.Remote) string {
	v, ok := remote.(versioner)
	if !ok {
		return ui.RenderMuted("unknown")
	}
	ver, err := v.Version(ctx)
	if err != nil {
		return ui.RenderFail("git not found")
	}
	return "git " + ver
}

func printStatus(s *session, r syncer.Report, checked bool, tool string) {
	mode := "single file"
	if s.sel.Contexts {
		mode = "context"
	}
	state := ui.RenderMuted("not checked (use --check)")
	if checked {
		state = r.State.String()
		if r.Label != "" {
			state = ui.RenderStateLabel(r.Label)
		}
	}
	last := ui.RenderMuted("never")
	if !r.LastSync.IsZero() {
		last = r.LastSync.Local().Format(time.DateTime)
		if r.LastSyncStatus != "" {
			last += " (" + r.LastSyncStatus + ")"
		}
	}
	remote := r.RemoteURL
	if remote == "" {
		remote = ui.RenderMuted("none")
	}

	fmt.Printf("\n%s %s\n\n", ui.RenderAccent("Profile"), r.Profile)
	fmt.Print(ui.KeyValue([][2]string{
		{"Mode", mode},
		{"State", state},
		{"Remote", remote},
		{"Branch", r.Branch},
		{"Remote file", r.RemoteFile},
		{"Config", s.sel.ConfigFile},
		{"Transport", tool},
		{"Auto pull/push", fmt.Sprintf("%t / %t", r.AutoPull, r.AutoPush)},
		{"Last sync", last},
		{"Local changes", yesNo(r.LocalChanged)},
		{"Encrypted backup", yesNo(r.BackupExists)},
	}))
	fmt.Println()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	pullCmd.Flags().String("prefer", "", "resolve conflicts without asking: local, remote or abort")
	statusCmd.Flags().String("format", "text", "output format: text, yaml or json")
	statusCmd.Flags().Bool("check", false, "pull before reporting")
	exportCmd.Flags().StringP("output", "o", "-", "destination file, or - for stdout")

	rootCmd.AddCommand(pullCmd, pushCmd, statusCmd, exportCmd)
}
