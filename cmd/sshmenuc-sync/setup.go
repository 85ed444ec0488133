package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/disoardi/sshmenuc/internal/passphrase"
	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	GroupID: "setup",
	Short:   "Configure remote sync",
	Long: `Configure synchronization with a private git repository.

Without --remote-url an interactive form asks for the settings. With
--context the settings are stored as a named context in contexts.json,
otherwise in sync.json. --push (or answering yes in the form) encrypts the
current config and publishes it right away; the passphrase is asked twice.`,
	Run: func(cmd *cobra.Command, args []string) {
		p, push, err := profileFromFlags(cmd.Flags(), contextName)
		if err != nil {
			exitf("%v", err)
		}
		if p.RemoteURL == "" {
			if !stdinIsTerminal() {
				exitf("--remote-url is required when stdin is not a terminal")
			}
			if err := runSetupForm(&p, &push); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Setup cancelled.")
					return
				}
				exitf("%v", err)
			}
		}

		reg := profile.Registry{Path: settings.ContextsFile, BaseDir: settings.ContextsDir}
		var where string
		switch {
		case contextName != "":
			if err := reg.Add(contextName, p); err != nil {
				exitf("%v", err)
			}
			if err := reg.EnsureDir(contextName); err != nil {
				exitf("%v", err)
			}
			where = settings.ContextsFile
		case reg.HasContexts():
			exitf("contexts are configured; pass --context NAME to choose which one to set up")
		default:
			if err := (profile.SingleFile{Path: settings.SyncFile}).Save(p); err != nil {
				exitf("%v", err)
			}
			where = settings.SyncFile
		}
		fmt.Printf("%s Sync configured in %s\n", ui.RenderPass("✓"), where)

		if !push {
			fmt.Printf("   Run %s to publish your config.\n", ui.RenderAccent("sshmenuc-sync push"))
			return
		}
		publishFirst()
	},
}

// publishFirst asks for a new passphrase twice and pushes the current
// config.
func publishFirst() {
	s, err := openSession(nil)
	if err != nil {
		exitf("%v", err)
	}
	defer s.Close()

	if !s.cache.Has() {
		pass, err := passphrase.Confirm(newPrompter())
		if err != nil {
			if errors.Is(err, passphrase.ErrMismatch) {
				fmt.Fprintf(os.Stderr, "%s Passphrases do not match. Settings were saved; run \"sshmenuc-sync push\" to retry.\n", ui.RenderWarn("⚠"))
				return
			}
			exitf("%v", err)
		}
		s.cache.Set(pass)
	}

	fmt.Println("Encrypting and pushing...")
	st, err := s.engine.Publish(rootCmd.Context())
	printOutcome(s, st, err)
	if err != nil {
		flushLog()
		os.Exit(1)
	}
}

func runSetupForm(p *profile.Profile, push *bool) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Remote repository URL").
				Description("For example git@github.com:you/sshmenuc-config.git").
				Value(&p.RemoteURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a remote URL is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Branch").
				Placeholder(profile.DefaultBranch).
				Value(&p.Branch),
			huh.NewInput().
				Title("Local mirror path").
				Description("Leave empty for the default location").
				Value(&p.SyncRepoPath),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Pull automatically at startup?").Value(&p.AutoPull),
			huh.NewConfirm().Title("Push automatically after each save?").Value(&p.AutoPush),
			huh.NewConfirm().Title("Encrypt and push the current config now?").Value(push),
		),
	).WithAccessible(accessible)

	if err := form.Run(); err != nil {
		return err
	}
	p.RemoteURL = strings.TrimSpace(p.RemoteURL)
	if strings.TrimSpace(p.Branch) == "" {
		p.Branch = profile.DefaultBranch
	}
	return nil
}

// addProfileFlags registers the settings flags shared by setup and
// "context add".
func addProfileFlags(fs *pflag.FlagSet) {
	fs.String("remote-url", "", "git URL of the private sync repository")
	fs.String("branch", profile.DefaultBranch, "branch holding the encrypted config")
	fs.String("remote-file", profile.DefaultRemoteFile, "path of the encrypted file inside the repository")
	fs.String("mirror", "", "local working copy of the repository (default: next to the settings)")
	fs.Bool("no-auto-pull", false, "do not pull at startup")
	fs.Bool("no-auto-push", false, "do not push after each save")
	fs.Bool("push", false, "publish the current config right away")
}

func profileFromFlags(fs *pflag.FlagSet, name string) (profile.Profile, bool, error) {
	if name == "" {
		name = profile.DefaultName
	} else if err := profile.ValidateName(name); err != nil {
		return profile.Profile{}, false, err
	}
	url, _ := fs.GetString("remote-url")
	p := profile.New(name, strings.TrimSpace(url))
	p.Branch, _ = fs.GetString("branch")
	p.RemoteFile, _ = fs.GetString("remote-file")
	p.SyncRepoPath, _ = fs.GetString("mirror")
	noPull, _ := fs.GetBool("no-auto-pull")
	noPush, _ := fs.GetBool("no-auto-push")
	p.AutoPull, p.AutoPush = !noPull, !noPush
	push, _ := fs.GetBool("push")
	return p, push, nil
}

func init() {
	addProfileFlags(setupCmd.Flags())
	rootCmd.AddCommand(setupCmd)
}
