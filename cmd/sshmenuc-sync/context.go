package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/ui"
)

var contextCmd = &cobra.Command{
	Use:     "context",
	GroupID: "setup",
	Short:   "Manage named sync contexts",
	Long: `Manage named contexts, each with its own remote, config and backup.

Once contexts.json lists a context, every command works on the active
context unless --context picks another one.`,
}

func registry() profile.Registry {
	return profile.Registry{Path: settings.ContextsFile, BaseDir: settings.ContextsDir}
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contexts",
	Run: func(cmd *cobra.Command, args []string) {
		reg := registry()
		names, err := reg.List()
		if err != nil {
			exitf("%v", err)
		}
		if len(names) == 0 {
			fmt.Println("No contexts configured (single-file mode).")
			return
		}
		active, err := reg.Active()
		if err != nil {
			exitf("%v", err)
		}
		for _, name := range names {
			p, err := reg.Get(name)
			if err != nil {
				exitf("%v", err)
			}
			marker := "  "
			if name == active {
				marker = ui.RenderAccent("* ")
			}
			fmt.Printf("%s%-16s %s\n", marker, name, ui.RenderMuted(p.RemoteURL))
		}
	},
}

var contextUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Make a context the active one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := registry().SetActive(args[0]); err != nil {
			exitf("%v", err)
		}
		fmt.Printf("%s Active context: %s\n", ui.RenderPass("✓"), args[0])
	},
}

var contextAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add or replace a context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		p, push, err := profileFromFlags(cmd.Flags(), name)
		if err != nil {
			exitf("%v", err)
		}
		if p.RemoteURL == "" {
			exitf("--remote-url is required")
		}
		reg := registry()
		if err := reg.Add(name, p); err != nil {
			exitf("%v", err)
		}
		if err := reg.EnsureDir(name); err != nil {
			exitf("%v", err)
		}
		fmt.Printf("%s Context %s added\n", ui.RenderPass("✓"), name)
		fmt.Printf("   Config: %s\n", reg.ConfigFile(name))

		if push {
			contextName = name
			publishFirst()
		}
	},
}

var contextRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a context (its files are kept)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := registry()
		if err := reg.Remove(args[0]); err != nil {
			exitf("%v", err)
		}
		fmt.Printf("%s Context %s removed\n", ui.RenderPass("✓"), args[0])
		fmt.Fprintf(os.Stderr, "   Files under %s were left in place.\n", reg.Dir(args[0]))
		if active, err := reg.Active(); err == nil && active != "" {
			fmt.Printf("   Active context: %s\n", active)
		}
	},
}

func init() {
	addProfileFlags(contextAddCmd.Flags())
	contextCmd.AddCommand(contextListCmd, contextUseCmd, contextAddCmd, contextRemoveCmd)
	rootCmd.AddCommand(contextCmd)
}
