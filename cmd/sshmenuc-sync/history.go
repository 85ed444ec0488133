package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/disoardi/sshmenuc/internal/journal"
	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "sync",
	Short:   "Show past sync attempts",
	Long: `List recorded sync attempts, newest first.

--since accepts a date ("2026-03-01"), an RFC 3339 timestamp, or a phrase
such as "yesterday", "last monday" or "3 days ago". --prune takes the same
forms and deletes every entry older than that instead of listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")
		format, _ := cmd.Flags().GetString("format")
		prune, _ := cmd.Flags().GetString("prune")

		filter := journal.Filter{Limit: limit}
		if since != "" {
			t, err := parseSince(since, time.Now())
			if err != nil {
				exitf("%v", err)
			}
			filter.Since = t
		}
		if !all {
			sel, err := profile.Select(settings.Paths(), contextName)
			if err != nil {
				exitf("%v", err)
			}
			filter.Profile = sel.Profile.Name
		}

		j, err := journal.Open(settings.Journal)
		if err != nil {
			exitf("%v", err)
		}
		defer j.Close()

		if prune != "" {
			before, err := parseSince(prune, time.Now())
			if err != nil {
				exitf("%v", err)
			}
			n, err := j.Prune(cmd.Context(), before)
			if err != nil {
				exitf("%v", err)
			}
			fmt.Printf("%s Removed %d entries older than %s\n",
				ui.RenderPass("✓"), n, before.Local().Format(time.DateTime))
			return
		}

		entries, err := j.List(cmd.Context(), filter)
		if err != nil {
			exitf("%v", err)
		}

		switch format {
		case "json":
			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				exitf("encoding history: %v", err)
			}
			fmt.Println(string(out))
		case "yaml":
			out, err := yaml.Marshal(entries)
			if err != nil {
				exitf("encoding history: %v", err)
			}
			fmt.Print(string(out))
		case "", "text":
			printHistory(entries)
		default:
			exitf("unknown format %q (want text, yaml or json)", format)
		}
	},
}

// parseSince understands absolute dates and natural-language phrases.
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse time %q: not a date or time", s)
	}
	return r.Time, nil
}

func printHistory(entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Println("No sync history.")
		return
	}
	for _, e := range entries {
		outcome := e.State
		switch {
		case e.Detail != "":
			outcome = ui.RenderWarn(e.State)
		case e.State == "ok":
			outcome = ui.RenderPass(e.State)
		}
		line := fmt.Sprintf("%s  %-10s %-15s %s",
			ui.RenderMuted(e.Timestamp.Local().Format(time.DateTime)), e.Profile, e.Operation, outcome)
		if e.Status != "" && e.Status != profile.StatusOK {
			line += " " + e.Status
		}
		fmt.Println(line)
		if e.Detail != "" {
			fmt.Printf("    %s\n", ui.RenderMuted(e.Detail))
		}
	}
}

func init() {
	historyCmd.Flags().String("since", "", "only show entries after this time")
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of entries (0 for all)")
	historyCmd.Flags().Bool("all", false, "show every profile, not just the selected one")
	historyCmd.Flags().String("format", "text", "output format: text, yaml or json")
	historyCmd.Flags().String("prune", "", "delete entries older than this time (all profiles)")
	rootCmd.AddCommand(historyCmd)
}
