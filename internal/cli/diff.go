package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/geoedit/internal/core"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <data.json> <history.json>",
	Short: "Show the changes of a saved edit history",
	Long: `Restore a saved edit history on top of a data file and show what the
edits changed, the way a reviewer reads it.`,
	Args: cobra.ExactArgs(2),
	Run:  runDiff,
}

var (
	diffStat     bool
	diffComplete bool
)

func init() {
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "Show diffstat instead of full diff")
	diffCmd.Flags().BoolVar(&diffComplete, "complete", false, "List every entity affected by the changes")
}

func runDiff(cmd *cobra.Command, args []string) {
	c := initContext(cmd)

	h, err := c.loadHistory(cmd, args[:1], args[1])
	if err != nil {
		exitError("%v", err)
	}

	diff := h.Difference()
	out := cmd.OutOrStdout()
	if diff.Len() == 0 {
		fmt.Fprintln(out, "No changes")
		return
	}

	if diffComplete {
		complete, err := diff.Complete()
		if err != nil {
			exitError("failed to compute affected entities: %v", err)
		}
		printComplete(out, complete)
		return
	}

	summary, err := diff.Summary()
	if err != nil {
		exitError("failed to summarize changes: %v", err)
	}

	if diffStat {
		printDiffStat(out, summary)
		return
	}
	printSummary(out, summary)
}

func countChanges(summary map[string]core.SummaryItem) map[core.ChangeType]int {
	counts := make(map[core.ChangeType]int)
	for _, item := range summary {
		counts[item.ChangeType]++
	}
	return counts
}

func printDiffStat(w io.Writer, summary map[string]core.SummaryItem) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	counts := countChanges(summary)
	if n := counts[core.ChangeCreated]; n > 0 {
		green.Fprintf(w, " %d created(+)\n", n)
	}
	if n := counts[core.ChangeModified]; n > 0 {
		yellow.Fprintf(w, " %d modified(~)\n", n)
	}
	if n := counts[core.ChangeDeleted]; n > 0 {
		red.Fprintf(w, " %d deleted(-)\n", n)
	}
	fmt.Fprintf(w, " %d entities changed\n", len(summary))
}

// printSummary shows changes with +++ / --- / ~~~ formatting, created first
func printSummary(w io.Writer, summary map[string]core.SummaryItem) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	ids := slices.Sorted(maps.Keys(summary))
	sections := []struct {
		kind   core.ChangeType
		prefix string
		c      *color.Color
	}{
		{core.ChangeCreated, "+++", green},
		{core.ChangeDeleted, "---", red},
		{core.ChangeModified, "~~~", yellow},
	}

	for _, section := range sections {
		for _, id := range ids {
			item := summary[id]
			if item.ChangeType != section.kind {
				continue
			}
			e := item.Entity
			section.c.Fprintf(w, "%s %s %s (%s)\n", section.prefix, e.Type(), e.ID(), e.Geometry(item.Graph))
			if tags := formatTags(e.Tags()); tags != "" {
				fmt.Fprintf(w, "    %s\n", tags)
			}
		}
	}
}

// printComplete lists every affected entity; deleted ones are marked
func printComplete(w io.Writer, complete map[string]models.Entity) {
	red := color.New(color.FgRed)

	for _, id := range slices.Sorted(maps.Keys(complete)) {
		e := complete[id]
		if e == nil {
			red.Fprintf(w, "--- %s\n", id)
			continue
		}
		fmt.Fprintf(w, "    %s %s\n", e.Type(), id)
	}
}

// formatTags renders tags as sorted key=value pairs
func formatTags(tags models.Tags) string {
	pairs := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ", ")
}
