package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <data.json>...",
	Short: "Show entity counts for data files",
	Long: `Load one or more entity documents and show how many nodes, ways and
relations they hold, and how the nodes are used.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	c := initContext(cmd)

	h, err := c.loadHistory(cmd, args, "")
	if err != nil {
		exitError("%v", err)
	}

	s, err := h.Base().BaseStats()
	if err != nil {
		exitError("failed to compute stats: %v", err)
	}

	printStats(cmd.OutOrStdout(), s, h.Tree().Len(), h.Tree().SegmentLen())
}

func printStats(w io.Writer, s graph.Stats, boxes, segments int) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "%d entities\n", s.Total())
	fmt.Fprintf(w, "  nodes:      %d (%d points, %d vertices, %d shared)\n", s.Nodes, s.Points, s.Vertices, s.SharedVertices)
	fmt.Fprintf(w, "  ways:       %d\n", s.Ways)
	fmt.Fprintf(w, "  relations:  %d (%d multipolygons)\n", s.Relations, s.Multipolygons)
	fmt.Fprintf(w, "  areas:      %d\n", s.Areas)
	fmt.Fprintf(w, "Spatial index: %d boxes, %d segments\n", boxes, segments)
}
