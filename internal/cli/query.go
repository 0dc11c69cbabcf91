package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <data.json>...",
	Short: "List entities inside a bounding box",
	Long: `Load entity documents, optionally restore a saved edit history on top,
and list the entities whose bounding boxes overlap the given box.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuery,
}

var (
	queryBBox     string
	queryHistory  string
	querySegments bool
)

func init() {
	queryCmd.Flags().StringVar(&queryBBox, "bbox", "", "Bounding box as minx,miny,maxx,maxy")
	queryCmd.Flags().StringVar(&queryHistory, "history", "", "Saved history to restore before querying")
	queryCmd.Flags().BoolVar(&querySegments, "segments", false, "Also list way segments")
	queryCmd.MarkFlagRequired("bbox")
}

func runQuery(cmd *cobra.Command, args []string) {
	c := initContext(cmd)

	extent, err := models.ParseExtent(queryBBox)
	if err != nil {
		exitError("%v", err)
	}

	h, err := c.loadHistory(cmd, args, queryHistory)
	if err != nil {
		exitError("%v", err)
	}

	found, err := h.Intersects(extent)
	if err != nil {
		exitError("query failed: %v", err)
	}

	out := cmd.OutOrStdout()
	printEntities(out, h.Graph(), found)

	if querySegments || c.Config.Segments {
		segments, err := h.Tree().WaySegments(extent, h.Graph())
		if err != nil {
			exitError("segment query failed: %v", err)
		}
		printSegments(out, segments)
	}
}

func printEntities(w io.Writer, g *graph.Graph, entities []models.Entity) {
	cyan := color.New(color.FgCyan)

	if len(entities) == 0 {
		fmt.Fprintln(w, "No entities")
		return
	}
	for _, e := range entities {
		cyan.Fprintf(w, "%-9s %s", e.Type(), e.ID())
		fmt.Fprintf(w, " (%s)", e.Geometry(g))
		if tags := formatTags(e.Tags()); tags != "" {
			fmt.Fprintf(w, " %s", tags)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d entities\n", len(entities))
}

func printSegments(w io.Writer, segments []models.Segment) {
	for _, s := range segments {
		fmt.Fprintf(w, "segment   %s %s-%s\n", s.ID, s.NodeIDs[0], s.NodeIDs[1])
	}
	fmt.Fprintf(w, "%d segments\n", len(segments))
}
