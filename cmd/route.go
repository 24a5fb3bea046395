package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetnav/core/navgraph"
	"github.com/kilianp07/fleetnav/infra/graphfile"
)

var routeFlags struct {
	graph   string
	level   string
	from    string
	to      string
	charger bool
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Print the shortest route between two vertices",
	RunE:  runRoute,
}

func init() {
	f := routeCmd.Flags()
	f.StringVar(&routeFlags.graph, "graph", "", "navigation graph file (json or yaml)")
	f.StringVar(&routeFlags.level, "level", "", "graph level, first one when empty")
	f.StringVar(&routeFlags.from, "from", "", "start vertex id or name")
	f.StringVar(&routeFlags.to, "to", "", "destination vertex id or name")
	f.BoolVar(&routeFlags.charger, "charger", false, "route to the nearest charger instead of --to")
	_ = routeCmd.MarkFlagRequired("graph")
	_ = routeCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, _ []string) error {
	g, err := graphfile.Load(routeFlags.graph, routeFlags.level)
	if err != nil {
		return err
	}
	from, err := resolveVertex(g, routeFlags.from)
	if err != nil {
		return err
	}
	var path []int
	var ok bool
	switch {
	case routeFlags.charger:
		_, path, ok = g.NearestCharger(from, navgraph.Blocked{})
	case routeFlags.to != "":
		to, err := resolveVertex(g, routeFlags.to)
		if err != nil {
			return err
		}
		path, ok = g.ShortestPath(from, to, navgraph.Blocked{})
	default:
		return fmt.Errorf("either --to or --charger is required")
	}
	if !ok {
		return fmt.Errorf("no route from %s", g.Name(from))
	}
	names := make([]string, len(path))
	length := 0.0
	for i, v := range path {
		names[i] = g.Name(v)
		if i > 0 {
			length += g.LaneLength(path[i-1], v)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d hops, length %.2f)\n", strings.Join(names, " -> "), len(path)-1, length)
	return err
}

// resolveVertex accepts a numeric id or a vertex name.
func resolveVertex(g *navgraph.Graph, s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		if _, ok := g.Vertex(id); !ok {
			return 0, fmt.Errorf("vertex %d out of range", id)
		}
		return id, nil
	}
	for _, v := range g.Vertices() {
		if v.Name == s {
			return v.ID, nil
		}
	}
	return 0, fmt.Errorf("unknown vertex %q", s)
}
