// ABOUTME: Visualization CLI commands
// ABOUTME: Prints the dashboard and renders the pipeline graph with graphviz
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/viz"
)

var graphFormats = map[string]graphviz.Format{
	"dot": graphviz.XDOT,
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
	"jpg": graphviz.JPG,
}

func newVizCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Dashboard and pipeline visualizations",
	}
	cmd.AddCommand(newVizDashboardCommand(rt), newVizPipelineCommand(rt))
	return cmd
}

func newVizDashboardCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the pipeline, task and attention overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			in, err := viz.Load(ctx, a.Services)
			if err != nil {
				return failure(err, "load the dashboard")
			}
			stats := viz.Compute(in, time.Now())
			return rt.emit(cmd, stats, func(w io.Writer) {
				_, _ = fmt.Fprint(w, viz.RenderDashboard(stats))
			})
		},
	}
}

func newVizPipelineCommand(rt *runtime) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Render stages, leads and deals as a graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			gf, ok := graphFormats[strings.ToLower(format)]
			if !ok {
				return fmt.Errorf("unknown format %q (valid: dot, svg, png, jpg)", format)
			}
			if output == "" && (gf == graphviz.PNG || gf == graphviz.JPG) {
				return fmt.Errorf("--output is required for %s", format)
			}
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			in, err := viz.Load(ctx, a.Services)
			if err != nil {
				return failure(err, "load the pipeline")
			}
			graph, err := viz.PipelineGraph(ctx, in, gf)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, []byte(graph), 0644); err != nil {
					return fmt.Errorf("failed to write graph: %w", err)
				}
				done(cmd.OutOrStdout(), "Pipeline graph written to "+output)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), graph)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", "dot, svg, png or jpg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
