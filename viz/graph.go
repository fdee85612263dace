// ABOUTME: Graphviz rendering of the sales pipeline
// ABOUTME: Chains stages left to right and hangs leads and their deals off each stage
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/models"
)

var dealColors = map[models.DealStatus]string{
	models.DealLead:        "lightyellow",
	models.DealQualified:   "khaki",
	models.DealProposal:    "lightsalmon",
	models.DealNegotiation: "orange",
	models.DealWon:         "palegreen",
	models.DealLost:        "lightgray",
}

// PipelineGraph renders stages, leads and deals in the given format.
// graphviz.XDOT is what the terminal view shows.
func PipelineGraph(ctx context.Context, in Input, format graphviz.Format) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("LeadLab Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	stageNodes := make(map[uuid.UUID]*cgraph.Node, len(in.Stages))
	var prev *cgraph.Node
	for _, stage := range in.Stages {
		node, err := graph.CreateNodeByName("stage_" + short(stage.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(stage.Name)
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightblue")
		stageNodes[stage.ID] = node

		if prev != nil {
			edge, err := graph.CreateEdgeByName("next", prev, node)
			if err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
			edge.SetStyle("bold")
		}
		prev = node
	}

	leadNodes := make(map[uuid.UUID]*cgraph.Node, len(in.Leads))
	for _, lead := range in.Leads {
		node, err := graph.CreateNodeByName("lead_" + short(lead.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create lead node: %w", err)
		}
		label := lead.FullName()
		if lead.Company != "" {
			label += "\n" + lead.Company
		}
		node.SetLabel(label)
		node.SetShape("ellipse")
		node.SetStyle("filled")
		node.SetFillColor("lightgreen")
		leadNodes[lead.ID] = node

		if lead.StageID != nil {
			if stageNode, ok := stageNodes[*lead.StageID]; ok {
				edge, err := graph.CreateEdgeByName("in_stage", stageNode, node)
				if err != nil {
					return "", fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle("dashed")
			}
		}
	}

	for _, deal := range in.Deals {
		node, err := graph.CreateNodeByName("deal_" + short(deal.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", deal.Name, Money(deal.Amount), deal.Status.Label()))
		node.SetShape("diamond")
		node.SetStyle("filled")
		color, ok := dealColors[deal.Status]
		if !ok {
			color = "white"
		}
		node.SetFillColor(color)

		if deal.LeadID != nil {
			if leadNode, ok := leadNodes[*deal.LeadID]; ok {
				edge, err := graph.CreateEdgeByName("deal", leadNode, node)
				if err != nil {
					return "", fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetLabel("deal")
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func short(id uuid.UUID) string {
	return id.String()[:8]
}
