// ABOUTME: MCP server subcommand
// ABOUTME: Serves LeadLab tools, resources and prompts to agents over stdio
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/handlers"
	"github.com/harperreed/leadlab/services"
)

func newMCPCommand(rt *runtime, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio for agent integrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			a.Logger.Info("starting MCP server", "user", a.Auth.Snapshot().User.Email)
			server := newMCPServer(a.Services, version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func newMCPServer(svc *services.Services, version string) *mcp.Server {
	leads := handlers.NewLeadHandlers(svc)
	deals := handlers.NewDealHandlers(svc)
	tasks := handlers.NewTaskHandlers(svc)
	events := handlers.NewEventHandlers(svc)
	query := handlers.NewQueryHandlers(svc)
	vizHandlers := handlers.NewVizHandlers(svc)
	resources := handlers.NewResourceHandlers(svc)
	prompts := handlers.NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadlab",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Add a new lead, optionally placing it in a pipeline stage",
	}, leads.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_leads",
		Description: "Search leads by name, email or company, optionally within one stage",
	}, leads.FindLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_lead",
		Description: "Move a lead to another pipeline stage",
	}, leads.MoveLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead_note",
		Description: "Attach a note to a lead",
	}, leads.AddLeadNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a deal, optionally linked to a lead",
	}, deals.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal_status",
		Description: "Change a deal's status (new, qualified, proposal, negotiation, won, lost)",
	}, deals.UpdateDealStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_deals",
		Description: "List deals filtered by status, lead or amount range",
	}, deals.FindDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a task with priority and due date",
	}, tasks.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_tasks",
		Description: "List tasks by status or lead, optionally only overdue ones",
	}, tasks.FindTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as done",
	}, tasks.CompleteTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "List calendar events in a date window",
	}, events.ListEvents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_event",
		Description: "Create a calendar event",
	}, events.CreateEvent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_crm",
		Description: "Universal query tool across entity types (lead, deal, task, event)",
	}, query.QueryCRM)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the lead and deal pipeline as a Graphviz graph (dot or svg)",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Summarize pipeline value, task load and stale deals",
	}, vizHandlers.Dashboard)

	for _, r := range resources.Resources() {
		server.AddResource(r, resources.ReadResource)
	}
	for _, tmpl := range resources.Templates() {
		server.AddResourceTemplate(tmpl, resources.ReadResource)
	}
	for _, p := range prompts.Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	return server
}
