// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for listing, adding, moving and deleting deals
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newDealsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deals",
		Aliases: []string{"deal"},
		Short:   "Manage deals",
	}
	cmd.AddCommand(
		newDealsListCommand(rt),
		newDealsAddCommand(rt),
		newDealsMoveCommand(rt),
		newDealsDeleteCommand(rt),
	)
	return cmd
}

func dealStatusList() string {
	names := make([]string, len(models.DealStatuses))
	for i, s := range models.DealStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func parseDealStatus(s string) (models.DealStatus, error) {
	st, ok := models.ParseDealStatus(s)
	if !ok {
		return "", fmt.Errorf("invalid status %q (valid: %s)", s, dealStatusList())
	}
	return st, nil
}

func newDealsListCommand(rt *runtime) *cobra.Command {
	var (
		status, lead string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			filter := services.DealFilter{Paging: services.Paging{Limit: limit}}
			if status != "" {
				if filter.Status, err = parseDealStatus(status); err != nil {
					return err
				}
			}
			if lead != "" {
				id, err := parseID("lead", lead)
				if err != nil {
					return err
				}
				filter.LeadID = &id
			}
			deals, err := a.Services.Deals.List(ctx, filter)
			if err != nil {
				return failure(err, "load deals")
			}
			return rt.emit(cmd, deals, func(w io.Writer) {
				if len(deals) == 0 {
					empty(w, "deals")
					return
				}
				rows := make([][]string, 0, len(deals))
				var open float64
				for _, d := range deals {
					leadID := "-"
					if d.LeadID != nil {
						leadID = shortID(*d.LeadID)
					}
					rows = append(rows, []string{d.Name, money(d.Amount, d.Currency), d.Status.Label(), leadID, dateOrDash(d.ValidUntil), d.ID.String()})
					if !d.Status.Closed() {
						open += d.Amount
					}
				}
				table(w, []string{"NAME", "AMOUNT", "STATUS", "LEAD", "VALID UNTIL", "ID"}, rows)
				_, _ = fmt.Fprintln(w, faint(fmt.Sprintf("%d deals, %.2f open", len(deals), open)))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "Filter by status ("+dealStatusList()+")")
	f.StringVar(&lead, "lead", "", "Filter by lead id")
	f.IntVar(&limit, "limit", 100, "Maximum results")
	return cmd
}

func newDealsAddCommand(rt *runtime) *cobra.Command {
	var form models.DealForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a deal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			deal, err := a.Services.Deals.Create(ctx, form)
			if err != nil {
				return failure(err, "create the deal")
			}
			return rt.emit(cmd, deal, func(w io.Writer) {
				done(w, fmt.Sprintf("Deal created: %s (ID: %s)", deal.Name, deal.ID),
					"Amount: "+money(deal.Amount, deal.Currency),
					"Status: "+deal.Status.Label())
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Deal name (required)")
	f.StringVar(&form.Amount, "amount", "", "Deal amount")
	f.StringVar(&form.Currency, "currency", "USD", "Currency code")
	f.StringVar(&form.Status, "status", string(models.DealLead), "Status ("+dealStatusList()+")")
	f.StringVar(&form.LeadID, "lead", "", "Lead id")
	f.StringVar(&form.AssignedToID, "assignee", "", "Assigned user id")
	f.StringVar(&form.ValidUntil, "valid-until", "", "Expiry date like 2024-06-25")
	return cmd
}

func newDealsMoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID STATUS",
		Short: "Change a deal's status, as dragging it on the board does",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("deal", args[0])
			if err != nil {
				return err
			}
			status, err := parseDealStatus(args[1])
			if err != nil {
				return err
			}
			deal, err := a.Services.Deals.UpdateStatus(ctx, id, status)
			if err != nil {
				return failure(err, "update deal status")
			}
			return rt.emit(cmd, deal, func(w io.Writer) {
				done(w, fmt.Sprintf("Deal %s moved to %s", deal.Name, deal.Status.Label()))
			})
		},
	}
}

func newDealsDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.remove(cmd, "deal", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
				return svc.Deals.Remove(ctx, id)
			})
		},
	}
}
