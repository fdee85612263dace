// ABOUTME: Product catalogue and quote CLI commands
// ABOUTME: Quote lines are SKU:qty pairs resolved against the catalogue before sending
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newProductsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage the product catalogue",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List products",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := rt.session(ctx)
				if err != nil {
					return err
				}
				products, err := a.Services.CPQ.Products(ctx)
				if err != nil {
					return failure(err, "load products")
				}
				return rt.emit(cmd, products, func(w io.Writer) {
					if len(products) == 0 {
						empty(w, "products")
						return
					}
					rows := make([][]string, 0, len(products))
					for _, p := range products {
						rows = append(rows, []string{p.SKU, p.Name, money(p.Price, p.Currency), dash(p.Category), p.ID.String()})
					}
					table(w, []string{"SKU", "NAME", "PRICE", "CATEGORY", "ID"}, rows)
				})
			},
		},
		newProductsAddCommand(rt),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.remove(cmd, "product", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
					return svc.CPQ.RemoveProduct(ctx, id)
				})
			},
		},
	)
	return cmd
}

func newProductsAddCommand(rt *runtime) *cobra.Command {
	var form models.ProductForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			p, err := a.Services.CPQ.CreateProduct(ctx, form)
			if err != nil {
				return failure(err, "create the product")
			}
			return rt.emit(cmd, p, func(w io.Writer) {
				done(w, fmt.Sprintf("Product created: %s %s (ID: %s)", p.SKU, p.Name, p.ID),
					"Price: "+money(p.Price, p.Currency))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Name (required)")
	f.StringVar(&form.SKU, "sku", "", "Stock keeping unit (required)")
	f.StringVar(&form.Price, "price", "", "Unit price")
	f.StringVar(&form.Currency, "currency", "USD", "Currency code")
	f.StringVar(&form.Category, "category", "", "Category")
	f.StringVar(&form.Description, "description", "", "Description")
	return cmd
}

func newQuotesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quotes",
		Aliases: []string{"quote"},
		Short:   "Manage quotes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List quotes with their totals",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := rt.session(ctx)
				if err != nil {
					return err
				}
				quotes, err := a.Services.CPQ.Quotes(ctx)
				if err != nil {
					return failure(err, "load quotes")
				}
				return rt.emit(cmd, quotes, func(w io.Writer) {
					if len(quotes) == 0 {
						empty(w, "quotes")
						return
					}
					rows := make([][]string, 0, len(quotes))
					for _, q := range quotes {
						rows = append(rows, []string{
							q.Name, dash(q.Status), fmt.Sprint(len(q.Items)),
							money(q.ComputeTotal(), q.Currency), dateOrDash(q.ValidUntil), q.ID.String(),
						})
					}
					table(w, []string{"NAME", "STATUS", "LINES", "TOTAL", "VALID UNTIL", "ID"}, rows)
				})
			},
		},
		newQuotesAddCommand(rt),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a quote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.remove(cmd, "quote", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
					return svc.CPQ.RemoveQuote(ctx, id)
				})
			},
		},
	)
	return cmd
}

func newQuotesAddCommand(rt *runtime) *cobra.Command {
	var form models.QuoteForm
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Build a quote from catalogue SKUs",
		Example: `  leadlab quotes add --name "Acme rollout" --lines "SEAT:25,ONBOARD:1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			products, err := a.Services.CPQ.Products(ctx)
			if err != nil {
				return failure(err, "load products")
			}
			q, err := a.Services.CPQ.CreateQuote(ctx, form, products)
			if err != nil {
				return failure(err, "create the quote")
			}
			return rt.emit(cmd, q, func(w io.Writer) {
				done(w, fmt.Sprintf("Quote created: %s (ID: %s)", q.Name, q.ID),
					fmt.Sprintf("Lines: %d", len(q.Items)),
					"Total: "+money(q.ComputeTotal(), q.Currency))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Quote name (required)")
	f.StringVar(&form.Lines, "lines", "", "Comma separated SKU:qty pairs (required)")
	f.StringVar(&form.LeadID, "lead", "", "Lead id")
	f.StringVar(&form.Currency, "currency", "", "Currency code, USD when empty")
	f.StringVar(&form.ValidUntil, "valid-until", "", "Expiry date like 2024-06-25")
	return cmd
}
