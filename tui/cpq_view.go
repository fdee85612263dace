// ABOUTME: CPQ screens for the product catalogue and quotes
// ABOUTME: Quote lines are entered as SKU:qty pairs and priced from the catalogue
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/query"
)

// crud is the form and confirm plumbing the table screens share.
type crud struct {
	form    *form
	confirm *confirm
}

func (c *crud) capturing() bool { return c.form != nil || c.confirm != nil }

// key routes a key to the open form or dialog. handled is false when
// neither is open.
func (c *crud) key(msg tea.KeyMsg, submit func() tea.Cmd) (tea.Cmd, bool) {
	if c.form != nil {
		action, cmd := c.form.update(msg)
		switch action {
		case formCancel:
			c.form = nil
		case formSubmit:
			return submit(), true
		}
		return cmd, true
	}
	if c.confirm != nil {
		done, cmd := c.confirm.update(msg)
		if done {
			c.confirm = nil
		}
		return cmd, true
	}
	return nil, false
}

func (c *crud) done(msg mutationMsg) {
	if c.form == nil {
		return
	}
	if msg.err != nil {
		c.form.fail(msg.err)
		return
	}
	c.form = nil
}

func (c *crud) view(width, height int) (string, bool) {
	if c.form != nil {
		return c.form.view(), true
	}
	if c.confirm != nil {
		return c.confirm.view(width, height), true
	}
	return "", false
}

type productsScreen struct {
	env *Env
	q   *queries
	crud

	table    table.Model
	products []models.Product
}

func newProductsScreen(env *Env) *productsScreen {
	return &productsScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "Name", Width: 28},
			table.Column{Title: "SKU", Width: 14},
			table.Column{Title: "Price", Width: 12},
			table.Column{Title: "Category", Width: 16},
			table.Column{Title: "Active", Width: 6},
		),
	}
}

func (s *productsScreen) Init() tea.Cmd {
	s.q.watch(query.Products, s.env.productsFetcher())
	s.reload()
	return nil
}

func (s *productsScreen) Capturing() bool { return s.capturing() }
func (s *productsScreen) Close()          { s.q.release() }
func (s *productsScreen) Help() []string {
	return []string{"n: New", "e: Edit", "d: Delete", "r: Refresh"}
}

func price(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func (s *productsScreen) reload() {
	s.products = get[[]models.Product](s.q, query.Products)
	rows := make([]table.Row, 0, len(s.products))
	for _, p := range s.products {
		active := "no"
		if p.IsActive {
			active = "yes"
		}
		rows = append(rows, table.Row{p.Name, p.SKU, price(p.Price, p.Currency), p.Category, active})
	}
	setRows(&s.table, rows)
}

func (s *productsScreen) selected() (models.Product, bool) {
	i := s.table.Cursor()
	if i >= 0 && i < len(s.products) {
		return s.products[i], true
	}
	return models.Product{}, false
}

func (s *productsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) {
			s.reload()
		}
	case mutationMsg:
		s.done(msg)
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Products)
		case "n":
			s.form = productForm(models.ProductForm{Currency: "USD"}, "")
		case "e", "enter":
			if p, ok := s.selected(); ok {
				s.form = productForm(models.ProductFormFrom(p), p.ID.String())
			}
		case "d":
			if p, ok := s.selected(); ok {
				id := p.ID
				s.confirm = newConfirm("product", p.Name, s.env.mutate("delete product", "Product deleted", func(ctx context.Context) error {
					return s.env.Services.CPQ.RemoveProduct(ctx, id)
				}, query.OnProductChange))
			}
		default:
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

func productForm(f models.ProductForm, target string) *form {
	title := "New product"
	if target != "" {
		title = "Edit product"
	}
	fm := newForm(title,
		textField("name", "Name", f.Name),
		textField("sku", "SKU", f.SKU),
		textField("price", "Price", f.Price),
		textField("currency", "Currency", f.Currency),
		textField("category", "Category", f.Category),
		textField("description", "Description", f.Description),
	)
	fm.target = target
	return fm
}

func (s *productsScreen) submit() tea.Cmd {
	f := models.ProductForm{
		Name:        s.form.value("name"),
		SKU:         s.form.value("sku"),
		Price:       s.form.value("price"),
		Currency:    s.form.value("currency"),
		Category:    s.form.value("category"),
		Description: s.form.value("description"),
	}
	if _, err := f.Payload(); err != nil {
		s.form.fail(err)
		return nil
	}
	cpq := s.env.Services.CPQ
	if s.form.target == "" {
		return s.env.mutate("create product", "Product created", func(ctx context.Context) error {
			_, err := cpq.CreateProduct(ctx, f)
			return err
		}, query.OnProductChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update product", "Product updated", func(ctx context.Context) error {
		_, err := cpq.UpdateProduct(ctx, id, f)
		return err
	}, query.OnProductChange)
}

func (s *productsScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	if msg, ok := stateView(s.q, "products", query.Products); ok {
		return msg
	}
	return titleStyle.Render(fmt.Sprintf("PRODUCTS (%d)", len(s.products))) + "\n" +
		tableView(&s.table, height-2, "No products yet. Press n to add one.")
}

type quotesScreen struct {
	env *Env
	q   *queries
	crud

	table  table.Model
	quotes []models.Quote
}

func newQuotesScreen(env *Env) *quotesScreen {
	return &quotesScreen{
		env: env,
		q:   newQueries(env.Cache),
		table: newTable(
			table.Column{Title: "Name", Width: 28},
			table.Column{Title: "Status", Width: 10},
			table.Column{Title: "Items", Width: 6},
			table.Column{Title: "Total", Width: 14},
			table.Column{Title: "Valid until", Width: 12},
		),
	}
}

func (s *quotesScreen) Init() tea.Cmd {
	s.q.watch(query.Quotes, s.env.quotesFetcher())
	s.q.watch(query.Products, s.env.productsFetcher())
	s.q.watch(leadListKey, s.env.leadsFetcher(""))
	s.reload()
	return nil
}

func (s *quotesScreen) Capturing() bool { return s.capturing() }
func (s *quotesScreen) Close()          { s.q.release() }
func (s *quotesScreen) Help() []string {
	return []string{"n: New", "e: Edit", "d: Delete", "r: Refresh"}
}

func (s *quotesScreen) reload() {
	s.quotes = get[[]models.Quote](s.q, query.Quotes)
	rows := make([]table.Row, 0, len(s.quotes))
	for _, q := range s.quotes {
		rows = append(rows, table.Row{q.Name, q.Status, strconv.Itoa(len(q.Items)), price(q.ComputeTotal(), q.Currency), q.ValidUntil.Date()})
	}
	setRows(&s.table, rows)
}

func (s *quotesScreen) selected() (models.Quote, bool) {
	i := s.table.Cursor()
	if i >= 0 && i < len(s.quotes) {
		return s.quotes[i], true
	}
	return models.Quote{}, false
}

func (s *quotesScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheEventMsg:
		if s.q.apply(msg.event) {
			s.reload()
		}
	case mutationMsg:
		s.done(msg)
	case tea.KeyMsg:
		if cmd, ok := s.key(msg, s.submit); ok {
			return s, cmd
		}
		switch msg.String() {
		case "r":
			s.env.Cache.Invalidate(query.Quotes, query.Products)
		case "n":
			s.form = s.quoteForm(models.Quote{Currency: "USD"}, "")
		case "e", "enter":
			if q, ok := s.selected(); ok {
				s.form = s.quoteForm(q, q.ID.String())
			}
		case "d":
			if q, ok := s.selected(); ok {
				id := q.ID
				s.confirm = newConfirm("quote", q.Name, s.env.mutate("delete quote", "Quote deleted", func(ctx context.Context) error {
					return s.env.Services.CPQ.RemoveQuote(ctx, id)
				}, query.OnQuoteChange))
			}
		default:
			var cmd tea.Cmd
			s.table, cmd = s.table.Update(msg)
			return s, cmd
		}
	}
	return s, nil
}

// quoteLines turns items back into the SKU:qty text the form edits.
func quoteLines(items []models.QuoteItem, products []models.Product) string {
	skus := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		skus[p.ID] = p.SKU
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if sku, ok := skus[item.ProductID]; ok {
			lines = append(lines, fmt.Sprintf("%s:%d", sku, item.Quantity))
		}
	}
	return strings.Join(lines, ", ")
}

func (s *quotesScreen) quoteForm(q models.Quote, target string) *form {
	title := "New quote"
	if target != "" {
		title = "Edit quote"
	}
	lead := ""
	if q.LeadID != nil {
		lead = q.LeadID.String()
	}
	products := get[[]models.Product](s.q, query.Products)
	leads := get[api.Page[models.Lead]](s.q, leadListKey).Items
	fm := newForm(title,
		textField("name", "Name", q.Name),
		selectField("lead", "Lead", leadOptions(leads), lead),
		textField("currency", "Currency", q.Currency),
		textField("valid until", "Valid until", q.ValidUntil.Date()),
		textField("lines", "Lines (SKU:qty)", quoteLines(q.Items, products)),
	)
	fm.target = target
	return fm
}

func (s *quotesScreen) submit() tea.Cmd {
	f := models.QuoteForm{
		Name:       s.form.value("name"),
		LeadID:     s.form.value("lead"),
		Currency:   s.form.value("currency"),
		ValidUntil: s.form.value("valid until"),
		Lines:      s.form.value("lines"),
	}
	products := get[[]models.Product](s.q, query.Products)
	if _, err := f.Payload(products); err != nil {
		s.form.fail(err)
		return nil
	}
	cpq := s.env.Services.CPQ
	if s.form.target == "" {
		return s.env.mutate("create quote", "Quote created", func(ctx context.Context) error {
			_, err := cpq.CreateQuote(ctx, f, products)
			return err
		}, query.OnQuoteChange)
	}
	id, err := uuid.Parse(s.form.target)
	if err != nil {
		s.form.fail(err)
		return nil
	}
	return s.env.mutate("update quote", "Quote updated", func(ctx context.Context) error {
		_, err := cpq.UpdateQuote(ctx, id, f, products)
		return err
	}, query.OnQuoteChange)
}

func (s *quotesScreen) View(width, height int) string {
	if v, ok := s.crud.view(width, height); ok {
		return v
	}
	if msg, ok := stateView(s.q, "quotes", query.Quotes); ok {
		return msg
	}
	var total float64
	for _, q := range s.quotes {
		total += q.ComputeTotal()
	}
	header := titleStyle.Render(fmt.Sprintf("QUOTES (%d)", len(s.quotes))) + "  " + mutedStyle.Render("Total "+price(total, "USD"))
	return header + "\n" + tableView(&s.table, height-2, "No quotes yet. Press n to add one.")
}
