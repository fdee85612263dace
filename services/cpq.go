// ABOUTME: Configure-price-quote endpoints for products and quotes
// ABOUTME: Quote payloads resolve product SKUs against the catalogue
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type CPQService struct {
	c *api.Client
}

func (s *CPQService) Products(ctx context.Context) ([]models.Product, error) {
	page, err := api.GetList[models.Product](ctx, s.c, "/cpq/products", nil)
	return page.Items, err
}

func (s *CPQService) CreateProduct(ctx context.Context, form models.ProductForm) (*models.Product, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := s.c.Post(ctx, "/cpq/products", payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CPQService) UpdateProduct(ctx context.Context, id uuid.UUID, form models.ProductForm) (*models.Product, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := s.c.Put(ctx, "/cpq/products/"+id.String(), payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CPQService) RemoveProduct(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/cpq/products/"+id.String())
}

func (s *CPQService) Quotes(ctx context.Context) ([]models.Quote, error) {
	page, err := api.GetList[models.Quote](ctx, s.c, "/cpq/quotes", nil)
	return page.Items, err
}

func (s *CPQService) CreateQuote(ctx context.Context, form models.QuoteForm, products []models.Product) (*models.Quote, error) {
	payload, err := form.Payload(products)
	if err != nil {
		return nil, err
	}
	var q models.Quote
	if err := s.c.Post(ctx, "/cpq/quotes", payload, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *CPQService) UpdateQuote(ctx context.Context, id uuid.UUID, form models.QuoteForm, products []models.Product) (*models.Quote, error) {
	payload, err := form.Payload(products)
	if err != nil {
		return nil, err
	}
	var q models.Quote
	if err := s.c.Put(ctx, "/cpq/quotes/"+id.String(), payload, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *CPQService) RemoveQuote(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, "/cpq/quotes/"+id.String())
}
