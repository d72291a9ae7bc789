package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/util"
)

type OrderService struct {
	Repo    *repo.GormRepo
	TaxRate decimal.Decimal
}

type Invoice struct {
	Order       *models.Order   `json:"order"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

func (s *OrderService) List(ctx context.Context, userID uint, page, size int) (*util.Page[models.Order], error) {
	offset, size := util.Calculate(page, size)
	orders, total, err := s.Repo.ListOrders(ctx, userID, size, offset)
	if err != nil {
		return nil, domain.Persistence("list orders", err)
	}
	return &util.Page[models.Order]{Data: orders, Meta: util.NewMeta(page, size, total)}, nil
}

// Get returns the order only to its owner; anyone else gets ErrNotFound.
func (s *OrderService) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("load order", err)
	}
	return o, nil
}

// Invoice prices the order lines, adds tax on the subtotal rounded to cents
// and the delivery fee on top.
func (s *OrderService) Invoice(ctx context.Context, userID, orderID uint) (*Invoice, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return NewInvoice(o, s.TaxRate), nil
}

func NewInvoice(o *models.Order, rate decimal.Decimal) *Invoice {
	sub := decimal.Zero
	for _, it := range o.Items {
		sub = sub.Add(it.Subtotal())
	}
	sub = sub.Round(2)
	tax := sub.Mul(rate).Round(2)
	total := sub.Add(tax)
	return &Invoice{
		Order:       o,
		Subtotal:    sub,
		TaxRate:     rate,
		Tax:         tax,
		Total:       total,
		DeliveryFee: o.DeliveryFee,
		AmountDue:   total.Add(o.DeliveryFee),
	}
}
