package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
)

// AdjustStock applies delta to a product's quantity in one conditional
// UPDATE, refusing any change that would leave the quantity negative.
// It returns the quantity after the adjustment; on a refused adjustment it
// returns the quantity that was available along with a *domain.StockError.
func (r *GormRepo) AdjustStock(ctx context.Context, productID uint, delta int) (int, error) {
	var (
		quantity int
		applied  bool
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity + ? >= 0", productID, delta).
			Update("quantity", gorm.Expr("quantity + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0

		var p models.Product
		if err := tx.Select("id", "quantity").First(&p, productID).Error; err != nil {
			return err
		}
		quantity = p.Quantity
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return 0, domain.ProductNotFound(productID)
		}
		return 0, domain.Persistence(fmt.Sprintf("adjust stock of product %d", productID), err)
	}

	if !applied {
		return quantity, &domain.StockError{ProductID: productID, Requested: -delta, Available: quantity}
	}
	return quantity, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
