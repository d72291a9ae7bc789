package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/supermarket/internal/models"
)

func (r *GormRepo) ListCart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertCartItem writes the line as given, replacing quantity and snapshot
// fields of an existing (user, product) row.
func (r *GormRepo) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	row := *item
	row.ID = 0
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "price", "original_price", "discounted", "name", "image", "updated_at",
		}),
	}).Create(&row).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, userID, productID uint) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}
