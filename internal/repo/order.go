package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// CommitCheckout writes the order with its lines, appends the undo log entry
// and empties the persisted cart in a single transaction.
func (r *GormRepo) CommitCheckout(ctx context.Context, order *models.Order, entry *models.CheckoutLog) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		entry.OrderID = order.ID
		entry.UserID = order.UserID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", order.UserID).Delete(&models.CartItem{}).Error
	})
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrder returns the order only when it belongs to userID.
func (r *GormRepo) GetOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

type OrderStats struct {
	Orders  int64
	Revenue decimal.Decimal
}

func (r *GormRepo) OrderStats(ctx context.Context) (OrderStats, error) {
	var row struct {
		OrderCount int64
		Revenue    decimal.NullDecimal
	}
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Select("COUNT(*) AS order_count, SUM(total + delivery_fee) AS revenue").
		Scan(&row).Error; err != nil {
		return OrderStats{}, err
	}
	stats := OrderStats{Orders: row.OrderCount, Revenue: decimal.Zero}
	if row.Revenue.Valid {
		stats.Revenue = row.Revenue.Decimal
	}
	return stats, nil
}
