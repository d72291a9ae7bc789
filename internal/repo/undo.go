package repo

import (
	"context"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// ClaimLatestCheckout removes and returns the newest undo log entry. An entry
// is returned to exactly one caller: if a concurrent claim deletes it first,
// the next newest entry is tried. gorm.ErrRecordNotFound means the log is empty.
func (r *GormRepo) ClaimLatestCheckout(ctx context.Context) (*models.CheckoutLog, error) {
	db := r.DB.WithContext(ctx)
	for {
		var entry models.CheckoutLog
		if err := db.Order("id DESC").First(&entry).Error; err != nil {
			return nil, err
		}

		res := db.Where("id = ?", entry.ID).Delete(&models.CheckoutLog{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &entry, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (r *GormRepo) CountCheckoutLog(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.CheckoutLog{}).Count(&n).Error
	return n, err
}
