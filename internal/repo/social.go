package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// ToggleFavorite flips the (user, product) favorite and reports the new state.
func (r *GormRepo) ToggleFavorite(ctx context.Context, userID, productID uint) (bool, error) {
	var favorited bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			favorited = false
			return nil
		}
		favorited = true
		return tx.Create(&models.Favorite{UserID: userID, ProductID: productID}).Error
	})
	return favorited, err
}

func (r *GormRepo) ListFavoriteProducts(ctx context.Context, userID uint) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).
		Joins("JOIN favorites ON favorites.product_id = products.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) IsFavorite(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND product_id = ?", userID, productID).Count(&n).Error
	return n > 0, err
}

// UpsertReview keeps one review per (user, product); a second submission
// replaces the first.
func (r *GormRepo) UpsertReview(ctx context.Context, rv *models.Review) error {
	rv.UpdatedAt = time.Now().UTC()
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "title", "comment", "updated_at"}),
	}).Create(rv).Error
}

type ReviewView struct {
	models.Review
	Username string `json:"username"`
}

func (r *GormRepo) ListReviews(ctx context.Context, productID uint) ([]ReviewView, error) {
	var rows []ReviewView
	if err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("reviews.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = reviews.user_id").
		Where("reviews.product_id = ?", productID).
		Order("reviews.updated_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type ReviewStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

func (r *GormRepo) ReviewStats(ctx context.Context, productID uint) (ReviewStats, error) {
	var row struct {
		Count   int64
		Average *float64
	}
	if err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS average").
		Where("product_id = ?", productID).
		Scan(&row).Error; err != nil {
		return ReviewStats{}, err
	}
	st := ReviewStats{Count: row.Count}
	if row.Average != nil {
		st.Average = *row.Average
	}
	return st, nil
}
