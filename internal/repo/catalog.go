package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/models"
)

type ProductFilter struct {
	Search       string
	Categories   []string
	// Uncategorized products with one of these names also match Categories.
	LegacyNames  []string
	FeaturedOnly bool
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if len(f.Categories) > 0 {
		if len(f.LegacyNames) > 0 {
			q = q.Where("category IN ? OR ((category IS NULL OR category = '') AND name IN ?)", f.Categories, f.LegacyNames)
		} else {
			q = q.Where("category IN ?", f.Categories)
		}
	}
	if f.FeaturedOnly {
		q = q.Where("featured = ?", true)
	}
	return q
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter, limit, offset int) ([]models.Product, int64, error) {
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("featured = ?", true).
		Order("id ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) SoldOutProducts(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("quantity <= 0").Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// UpdateProductDetails saves everything except the quantity, which only the
// stock ledger may change.
func (r *GormRepo) UpdateProductDetails(ctx context.Context, p *models.Product) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{ID: p.ID}).
		Select("name", "description", "price", "discount_price", "category", "featured", "image").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SetFeatured(ctx context.Context, id uint, featured bool) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("featured", featured)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct removes the product with its favorites and reviews. Cart
// lines and order history that reference it are left alone.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Favorite{}, &models.Review{}} {
			if err := tx.Where("product_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
