package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/models"
)

var ErrUserAlreadyExist = errors.New("user already exist")

// CreateUser inserts u unless the username or email is taken.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", u.Username, u.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUserAlreadyExist
		}
		return tx.Create(u).Error
	})
}

// FindUserByLogin looks a user up by email or username.
func (r *GormRepo) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).
		Where("email = ? OR username = ?", login, login).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) UpdateUserAccess(ctx context.Context, id uint, role string, freeDelivery bool) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"role": role, "free_delivery": freeDelivery})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes the account together with its favorites, reviews and
// refresh tokens. The units reserved by its cart lines go back to stock in
// the same transaction that deletes the lines; the deleted lines are
// returned. Orders are kept.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.Model(&models.Product{}).Where("id = ?", line.ProductID).
				Update("quantity", gorm.Expr("quantity + ?", line.Quantity)).Error; err != nil {
				return err
			}
		}

		for _, m := range []any{&models.CartItem{}, &models.Favorite{}, &models.Review{}, &models.RefreshToken{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// EnsureAdmin creates the bootstrap admin account when no user has that
// email. It reports whether an account was created.
func (r *GormRepo) EnsureAdmin(ctx context.Context, u *models.User) (bool, error) {
	var existing models.User
	err := r.DB.WithContext(ctx).Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, err
	}

	u.Role = "admin"
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return false, err
	}
	return true, nil
}
