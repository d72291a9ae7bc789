package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/pkg/tokens"
)

var ErrTokenExpiredOrRevoked = errors.New("token expired or revoked")

func (r *GormRepo) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func refreshExpiredOrRevoked(db *gorm.DB, jti string) (bool, error) {
	var refresh models.RefreshToken
	if err := db.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return false, err
	}
	return refresh.Revoked || refresh.ExpiresAt.Before(time.Now()), nil
}

// RotateRefreshToken revokes oldJTI and stores next in one transaction. It
// fails with ErrTokenExpiredOrRevoked when oldJTI was already used.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dead, err := refreshExpiredOrRevoked(tx, oldJTI)
		if err != nil {
			return err
		}
		if dead {
			return ErrTokenExpiredOrRevoked
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenExpiredOrRevoked
		}

		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, rawToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokens.Sha256Hex(rawToken)).
		Update("revoked", true).Error
}
