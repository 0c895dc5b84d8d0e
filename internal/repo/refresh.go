package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_tracker/internal/models"
	"github.com/Skotchmaster/skincare_tracker/internal/tokens"
)

func newRefreshRow(userID, jti string, expiresAt time.Time, meta models.ClientMeta) *models.RefreshToken {
	return &models.RefreshToken{
		UserID:    userID,
		JTIHash:   tokens.HashJTI(jti),
		ExpiresAt: expiresAt.UTC(),
		IP:        strPtr(meta.IP),
		UserAgent: strPtr(meta.UserAgent),
	}
}

func createRefresh(tx *gorm.DB, row *models.RefreshToken) error {
	if err := tx.Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// StoreRefresh persists a newly issued refresh token under the hash of its jti.
func (r *GormRepo) StoreRefresh(ctx context.Context, userID, jti string, expiresAt time.Time, meta models.ClientMeta) error {
	return createRefresh(r.DB.WithContext(ctx), newRefreshRow(userID, jti, expiresAt, meta))
}

// FindValidRefresh returns the live row for jti, or nil when the row is
// missing, revoked or expired.
func (r *GormRepo) FindValidRefresh(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("jti_hash = ? AND revoked_at IS NULL AND expires_at > ?", tokens.HashJTI(jti), time.Now().UTC()).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// RevokeRefresh marks the row for jti revoked. Unknown or already revoked
// tokens are not an error.
func (r *GormRepo) RevokeRefresh(ctx context.Context, jti string) error {
	return r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("jti_hash = ? AND revoked_at IS NULL", tokens.HashJTI(jti)).
		Update("revoked_at", time.Now().UTC()).Error
}

func (r *GormRepo) RevokeAllRefreshForUser(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}

// CleanupRefresh deletes the user's expired or revoked rows.
func (r *GormRepo) CleanupRefresh(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND (revoked_at IS NOT NULL OR expires_at <= ?)", userID, time.Now().UTC()).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// RotateRefresh revokes oldJTI and stores the replacement in one
// transaction. The revoke only applies to a live row; if another caller
// got there first nothing is written and ErrTokenNotLive is returned.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldJTI, userID, newJTI string, expiresAt time.Time, meta models.ClientMeta) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.RefreshToken{}).
			Where("jti_hash = ? AND revoked_at IS NULL AND expires_at > ?", tokens.HashJTI(oldJTI), now).
			Update("revoked_at", now)
		if res.Error != nil {
			return fmt.Errorf("revoke old refresh token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotLive
		}

		return createRefresh(tx, newRefreshRow(userID, newJTI, expiresAt, meta))
	})
}
