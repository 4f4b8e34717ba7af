package repository

import (
	"context"
	"errors"
	"fmt"

	"sphere-game-data/backend/internal/domain/user"
	"sphere-game-data/backend/internal/infra/token"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository 把访问令牌保存在 auth_tokens 表，每个用户至多一条。
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 构造令牌仓储。
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetOrCreate 返回用户现有令牌；没有时生成新令牌。并发登录依赖 user_id 唯一索引只留下一条。
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID uint) (string, error) {
	if existing, err := r.findByUser(ctx, userID); err == nil {
		return existing.Key, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("load token: %w", err)
	}

	key, err := token.GenerateKey()
	if err != nil {
		return "", err
	}

	candidate := user.AuthToken{Key: key, UserID: userID}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&candidate).Error
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}

	stored, err := r.findByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("reload token: %w", err)
	}
	return stored.Key, nil
}

// Resolve 根据令牌查找所属用户，未命中时 ok 为 false。
func (r *TokenRepository) Resolve(ctx context.Context, key string) (uint, bool, error) {
	if key == "" {
		return 0, false, nil
	}
	var record user.AuthToken
	err := r.db.WithContext(ctx).Where(&user.AuthToken{Key: key}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return record.UserID, true, nil
}

// Revoke 删除用户的令牌，令牌不存在时视为成功。
func (r *TokenRepository) Revoke(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&user.AuthToken{}).Error
}

func (r *TokenRepository) findByUser(ctx context.Context, userID uint) (*user.AuthToken, error) {
	var record user.AuthToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
