package repository

import (
	"context"

	"sphere-game-data/backend/internal/domain/gamedata"

	"gorm.io/gorm"
)

// gameDataWritableColumns 是整条替换时会被覆盖的列，id 与 created_at 不在其中。
var gameDataWritableColumns = []string{
	"event_at",
	"event_type",
	"event_category",
	"ip_address",
	"mac_address",
	"session_id",
	"game_reference",
	"game_level",
	"game_mode",
	"game_color",
	"correct_color",
	"game_sequence",
	"game_player_input",
	"retry_count",
	"error_messages",
}

// GameDataRepository 提供 game_data 表的 CRUD 封装。
type GameDataRepository struct {
	db *gorm.DB
}

// NewGameDataRepository 构造仓储实例。
func NewGameDataRepository(db *gorm.DB) *GameDataRepository {
	return &GameDataRepository{db: db}
}

// Create 新增事件记录。
func (r *GameDataRepository) Create(ctx context.Context, record *gamedata.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID 根据主键查找事件记录，不存在时返回 gorm.ErrRecordNotFound。
func (r *GameDataRepository) FindByID(ctx context.Context, id uint) (*gamedata.Record, error) {
	var record gamedata.Record
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按创建时间倒序返回全部记录，时间相同时按 id 倒序保证顺序稳定。
func (r *GameDataRepository) List(ctx context.Context) ([]gamedata.Record, error) {
	var records []gamedata.Record
	err := r.db.WithContext(ctx).
		Model(&gamedata.Record{}).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Update 覆盖全部可写列，包括零值与 NULL。调用方需先确认记录存在。
func (r *GameDataRepository) Update(ctx context.Context, record *gamedata.Record) error {
	return r.db.WithContext(ctx).
		Model(record).
		Select(gameDataWritableColumns).
		Updates(record).Error
}

// Delete 物理删除指定记录。
func (r *GameDataRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&gamedata.Record{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count 返回记录总数。
func (r *GameDataRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&gamedata.Record{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
