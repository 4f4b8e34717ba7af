package gamedata

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// DefaultEventCategory 是未提供分类时写入的值。
	DefaultEventCategory = "general"
	// DefaultMACAddress 是客户端未上报 MAC 时的占位地址。
	DefaultMACAddress = "00:00:00:00:00:00"
)

// Record 表示一条游戏遥测事件，对应 game_data 表。
// 列表类字段以 JSON 存储，内容由客户端决定，服务端不做解释。
type Record struct {
	ID              uint           `gorm:"primaryKey;column:id"`
	CreatedAt       time.Time      `gorm:"column:created_at;index;not null"`
	EventAt         time.Time      `gorm:"column:event_at;not null"`
	EventType       string         `gorm:"column:event_type;size:255;not null"`
	EventCategory   string         `gorm:"column:event_category;size:255;not null"`
	IPAddress       string         `gorm:"column:ip_address;size:45;not null"`
	MACAddress      string         `gorm:"column:mac_address;size:17;not null"`
	SessionID       string         `gorm:"column:session_id;size:255;index;not null"`
	GameReference   *string        `gorm:"column:game_reference;size:255"`
	GameLevel       int            `gorm:"column:game_level;not null"`
	GameMode        string         `gorm:"column:game_mode;size:255;not null"`
	GameColor       *string        `gorm:"column:game_color;size:255"`
	CorrectColor    *string        `gorm:"column:correct_color;size:255"`
	GameSequence    datatypes.JSON `gorm:"column:game_sequence"`
	GamePlayerInput datatypes.JSON `gorm:"column:game_player_input"`
	RetryCount      int            `gorm:"column:retry_count;not null"`
	ErrorMessages   datatypes.JSON `gorm:"column:error_messages"`
}

// TableName 固定表名。
func (Record) TableName() string {
	return "game_data"
}

