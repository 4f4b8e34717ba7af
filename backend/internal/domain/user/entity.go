package user

import "time"

// User 是可以登录的账号，IsStaff 决定是否拥有读取与维护遥测数据的权限。
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`                          // 自增主键
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"` // 登录名（唯一）
	PasswordHash string     `gorm:"size:255;not null" json:"-"`                    // bcrypt 哈希
	IsStaff      bool       `gorm:"not null" json:"is_staff"`                      // 运营人员标记
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`                  // 超级管理员标记
	IsActive     bool       `gorm:"not null" json:"is_active"`                     // 停用账号无法登录，默认值由创建方显式写入
	LastLoginAt  *time.Time `json:"last_login_at"`                                 // 上次登录时间，可为空
	CreatedAt    time.Time  `json:"created_at"`                                    // 创建时间戳（gorm 自动维护）
	UpdatedAt    time.Time  `json:"updated_at"`                                    // 更新时间戳（gorm 自动维护）
}

// AuthToken 记录用户当前唯一有效的访问令牌，登出即删除。
type AuthToken struct {
	Key       string    `gorm:"primaryKey;size:40" json:"key"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 固定令牌表名。
func (AuthToken) TableName() string {
	return "auth_tokens"
}

// Identity 是一次请求解析出的调用方身份。
type Identity struct {
	UserID        uint
	Username      string
	IsStaff       bool
	Authenticated bool
}

// Anonymous 返回未携带凭据的调用方。
func Anonymous() Identity {
	return Identity{}
}

// IdentityOf 把用户实体转换为已认证身份。
func IdentityOf(u *User) Identity {
	if u == nil {
		return Anonymous()
	}
	return Identity{
		UserID:        u.ID,
		Username:      u.Username,
		IsStaff:       u.IsStaff,
		Authenticated: true,
	}
}
