package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "sphere-game-data/backend/internal/domain/user"
	appLogger "sphere-game-data/backend/internal/infra/logger"
	"sphere-game-data/backend/internal/infra/metrics"
	"sphere-game-data/backend/internal/infra/validation"
	"sphere-game-data/backend/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 覆盖用户不存在、账号停用与密码错误三种情况，不暴露具体原因。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken 表示令牌不存在或已被吊销。
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAuthenticated 表示调用方没有携带有效身份。
	ErrNotAuthenticated = errors.New("authentication credentials were not provided")
	// ErrUserExists 表示创建用户时用户名已被占用。
	ErrUserExists = errors.New("user already exists")
)

// TokenStore 保存用户与访问令牌的一一对应关系。
type TokenStore interface {
	GetOrCreate(ctx context.Context, userID uint) (string, error)
	Resolve(ctx context.Context, key string) (uint, bool, error)
	Revoke(ctx context.Context, userID uint) error
}

// Service 负责登录、登出与令牌鉴权。
//
// 依赖说明：
//   - UserRepository：读取用户与更新登录时间。
//   - TokenStore：签发、复用与吊销访问令牌，可由数据库或 Redis 实现。
type Service struct {
	users  *repository.UserRepository
	tokens TokenStore
	logger *zap.SugaredLogger
	now    func() time.Time
	// dummyHash 用于用户不存在时执行一次等价的 bcrypt 比较，使响应时间不泄露用户名是否存在。
	dummyHash []byte
}

// NewService 创建鉴权服务实例。
func NewService(users *repository.UserRepository, tokens TokenStore) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("sphere-dummy-password"), bcrypt.DefaultCost)
	return &Service{
		users:     users,
		tokens:    tokens,
		logger:    appLogger.S().With("component", "auth.service"),
		now:       time.Now,
		dummyHash: dummy,
	}
}

// LoginParams 封装登录接口的输入，空白值在查库之前即被拒绝。
type LoginParams struct {
	Username *string `json:"username" validate:"required,notblank"`
	Password *string `json:"password" validate:"required,notblank"`
}

// Session 是登录成功后的结果。
type Session struct {
	User  *domain.User
	Token string
}

// Login 校验凭证并返回用户当前令牌；已有令牌时直接复用，重复登录拿到同一个值。
func (s *Service) Login(ctx context.Context, params LoginParams) (Session, error) {
	if fields := validation.Struct(params); fields != nil {
		metrics.RecordAuthAttempt("login", metrics.ResultInvalid)
		return Session{}, validation.NewError(fields)
	}

	username := *params.Username
	log := s.scope("login").With("username", username)

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorw("load user failed", "error", err)
			metrics.RecordAuthAttempt("login", metrics.ResultError)
			return Session{}, fmt.Errorf("load user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(*params.Password))
		log.Warnw("login rejected", "reason", "unknown user")
		metrics.RecordAuthAttempt("login", metrics.ResultRejected)
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*params.Password)); err != nil {
		log.Warnw("login rejected", "reason", "password mismatch", "user_id", user.ID)
		metrics.RecordAuthAttempt("login", metrics.ResultRejected)
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Warnw("login rejected", "reason", "inactive", "user_id", user.ID)
		metrics.RecordAuthAttempt("login", metrics.ResultRejected)
		return Session{}, ErrInvalidCredentials
	}

	key, err := s.tokens.GetOrCreate(ctx, user.ID)
	if err != nil {
		log.Errorw("issue token failed", "error", err, "user_id", user.ID)
		metrics.RecordAuthAttempt("login", metrics.ResultError)
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warnw("update last login failed", "error", err, "user_id", user.ID)
	} else {
		user.LastLoginAt = &now
	}

	log.Infow("login success", "user_id", user.ID)
	metrics.RecordAuthAttempt("login", metrics.ResultSuccess)
	return Session{User: user, Token: key}, nil
}

// Logout 吊销调用方的令牌，之后使用该令牌的请求均视为无效。
func (s *Service) Logout(ctx context.Context, identity domain.Identity) error {
	if !identity.Authenticated {
		metrics.RecordAuthAttempt("logout", metrics.ResultRejected)
		return ErrNotAuthenticated
	}

	if err := s.tokens.Revoke(ctx, identity.UserID); err != nil {
		s.scope("logout").Errorw("revoke token failed", "error", err, "user_id", identity.UserID)
		metrics.RecordAuthAttempt("logout", metrics.ResultError)
		return fmt.Errorf("revoke token: %w", err)
	}

	s.scope("logout").Infow("logout success", "user_id", identity.UserID)
	metrics.RecordAuthAttempt("logout", metrics.ResultSuccess)
	return nil
}

// Authenticate 把令牌解析为调用方身份。令牌未知、已吊销或所属用户已停用时返回 ErrInvalidToken。
func (s *Service) Authenticate(ctx context.Context, key string) (domain.Identity, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Anonymous(), ErrInvalidToken
	}

	userID, ok, err := s.tokens.Resolve(ctx, key)
	if err != nil {
		s.scope("authenticate").Errorw("resolve token failed", "error", err)
		metrics.RecordAuthAttempt("authenticate", metrics.ResultError)
		return domain.Anonymous(), fmt.Errorf("resolve token: %w", err)
	}
	if !ok {
		metrics.RecordAuthAttempt("authenticate", metrics.ResultRejected)
		return domain.Anonymous(), ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordAuthAttempt("authenticate", metrics.ResultRejected)
			return domain.Anonymous(), ErrInvalidToken
		}
		s.scope("authenticate").Errorw("load token owner failed", "error", err, "user_id", userID)
		metrics.RecordAuthAttempt("authenticate", metrics.ResultError)
		return domain.Anonymous(), fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		metrics.RecordAuthAttempt("authenticate", metrics.ResultRejected)
		return domain.Anonymous(), ErrInvalidToken
	}

	metrics.RecordAuthAttempt("authenticate", metrics.ResultSuccess)
	return domain.IdentityOf(user), nil
}

// CreateUserParams 描述新建账号所需的信息。
type CreateUserParams struct {
	Username    string
	Password    string
	IsStaff     bool
	IsSuperuser bool
}

// CreateUser 以 bcrypt 哈希保存密码并创建启用状态的账号。
func (s *Service) CreateUser(ctx context.Context, params CreateUserParams) (*domain.User, error) {
	username := strings.TrimSpace(params.Username)
	fields := validation.FieldErrors{}
	if username == "" {
		fields.Add("username", validation.MsgBlank)
	}
	if strings.TrimSpace(params.Password) == "" {
		fields.Add("password", validation.MsgBlank)
	}
	if len(fields) > 0 {
		return nil, validation.NewError(fields)
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		IsStaff:      params.IsStaff,
		IsSuperuser:  params.IsSuperuser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.scope("create_user").Infow("user created", "user_id", user.ID, "username", username, "is_staff", user.IsStaff)
	return user, nil
}

// EnsureAdmin 幂等地准备管理员账号：已存在时 created 为 false，并返回其现有（或补发的）令牌。
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (created bool, user *domain.User, key string, err error) {
	user, err = s.CreateUser(ctx, CreateUserParams{
		Username:    username,
		Password:    password,
		IsStaff:     true,
		IsSuperuser: true,
	})
	switch {
	case errors.Is(err, ErrUserExists):
		user, err = s.users.FindByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			return false, nil, "", fmt.Errorf("load existing admin: %w", err)
		}
		s.scope("ensure_admin").Warnw("admin user already exists", "user_id", user.ID)
	case err != nil:
		return false, nil, "", err
	default:
		created = true
	}

	key, err = s.tokens.GetOrCreate(ctx, user.ID)
	if err != nil {
		return created, user, "", fmt.Errorf("issue admin token: %w", err)
	}
	return created, user, key, nil
}

// hashPassword 使用 bcrypt 对明文密码加盐哈希。
func hashPassword(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "auth.service")
	}
	return s.logger.With("operation", operation)
}
