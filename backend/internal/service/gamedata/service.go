package gamedata

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "sphere-game-data/backend/internal/domain/gamedata"
	appLogger "sphere-game-data/backend/internal/infra/logger"
	"sphere-game-data/backend/internal/infra/metrics"
	"sphere-game-data/backend/internal/infra/validation"
	"sphere-game-data/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRecordNotFound 表示指定 id 的事件记录不存在。
var ErrRecordNotFound = errors.New("game data record not found")

// Service 封装事件记录的写入、查询与维护逻辑。
type Service struct {
	records *repository.GameDataRepository
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewService 构造事件记录服务。
func NewService(records *repository.GameDataRepository) *Service {
	return &Service{
		records: records,
		logger:  appLogger.S().With("component", "gamedata.service"),
		now:     time.Now,
	}
}

// SetClock 替换创建时间的时钟，供测试控制 created_at。
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create 解码并写入一条新记录，created_at 由服务端生成。
func (s *Service) Create(ctx context.Context, body []byte) (Entry, error) {
	payload, err := Decode(body)
	if err != nil {
		metrics.RecordGameDataOperation("create", resultOf(err))
		return Entry{}, err
	}

	record := &domain.Record{CreatedAt: s.now().UTC()}
	payload.Apply(record)
	if err := s.records.Create(ctx, record); err != nil {
		s.scope("create").Errorw("insert record failed", "error", err, "session_id", record.SessionID)
		metrics.RecordGameDataOperation("create", metrics.ResultError)
		return Entry{}, fmt.Errorf("create game data: %w", err)
	}

	metrics.RecordGameDataOperation("create", metrics.ResultSuccess)
	return Encode(*record)
}

// Get 返回指定记录。
func (s *Service) Get(ctx context.Context, id uint) (Entry, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		metrics.RecordGameDataOperation("get", resultOf(err))
		return Entry{}, err
	}
	metrics.RecordGameDataOperation("get", metrics.ResultSuccess)
	return Encode(*record)
}

// List 按创建时间倒序返回全部记录。
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		metrics.RecordGameDataOperation("list", metrics.ResultError)
		return nil, fmt.Errorf("list game data: %w", err)
	}

	result := make([]Entry, 0, len(records))
	for _, record := range records {
		entry, err := Encode(record)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", record.ID, err)
		}
		result = append(result, entry)
	}
	metrics.RecordGameDataOperation("list", metrics.ResultSuccess)
	return result, nil
}

// Replace 以整条替换的方式更新记录。先确认记录存在，再校验请求体。
func (s *Service) Replace(ctx context.Context, id uint, body []byte) (Entry, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		metrics.RecordGameDataOperation("update", resultOf(err))
		return Entry{}, err
	}

	payload, err := Decode(body)
	if err != nil {
		metrics.RecordGameDataOperation("update", resultOf(err))
		return Entry{}, err
	}

	payload.Apply(record)
	if err := s.records.Update(ctx, record); err != nil {
		s.scope("update").Errorw("update record failed", "error", err, "id", id)
		metrics.RecordGameDataOperation("update", metrics.ResultError)
		return Entry{}, fmt.Errorf("update game data: %w", err)
	}

	metrics.RecordGameDataOperation("update", metrics.ResultSuccess)
	return Encode(*record)
}

// Delete 物理删除记录。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordGameDataOperation("delete", metrics.ResultNotFound)
			return ErrRecordNotFound
		}
		s.scope("delete").Errorw("delete record failed", "error", err, "id", id)
		metrics.RecordGameDataOperation("delete", metrics.ResultError)
		return fmt.Errorf("delete game data: %w", err)
	}
	metrics.RecordGameDataOperation("delete", metrics.ResultSuccess)
	return nil
}

func (s *Service) load(ctx context.Context, id uint) (*domain.Record, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load game data: %w", err)
	}
	return record, nil
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "gamedata.service")
	}
	return s.logger.With("operation", operation)
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrMalformedBody):
		return metrics.ResultInvalid
	}
	if _, ok := validation.As(err); ok {
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}
