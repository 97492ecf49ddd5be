package goal

import (
	"context"
	"time"
)

// MaxPublicLimit 限制公开列表单次返回的条数
const MaxPublicLimit = 50

type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// NewService 创建目标服务，"今年" 按 loc 计算
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, now: time.Now}
}

// WithClock 替换时钟，用于测试
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) currentYear() int {
	return s.now().In(s.loc).Year()
}

// Save 新建一条目标。每次保存都是新版本，当前目标取最新一条
func (s *Service) Save(ctx context.Context, userID string, in Input) (*Goal, error) {
	year := in.Year
	if year == 0 {
		year = s.currentYear()
	}
	if year < 1900 || year > 9999 {
		return nil, ErrInvalidYear
	}
	content := in.content()
	if content == "" {
		return nil, ErrEmptyContent
	}

	g := &Goal{UserID: userID, Year: year, Content: content, IsPublic: in.IsPublic}
	if _, err := s.store.Insert(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) Current(ctx context.Context, userID string) (*Goal, error) {
	return s.store.CurrentYear(ctx, userID, s.currentYear())
}

func (s *Service) List(ctx context.Context, userID string) ([]Goal, error) {
	return s.store.ListByUser(ctx, userID)
}

// Public 返回某年的公开目标，year 为0时取今年
func (s *Service) Public(ctx context.Context, year, limit int) ([]Goal, error) {
	if year == 0 {
		year = s.currentYear()
	}
	if limit > MaxPublicLimit {
		limit = MaxPublicLimit
	}
	return s.store.ListPublicByYear(ctx, year, limit)
}
