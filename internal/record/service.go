package record

import (
	"context"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
)

// ChangeListener 在某个用户的记录发生变化后被通知，例如统计缓存
type ChangeListener interface {
	RecordsChanged(ctx context.Context, userID string)
}

// DefaultListLimit 是列表接口未指定数量时返回的条数
const DefaultListLimit = 20

// MonthView 是日历和列表视图需要的一个月的数据
type MonthView struct {
	Month   YearMonth           `json:"month"`
	Prev    YearMonth           `json:"prev"`
	Next    YearMonth           `json:"next"`
	Total   int                 `json:"total"`
	Records []Record            `json:"records"`
	Days    map[string][]Record `json:"days"`
}

// Service 负责记录的所有权校验和输入校验
type Service struct {
	store     Store
	listeners []ChangeListener
}

func NewService(store Store, listeners ...ChangeListener) *Service {
	return &Service{store: store, listeners: listeners}
}

func (s *Service) notify(ctx context.Context, userID string) {
	for _, l := range s.listeners {
		l.RecordsChanged(ctx, userID)
	}
}

// Create 校验输入并保存一条新记录
func (s *Service) Create(ctx context.Context, userID string, in Input) (*Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r := &Record{
		UserID:   userID,
		Date:     in.Date,
		Outcome:  in.Outcome,
		Location: in.Location,
		Memo:     in.Memo,
	}
	r.SetCategories(in.Categories)

	if _, err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	logger.L.Debugw("记录已创建", "userID", userID, "recordID", r.ID)
	s.notify(ctx, userID)
	return r, nil
}

// Get 返回属于该用户的记录
func (s *Service) Get(ctx context.Context, userID, id string) (*Record, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrForbidden
	}
	return r, nil
}

// Update 修改属于该用户的记录，后写者覆盖先写者
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (*Record, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.store.GetByID(ctx, id)
	}

	r, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, userID)
	return r, nil
}

// Delete 删除属于该用户的记录
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, userID)
	return nil
}

// List 返回用户最近的记录
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// Month 返回某月经过筛选的记录以及按日分组的结果
func (s *Service) Month(ctx context.Context, userID string, ym YearMonth, c Criteria) (*MonthView, error) {
	if c.Outcome != "" && !c.Outcome.Valid() {
		return nil, ErrInvalidOutcome
	}
	records, err := s.store.ListByUserAndMonth(ctx, userID, ym)
	if err != nil {
		return nil, err
	}

	filtered := Filter(records, c)
	return &MonthView{
		Month:   ym,
		Prev:    ym.Adjacent(-1),
		Next:    ym.Adjacent(1),
		Total:   len(filtered),
		Records: filtered,
		Days:    GroupByDay(filtered),
	}, nil
}
