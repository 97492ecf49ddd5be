package record

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Categories 是分类名到签文内容的映射，分类名因寺社而异
type Categories map[string]string

// Record 是一条御神签记录
type Record struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	// UserID 创建后不可修改
	UserID     string                         `gorm:"type:varchar(64);not null;index:idx_user_date,priority:1" json:"userId"`
	Date       string                         `gorm:"type:varchar(10);not null;index:idx_user_date,priority:2" json:"date"`
	Outcome    Outcome                        `gorm:"type:varchar(8);not null" json:"outcome"`
	Location   string                         `json:"location"`
	Categories datatypes.JSONType[Categories] `json:"categories"`
	Memo       string                         `json:"memo"`
	CreatedAt  time.Time                      `json:"createdAt"`
	UpdatedAt  time.Time                      `json:"updatedAt"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "omikuji_records"
}

// CategoryMap 返回分类映射，保证不为nil
func (r *Record) CategoryMap() Categories {
	c := r.Categories.Data()
	if c == nil {
		return Categories{}
	}
	return c
}

// SetCategories 整体替换分类映射
func (r *Record) SetCategories(c Categories) {
	r.Categories = datatypes.NewJSONType(c)
}

// Input 是创建记录时由调用方提供的字段
type Input struct {
	Date       string     `json:"date" binding:"required"`
	Outcome    Outcome    `json:"outcome" binding:"required"`
	Location   string     `json:"location"`
	Categories Categories `json:"categories"`
	Memo       string     `json:"memo"`
}

// Patch 描述一次部分更新，nil 字段保持不变
// Categories 非nil时整体替换，不做合并
type Patch struct {
	Date       *string     `json:"date"`
	Outcome    *Outcome    `json:"outcome"`
	Location   *string     `json:"location"`
	Categories *Categories `json:"categories"`
	Memo       *string     `json:"memo"`
}

// Empty 判断补丁是否没有任何字段
func (p Patch) Empty() bool {
	return p.Date == nil && p.Outcome == nil && p.Location == nil && p.Categories == nil && p.Memo == nil
}

// ValidateDate 检查日期是否是真实存在的 YYYY-MM-DD
func ValidateDate(s string) error {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil || t.Format(time.DateOnly) != s {
		return ErrInvalidDate
	}
	return nil
}

// CleanCategories 去掉空白分类名并拒绝保留字，返回新的映射。
// 去掉首尾空白后重名的分类会被拒绝，避免结果依赖遍历顺序
func CleanCategories(in Categories) (Categories, error) {
	out := make(Categories, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if key == ReservedOutcomeKey {
			return nil, ErrReservedCategory
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, key)
		}
		out[key] = v
	}
	return out, nil
}

// Validate 检查补丁中给出的字段，并清理分类
func (p *Patch) Validate() error {
	if p.Date != nil {
		if err := ValidateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Outcome != nil && !p.Outcome.Valid() {
		return ErrInvalidOutcome
	}
	if p.Categories != nil {
		cleaned, err := CleanCategories(*p.Categories)
		if err != nil {
			return err
		}
		p.Categories = &cleaned
	}
	return nil
}

// Validate 检查创建输入，并清理分类
func (in *Input) Validate() error {
	if err := ValidateDate(in.Date); err != nil {
		return err
	}
	if !in.Outcome.Valid() {
		return ErrInvalidOutcome
	}
	cleaned, err := CleanCategories(in.Categories)
	if err != nil {
		return err
	}
	in.Categories = cleaned
	return nil
}
