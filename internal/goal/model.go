package goal

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("目标不存在")
	ErrEmptyContent = errors.New("目标内容不能为空")
	ErrInvalidYear  = errors.New("无效的年份")
)

// Goal 是用户的年度目标。Content 按行保存多个条目
type Goal struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index:idx_goal_user_year,priority:1;size:36;not null" json:"userId"`
	Year      int       `gorm:"index:idx_goal_user_year,priority:2;index:idx_goal_public_year,priority:1;not null" json:"year"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsPublic  bool      `gorm:"index:idx_goal_public_year,priority:2;not null;default:false" json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Goal) TableName() string {
	return "yearly_goals"
}

// Items 把内容拆回条目，忽略空行
func (g *Goal) Items() []string {
	var items []string
	for _, line := range strings.Split(g.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// Input 是新建目标的请求体。Items 和 Content 二选一，Items 优先
type Input struct {
	Year     int      `json:"year"`
	Content  string   `json:"content"`
	Items    []string `json:"items"`
	IsPublic bool     `json:"isPublic"`
}

// content 返回规范化后的内容
func (in Input) content() string {
	lines := in.Items
	if len(lines) == 0 {
		lines = strings.Split(in.Content, "\n")
	}
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
