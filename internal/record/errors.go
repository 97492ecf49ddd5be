package record

import "errors"

var (
	ErrNotFound          = errors.New("记录不存在")
	ErrForbidden         = errors.New("无权操作该记录")
	ErrInvalidOutcome    = errors.New("运势等级无效")
	ErrInvalidDate       = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrReservedCategory  = errors.New("分类名不能使用保留字 " + ReservedOutcomeKey)
	ErrInvalidMonth      = errors.New("月份格式无效，应为 YYYY-MM")
	ErrDuplicateCategory = errors.New("分类名去掉空白后重复")
)
