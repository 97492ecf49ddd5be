package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SlpAus/omikuji-record-backend/internal/record"
)

// Extraction 是从签文中读出的结果
type Extraction struct {
	// Outcome 只有在 result 键的值是标准等级时才非nil
	Outcome    *record.Outcome   `json:"outcome,omitempty"`
	Categories record.Categories `json:"categories"`
}

// ApplyTo 用识别结果整体替换草稿的分类，并在识别到等级时覆盖等级
func (e *Extraction) ApplyTo(d *Draft) {
	d.Categories = make(record.Categories, len(e.Categories))
	for k, v := range e.Categories {
		d.Categories[k] = v
	}
	if e.Outcome != nil {
		d.Outcome = *e.Outcome
	}
}

// stripCodeFence 去掉首尾空白以及 ```json ... ``` 包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// 第一行是语言标记，例如 json
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Normalize 把识别服务的原始文本解析为扁平的键值结果。
// 原始文本可以是JSON对象，也可以是被编码成JSON字符串的JSON对象，最多解开一层。
// 任何错误都不返回部分结果。
func Normalize(raw string) (*Extraction, error) {
	payload := []byte(stripCodeFence(raw))
	if len(payload) == 0 {
		return nil, &MalformedExtractionError{Reason: "识别结果为空"}
	}

	if payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, &MalformedExtractionError{Reason: "无法解析字符串包裹", Err: err}
		}
		payload = []byte(stripCodeFence(inner))
		if len(payload) > 0 && payload[0] == '"' {
			return nil, &MalformedExtractionError{Reason: "字符串被编码了不止一层"}
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &MalformedExtractionError{Reason: "不是JSON对象", Err: err}
	}
	if fields == nil {
		return nil, &MalformedExtractionError{Reason: "不是JSON对象"}
	}

	result := &Extraction{Categories: make(record.Categories, len(fields))}
	for key, value := range fields {
		text, err := coerceText(value)
		if err != nil {
			return nil, &MalformedExtractionError{Reason: fmt.Sprintf("键 %q 的值无效", key), Err: err}
		}

		if key == record.ReservedOutcomeKey {
			// 非标准等级直接丢弃，保留字不能进入分类
			if o, ok := record.ParseOutcome(text); ok {
				result.Outcome = &o
			}
			continue
		}
		result.Categories[key] = text
	}
	return result, nil
}

// coerceText 把标量JSON值转成文本，嵌套的对象和数组视为格式错误
func coerceText(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", fmt.Errorf("空值")
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("不支持嵌套的对象或数组")
	case 'n':
		return "", nil
	default:
		// 数字和布尔值保留原始写法
		return string(v), nil
	}
}
