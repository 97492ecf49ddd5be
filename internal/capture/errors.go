package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode 表示图片无法解码，需要重新拍摄，不应重试
	ErrDecode = errors.New("无法解码图片")
	// ErrExtraction 表示识别服务调用失败，重试会再消耗一次额度
	ErrExtraction = errors.New("识别服务调用失败")
	// ErrMalformedExtraction 表示识别服务返回的内容不是预期的扁平JSON对象
	ErrMalformedExtraction = errors.New("识别结果格式错误")
)

// DecodeError 包装图片解码失败的原因
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ExtractionError 包装识别服务或网络错误
type ExtractionError struct {
	Provider string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrExtraction, e.Provider, e.Err)
}

func (e *ExtractionError) Unwrap() error        { return e.Err }
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// MalformedExtractionError 说明识别结果为什么无法使用
type MalformedExtractionError struct {
	Reason string
	Err    error
}

func (e *MalformedExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedExtraction, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedExtraction, e.Reason)
}

func (e *MalformedExtractionError) Unwrap() error        { return e.Err }
func (e *MalformedExtractionError) Is(target error) bool { return target == ErrMalformedExtraction }
