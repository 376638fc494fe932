package novastar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument 参数超出字段宽度或取值范围
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrChecksumMismatch checksum校验失败
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrFrameTooShort 帧长度不足以容纳固定头与校验和
	ErrFrameTooShort = errors.New("frame too short")
)

// ValidationError 指明出错字段的参数校验错误
// 通过 errors.Is(err, ErrInvalidArgument) 统一判断
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func invalid(field string, value interface{}, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// CheckRange 校验 v 落在 [min, max] 区间内
func CheckRange(field string, v, min, max int) error {
	if v < min || v > max {
		return invalid(field, v, "out of range [%d, %d]", min, max)
	}
	return nil
}
