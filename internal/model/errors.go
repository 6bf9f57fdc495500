package model

import (
	"errors"
	"fmt"
)

// 错误类别，配合 errors.Is 使用
var (
	ErrData                 = errors.New("catalog data error")
	ErrNotFound             = errors.New("not found")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrComputation          = errors.New("computation error")
	ErrValidation           = errors.New("invalid input")
)

// DataError 目录文件或必需列缺失、格式错误
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string { return format(e.Op, ErrData, e.Err) }
func (e *DataError) Unwrap() error { return e.Err }
func (e *DataError) Is(target error) bool {
	return target == ErrData
}

// NotFoundError 引用的电影或人物不存在
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RetrievalUnavailableError 向量检索、向量化或生成服务不可用
type RetrievalUnavailableError struct {
	Op  string
	Err error
}

func (e *RetrievalUnavailableError) Error() string {
	return format(e.Op, ErrRetrievalUnavailable, e.Err)
}
func (e *RetrievalUnavailableError) Unwrap() error { return e.Err }
func (e *RetrievalUnavailableError) Is(target error) bool {
	return target == ErrRetrievalUnavailable
}

// ComputationError 特征计算失败（出现 NaN/Inf 等）
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string { return format(e.Op, ErrComputation, e.Err) }
func (e *ComputationError) Unwrap() error { return e.Err }
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// ValidationError 请求参数不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewDataError 构造 DataError
func NewDataError(op string, format string, args ...any) *DataError {
	return &DataError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewNotFound 构造 NotFoundError
func NewNotFound(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// NewRetrievalUnavailable 构造 RetrievalUnavailableError
func NewRetrievalUnavailable(op string, err error) *RetrievalUnavailableError {
	return &RetrievalUnavailableError{Op: op, Err: err}
}

func format(op string, kind, err error) string {
	switch {
	case op == "" && err == nil:
		return kind.Error()
	case err == nil:
		return op + ": " + kind.Error()
	case op == "":
		return kind.Error() + ": " + err.Error()
	default:
		return op + ": " + kind.Error() + ": " + err.Error()
	}
}
