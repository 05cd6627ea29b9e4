// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"
	CodeCancelled    Code = "CANCELLED"

	// 排课引擎相关
	CodeNoFeasibleSolution   Code = "NO_FEASIBLE_SOLUTION"
	CodeSearchExhausted      Code = "SEARCH_EXHAUSTED"
	CodeCapacityShortfall    Code = "CAPACITY_SHORTFALL"
	CodePrerequisiteConflict Code = "PREREQUISITE_CONFLICT"
	CodeAvailabilityConflict Code = "AVAILABILITY_CONFLICT"
	CodeConstraintViolation  Code = "CONSTRAINT_VIOLATION"
	CodeEvaluationFailed     Code = "CONSTRAINT_EVALUATION_ERROR"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Reasons []string               `json:"reasons,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithReasons 附加诊断出的原因码
func (e *AppError) WithReasons(reasons ...string) *AppError {
	e.Reasons = append(e.Reasons, reasons...)
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetReasons 获取错误携带的原因码
func GetReasons(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reasons
	}
	return nil
}

// IsInfeasible 判断错误是否属于"问题本身无解"一类
func IsInfeasible(err error) bool {
	switch GetCode(err) {
	case CodeNoFeasibleSolution, CodeCapacityShortfall, CodePrerequisiteConflict, CodeAvailabilityConflict:
		return true
	}
	return false
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// NoFeasibleSolution 创建无可行解错误
func NoFeasibleSolution(reason string) *AppError {
	return New(CodeNoFeasibleSolution, reason)
}

// SearchExhausted 创建搜索超时且无解错误
func SearchExhausted(limit string) *AppError {
	return New(CodeSearchExhausted, fmt.Sprintf("在时限 %s 内未找到任何可行解", limit))
}

// CapacityShortfall 创建教室容量不足错误
func CapacityShortfall(sectionIDs []int) *AppError {
	ids := make([]string, len(sectionIDs))
	for i, id := range sectionIDs {
		ids[i] = fmt.Sprint(id)
	}
	return New(CodeCapacityShortfall, fmt.Sprintf("以下教学班没有容量足够的教室: %s", strings.Join(ids, ","))).
		WithField("sections", sectionIDs)
}

// PrerequisiteConflict 创建先修冲突错误
func PrerequisiteConflict(details string) *AppError {
	return New(CodePrerequisiteConflict, fmt.Sprintf("先修课程约束无法满足: %s", details))
}

// EvaluationFailed 创建约束评估失败错误
func EvaluationFailed(constraintID string, cause error) *AppError {
	return Wrap(cause, CodeEvaluationFailed, fmt.Sprintf("约束 '%s' 评估失败", constraintID))
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeValidationFail, "验证失败")
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
		err.Reasons = append(err.Reasons, e.Field+": "+e.Message)
	}
	return err
}
