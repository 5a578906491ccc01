package scheduling

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindNotFound 表示请求的资源不存在
	KindNotFound ErrorKind = iota
	// KindInvalidInput 表示请求本身不合法
	KindInvalidInput
	// KindConflict 表示请求和已有的排班数据冲突
	KindConflict
)

// Error 是引擎对外暴露的错误类型，handler 根据 Kind 决定响应方式
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidInputf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误的分类，不是引擎错误时返回 false
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
