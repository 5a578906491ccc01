package domain

import "errors"

// 这些错误由 repository 在写入事务内的兜底校验返回
// 引擎负责把它们映射为对外暴露的错误类型
var (
	ErrScheduleConflict = errors.New("用户在该时间段内已有冲突的班次分配")
	ErrShiftFull        = errors.New("班次已达到最大允许人数")
	ErrAlreadyAssigned  = errors.New("用户已被分配到该班次")
)
