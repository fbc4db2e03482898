package repository

import "errors"

// ErrNotFound 更新目标不存在
var ErrNotFound = errors.New("record not found")
