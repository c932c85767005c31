package storage

import (
	"fmt"
	"strconv"
)

// ParseID 将路由参数转换为 uint 主键。0 不是合法 ID。
func ParseID(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if val == 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return uint(val), nil
}
