package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Quantity 可以从多种 YAML 格式解析的 uint64
// 支持的格式:
// - 数字: 30000000
// - 十六进制字符串: "0x1c9c380"
// - 十进制字符串: "30000000"
type Quantity uint64

// Uint64 返回 uint64 值
func (q Quantity) Uint64() uint64 {
	return uint64(q)
}

// String 返回十六进制字符串表示
func (q Quantity) String() string {
	return fmt.Sprintf("0x%x", uint64(q))
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
func (q *Quantity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var num uint64
	if err := unmarshal(&num); err == nil {
		*q = Quantity(num)
		return nil
	}

	var str string
	if err := unmarshal(&str); err != nil {
		return fmt.Errorf("quantity is neither a number nor a string: %v", err)
	}
	val, err := ParseQuantity(str)
	if err != nil {
		return err
	}
	*q = val
	return nil
}

// ParseQuantity 解析十进制或 0x 前缀的十六进制字符串
func ParseQuantity(str string) (Quantity, error) {
	str = strings.TrimSpace(str)
	if str == "" || str == "0x" {
		return 0, nil
	}

	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		// 使用 big.Int 检查是否超出 uint64 范围
		value, ok := new(big.Int).SetString(str[2:], 16)
		if !ok {
			return 0, fmt.Errorf("invalid hex quantity: %s", str)
		}
		if !value.IsUint64() {
			return 0, fmt.Errorf("hex quantity out of uint64 range: %s", str)
		}
		return Quantity(value.Uint64()), nil
	}

	val, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %s: %v", str, err)
	}
	return Quantity(val), nil
}
