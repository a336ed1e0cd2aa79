// Package action 定义被测合约的操作词汇表以及字节缓冲区与操作序列之间的编解码
package action

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Kind 操作类型判别值
type Kind uint32

const (
	KindF Kind = iota // 调用 f(uint256)
	KindG             // 调用 g(uint256)
	KindH             // 调用 h()

	kindCount = 3
)

// String 返回操作类型的字符串表示
func (k Kind) String() string {
	switch k {
	case KindF:
		return "F"
	case KindG:
		return "G"
	case KindH:
		return "H"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// HasPayload 该类型是否携带uint256参数
func (k Kind) HasPayload() bool {
	return k == KindF || k == KindG
}

// Valid 判别值是否属于封闭集合
func (k Kind) Valid() bool {
	return k < kindCount
}

// Action 针对被测合约的一次操作
// H 不携带参数，其 Value 恒为零
type Action struct {
	Kind  Kind
	Value uint256.Int
}

// CallF 构造 F(x)
func CallF(x *uint256.Int) Action {
	return Action{Kind: KindF, Value: *x}
}

// CallG 构造 G(y)
func CallG(y *uint256.Int) Action {
	return Action{Kind: KindG, Value: *y}
}

// CallH 构造 H
func CallH() Action {
	return Action{Kind: KindH}
}

// MaxValue 返回 2^256-1
func MaxValue() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// String 返回操作的可读形式，如 F(5)、G(0xff..ff)、H
func (a Action) String() string {
	if !a.Kind.HasPayload() {
		return a.Kind.String()
	}
	if a.Value.IsUint64() {
		return fmt.Sprintf("%s(%d)", a.Kind, a.Value.Uint64())
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Value.Hex())
}

// Sequence 有序操作序列，顺序即重放顺序
type Sequence []Action

// Clone 返回序列的独立副本
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Equal 逐元素比较两个序列
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// String 返回形如 [F(5) H G(7)] 的表示
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
