// Package target 描述被测合约的调用接口：ABI 编码操作、解码不变量检查结果，并提供一个参考合约
package target

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// callCacheSize 单次重放缓存的调用数据条数
const callCacheSize = 256

// 方法名
const (
	MethodF         = "f"
	MethodG         = "g"
	MethodH         = "h"
	MethodInvariant = "invariant_check"
)

// 错误定义
var (
	// ErrMissingMethod ABI 缺少必需的方法
	ErrMissingMethod = errors.New("ABI is missing a required method")
	// ErrBadSignature 方法签名与预期不符
	ErrBadSignature = errors.New("unexpected method signature")
	// ErrUnexpectedOutput 不变量检查返回值无法解码为 bool
	ErrUnexpectedOutput = errors.New("unexpected invariant_check output")
)

// TargetABI 被测合约的默认ABI
const TargetABI = `[
	{"type":"function","name":"f","stateMutability":"nonpayable","inputs":[{"name":"x","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"g","stateMutability":"nonpayable","inputs":[{"name":"y","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"h","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"invariant_check","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

// 期望的方法签名
var expectedSignatures = map[string]string{
	MethodF:         "f(uint256)",
	MethodG:         "g(uint256)",
	MethodH:         "h()",
	MethodInvariant: "invariant_check()",
}

// Binding 被测合约的ABI绑定，创建后只读
type Binding struct {
	abi abi.ABI
}

// NewBinding 使用默认ABI创建绑定
func NewBinding() *Binding {
	b, err := ParseBinding(strings.NewReader(TargetABI))
	if err != nil {
		panic(fmt.Sprintf("embedded target ABI is invalid: %v", err))
	}
	return b
}

// ParseBinding 解析ABI JSON并校验必需方法
func ParseBinding(r io.Reader) (*Binding, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	for name, sig := range expectedSignatures {
		method, ok := parsed.Methods[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingMethod, sig)
		}
		if method.Sig != sig {
			return nil, fmt.Errorf("%w: %s, want %s", ErrBadSignature, method.Sig, sig)
		}
	}

	inv := parsed.Methods[MethodInvariant]
	if len(inv.Outputs) != 1 || inv.Outputs[0].Type.T != abi.BoolTy {
		return nil, fmt.Errorf("%w: invariant_check must return a single bool", ErrBadSignature)
	}

	return &Binding{abi: parsed}, nil
}

// LoadBinding 从文件加载ABI
func LoadBinding(path string) (*Binding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ABI file: %w", err)
	}
	defer file.Close()
	return ParseBinding(file)
}

// Selector 返回方法的4字节选择器
func (b *Binding) Selector(name string) []byte {
	method, ok := b.abi.Methods[name]
	if !ok {
		return nil
	}
	return method.ID
}

// Pack 把操作编码为调用数据
func (b *Binding) Pack(a action.Action) ([]byte, error) {
	switch a.Kind {
	case action.KindF:
		return b.abi.Pack(MethodF, a.Value.ToBig())
	case action.KindG:
		return b.abi.Pack(MethodG, a.Value.ToBig())
	case action.KindH:
		return b.abi.Pack(MethodH)
	default:
		return nil, fmt.Errorf("cannot pack action kind %s", a.Kind)
	}
}

// PackInvariantCheck 编码不变量检查调用
func (b *Binding) PackInvariantCheck() ([]byte, error) {
	return b.abi.Pack(MethodInvariant)
}

// UnpackInvariantCheck 解码不变量检查的返回值
func (b *Binding) UnpackInvariantCheck(output []byte) (bool, error) {
	values, err := b.abi.Unpack(MethodInvariant, output)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedOutput, err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("%w: %d values", ErrUnexpectedOutput, len(values))
	}
	held, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrUnexpectedOutput, values[0])
	}
	return held, nil
}
