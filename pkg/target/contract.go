package target

import (
	"github.com/ethereum/go-ethereum/core/vm"
)

// 参考合约的存储布局
const (
	SlotX      = 0 // f 写入的值
	SlotY      = 1 // g 写入的值
	SlotCalls  = 2 // 成功的操作调用次数
	SlotBroken = 3 // h 触发相等缺陷后置 1
)

// Options 参考合约的构造选项
type Options struct {
	// CallLimit 非零时，成功调用次数达到该值后不变量失败
	CallLimit uint64
	// DisableEqualityBug 关闭 h 中的相等缺陷，合约在未设置 CallLimit 时永远安全
	DisableEqualityBug bool
}

// Vulnerable 带相等缺陷的参考合约配置
func Vulnerable() Options {
	return Options{}
}

// Safe 不变量永远成立的参考合约配置
func Safe() Options {
	return Options{DisableEqualityBug: true}
}

// WithCallLimit 在第 k 次成功调用后不变量失败的参考合约配置
func WithCallLimit(k uint64) Options {
	return Options{CallLimit: k, DisableEqualityBug: true}
}

// RuntimeCode 生成参考合约的运行时字节码
func RuntimeCode(opts Options) ([]byte, error) {
	b := NewBinding()
	a := newAssembler()

	// 取选择器并分发
	a.push([]byte{0}).op(vm.CALLDATALOAD).push([]byte{0xe0}).op(vm.SHR)
	for _, route := range []struct{ method, label string }{
		{MethodF, "f"},
		{MethodG, "g"},
		{MethodH, "h"},
		{MethodInvariant, "check"},
	} {
		a.op(vm.DUP1).push(b.Selector(route.method)).op(vm.EQ).jumpIf(route.label)
	}
	a.jump("revert")

	// f(x): slot0 = x
	a.label("f")
	a.pushUint(4).op(vm.CALLDATALOAD).pushUint(SlotX).op(vm.SSTORE)
	a.jump("bump")

	// g(y): y == MAX 时 revert，否则 slot1 = y
	a.label("g")
	a.pushUint(4).op(vm.CALLDATALOAD, vm.NOT, vm.ISZERO).jumpIf("revert")
	a.pushUint(4).op(vm.CALLDATALOAD).pushUint(SlotY).op(vm.SSTORE)
	a.jump("bump")

	// h(): slot0 == slot1 != 0 时置位 slot3
	a.label("h")
	if !opts.DisableEqualityBug {
		a.pushUint(SlotX).op(vm.SLOAD).pushUint(SlotY).op(vm.SLOAD, vm.EQ)
		a.pushUint(SlotX).op(vm.SLOAD, vm.ISZERO, vm.ISZERO, vm.AND, vm.ISZERO).jumpIf("bump")
		a.pushUint(1).pushUint(SlotBroken).op(vm.SSTORE)
	}
	a.jump("bump")

	a.label("bump")
	a.pushUint(SlotCalls).op(vm.SLOAD).pushUint(1).op(vm.ADD).pushUint(SlotCalls).op(vm.SSTORE, vm.STOP)

	a.label("revert")
	a.pushUint(0).op(vm.DUP1, vm.REVERT)

	// invariant_check(): !slot3 && (limit == 0 || slot2 < limit)
	a.label("check")
	if opts.DisableEqualityBug {
		a.pushUint(1)
	} else {
		a.pushUint(SlotBroken).op(vm.SLOAD, vm.ISZERO)
	}
	if opts.CallLimit > 0 {
		a.pushUint(opts.CallLimit).pushUint(SlotCalls).op(vm.SLOAD, vm.LT, vm.AND)
	}
	a.pushUint(0).op(vm.MSTORE).pushUint(32).pushUint(0).op(vm.RETURN)

	return a.bytes()
}

// Bytecode 生成参考合约的部署字节码
func Bytecode(opts Options) ([]byte, error) {
	runtime, err := RuntimeCode(opts)
	if err != nil {
		return nil, err
	}
	return creationCode(runtime), nil
}

// MustBytecode 同 Bytecode，出错时 panic
func MustBytecode(opts Options) []byte {
	code, err := Bytecode(opts)
	if err != nil {
		panic(err)
	}
	return code
}
