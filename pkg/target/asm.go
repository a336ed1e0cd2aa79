package target

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
)

// assembler 极简EVM汇编器，支持标签（以 PUSH2 占位，最后回填）
type assembler struct {
	code   []byte
	labels map[string]int
	fixups map[int]string
}

func newAssembler() *assembler {
	return &assembler{
		labels: make(map[string]int),
		fixups: make(map[int]string),
	}
}

func (a *assembler) op(ops ...vm.OpCode) *assembler {
	for _, op := range ops {
		a.code = append(a.code, byte(op))
	}
	return a
}

// push 以最短的 PUSHn 压入大端数据
func (a *assembler) push(data []byte) *assembler {
	for len(data) > 1 && data[0] == 0 {
		data = data[1:]
	}
	if len(data) == 0 {
		data = []byte{0}
	}
	a.code = append(a.code, byte(vm.PUSH1)+byte(len(data)-1))
	a.code = append(a.code, data...)
	return a
}

func (a *assembler) pushUint(v uint64) *assembler {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(v >> (8 * i))
	}
	return a.push(buf[:])
}

// pushLabel 压入标签地址，占位两个字节
func (a *assembler) pushLabel(name string) *assembler {
	a.code = append(a.code, byte(vm.PUSH2))
	a.fixups[len(a.code)] = name
	a.code = append(a.code, 0, 0)
	return a
}

// label 在当前位置定义标签并放置 JUMPDEST
func (a *assembler) label(name string) *assembler {
	a.labels[name] = len(a.code)
	return a.op(vm.JUMPDEST)
}

// jump 无条件跳转到标签
func (a *assembler) jump(name string) *assembler {
	return a.pushLabel(name).op(vm.JUMP)
}

// jumpIf 栈顶条件非零时跳转到标签
func (a *assembler) jumpIf(name string) *assembler {
	return a.pushLabel(name).op(vm.JUMPI)
}

func (a *assembler) bytes() ([]byte, error) {
	out := append([]byte{}, a.code...)
	for pos, name := range a.fixups {
		dest, ok := a.labels[name]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", name)
		}
		if dest > 0xffff {
			return nil, fmt.Errorf("label %q out of PUSH2 range", name)
		}
		out[pos] = byte(dest >> 8)
		out[pos+1] = byte(dest)
	}
	return out, nil
}

// creationCode 用标准的 CODECOPY/RETURN 前导包装运行时代码
func creationCode(runtime []byte) []byte {
	const prefixLen = 13
	n := len(runtime)
	prefix := []byte{
		byte(vm.PUSH2), byte(n >> 8), byte(n),
		byte(vm.DUP1),
		byte(vm.PUSH2), 0, prefixLen,
		byte(vm.PUSH1), 0,
		byte(vm.CODECOPY),
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}
	return append(prefix, runtime...)
}
