package action

import "encoding/binary"

// unstructured 按需从原始字节中消费数据，字节耗尽后一律读出零
type unstructured struct {
	data []byte
}

func (u *unstructured) exhausted() bool {
	return len(u.data) == 0
}

// fill 尽可能填充 buf，缺失部分保持为零
func (u *unstructured) fill(buf []byte) {
	n := copy(buf, u.data)
	u.data = u.data[n:]
}

func (u *unstructured) readByte() byte {
	var b [1]byte
	u.fill(b[:])
	return b[0]
}

func (u *unstructured) readUint32() uint32 {
	var b [4]byte
	u.fill(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// kind 将 u32 均匀映射到封闭的判别值集合
func (u *unstructured) kind() Kind {
	return Kind((uint64(u.readUint32()) * kindCount) >> 32)
}

// DecodeUnstructured 把任意字节解释为操作序列
// 每个元素前有一个"继续"字节（最低位为1才继续），随后是判别值和可选的32字节参数。
// 每轮至少消费一个字节，因此对任何输入都会终止；空输入得到空序列。
func DecodeUnstructured(data []byte) Sequence {
	u := &unstructured{data: data}
	seq := Sequence{}
	for !u.exhausted() {
		if u.readByte()&1 != 1 {
			break
		}
		a := Action{Kind: u.kind()}
		if a.Kind.HasPayload() {
			var payload [payloadSize]byte
			u.fill(payload[:])
			a.Value.SetBytes32(payload[:])
		}
		seq = append(seq, a)
	}
	return seq
}
