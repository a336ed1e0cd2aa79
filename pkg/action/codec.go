package action

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// 错误定义
var (
	// ErrShortBuffer 缓冲区不足以容纳头部
	ErrShortBuffer = errors.New("buffer too short for sequence header")
	// ErrLengthOverflow 声明的元素个数超过剩余字节可能容纳的数量
	ErrLengthOverflow = errors.New("declared length exceeds buffer")
	// ErrUnknownTag 未知的操作判别值
	ErrUnknownTag = errors.New("unknown action tag")
	// ErrTruncated 元素数据被截断
	ErrTruncated = errors.New("truncated action payload")
	// ErrTrailingBytes 解码后仍有多余字节
	ErrTrailingBytes = errors.New("trailing bytes after sequence")
)

const (
	headerSize  = 8  // u64 元素个数
	tagSize     = 4  // u32 判别值
	payloadSize = 32 // uint256 大端
)

// Tier 标识由哪一层解码器产生了序列
type Tier int

const (
	TierCanonical    Tier = iota + 1 // 规范二进制格式
	TierUnstructured                 // 非结构化字节回退
)

// String 返回解码层的字符串表示
func (t Tier) String() string {
	switch t {
	case TierCanonical:
		return "canonical"
	case TierUnstructured:
		return "unstructured"
	default:
		return "unknown"
	}
}

// Encode 将序列写成规范的紧凑二进制格式
//
//	u64 LE 元素个数
//	每个元素: u32 LE 判别值，F/G 之后跟 32 字节大端参数
func Encode(seq Sequence) []byte {
	size := headerSize
	for _, a := range seq {
		size += tagSize
		if a.Kind.HasPayload() {
			size += payloadSize
		}
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf, uint64(len(seq)))
	off := headerSize
	for _, a := range seq {
		binary.LittleEndian.PutUint32(buf[off:], uint32(a.Kind))
		off += tagSize
		if a.Kind.HasPayload() {
			a.Value.PutUint256(buf[off : off+payloadSize])
			off += payloadSize
		}
	}
	return buf
}

// DecodeCanonical 按规范格式解码，要求恰好消费整个缓冲区
func DecodeCanonical(data []byte) (Sequence, error) {
	if len(data) < headerSize {
		return nil, ErrShortBuffer
	}
	count := binary.LittleEndian.Uint64(data)
	rest := data[headerSize:]
	// 每个元素至少占用一个判别值
	if count > uint64(len(rest)/tagSize) {
		return nil, fmt.Errorf("%w: %d elements in %d bytes", ErrLengthOverflow, count, len(rest))
	}

	seq := make(Sequence, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < tagSize {
			return nil, fmt.Errorf("%w: element %d", ErrTruncated, i)
		}
		kind := Kind(binary.LittleEndian.Uint32(rest))
		rest = rest[tagSize:]
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %d at element %d", ErrUnknownTag, uint32(kind), i)
		}

		a := Action{Kind: kind}
		if kind.HasPayload() {
			if len(rest) < payloadSize {
				return nil, fmt.Errorf("%w: element %d", ErrTruncated, i)
			}
			a.Value.SetBytes32(rest[:payloadSize])
			rest = rest[payloadSize:]
		}
		seq = append(seq, a)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, len(rest))
	}
	return seq, nil
}

// Decode 两层解码：优先规范格式，失败时回退到非结构化解码
// 对任意输入都返回某个合法序列
func Decode(data []byte) Sequence {
	seq, _ := DecodeWithTier(data)
	return seq
}

// DecodeWithTier 与 Decode 相同，同时返回实际生效的解码层
func DecodeWithTier(data []byte) (Sequence, Tier) {
	if seq, err := DecodeCanonical(data); err == nil {
		return seq, TierCanonical
	}
	return DecodeUnstructured(data), TierUnstructured
}
