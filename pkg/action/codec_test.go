package action

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// actionGen 生成任意合法操作
func actionGen() *rapid.Generator[Action] {
	return rapid.Custom(func(t *rapid.T) Action {
		kind := Kind(rapid.IntRange(0, kindCount-1).Draw(t, "kind"))
		a := Action{Kind: kind}
		if kind.HasPayload() {
			words := rapid.SliceOfN(rapid.Uint64(), 4, 4).Draw(t, "words")
			a.Value = uint256.Int{words[0], words[1], words[2], words[3]}
		}
		return a
	})
}

// TestEncodeLayout 测试规范格式的字节布局
func TestEncodeLayout(t *testing.T) {
	seq := Sequence{CallF(uint256.NewInt(5)), CallH()}
	data := Encode(seq)

	require.Len(t, data, 8+4+32+4)
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[:8]))
	assert.Equal(t, uint32(KindF), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, byte(5), data[12+31])
	assert.Equal(t, uint32(KindH), binary.LittleEndian.Uint32(data[44:48]))
}

// TestEncodeEmpty 空序列只有头部
func TestEncodeEmpty(t *testing.T) {
	data := Encode(nil)
	assert.Equal(t, make([]byte, 8), data)

	seq, err := DecodeCanonical(data)
	require.NoError(t, err)
	assert.Empty(t, seq)
}

// TestRoundTrip 规范编码经第一层解码必须得到原序列
func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seq := Sequence(rapid.SliceOf(actionGen()).Draw(t, "seq"))

		decoded, err := DecodeCanonical(Encode(seq))
		if err != nil {
			t.Fatalf("canonical decode failed: %v", err)
		}
		if !decoded.Equal(seq) {
			t.Fatalf("round trip mismatch: %v != %v", decoded, seq)
		}

		viaDecode, tier := DecodeWithTier(Encode(seq))
		if tier != TierCanonical || !viaDecode.Equal(seq) {
			t.Fatalf("Decode used %s tier", tier)
		}
	})
}

// TestDecodeTotal 回退层对任意字节都不会panic
func TestDecodeTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		seq := Decode(data)
		for _, a := range seq {
			if !a.Kind.Valid() {
				t.Fatalf("invalid kind %d", a.Kind)
			}
			if !a.Kind.HasPayload() && !a.Value.IsZero() {
				t.Fatalf("H carries payload %s", a.Value.Hex())
			}
		}
	})
}

// TestDecodeCanonicalRejects 测试第一层的拒绝条件
func TestDecodeCanonicalRejects(t *testing.T) {
	valid := Encode(Sequence{CallG(uint256.NewInt(7)), CallH()})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := DecodeCanonical([]byte{1, 0, 0})
		assert.ErrorIs(t, err, ErrShortBuffer)
	})

	t.Run("HugeCount", func(t *testing.T) {
		data := make([]byte, 12)
		binary.LittleEndian.PutUint64(data, 1<<62)
		_, err := DecodeCanonical(data)
		assert.ErrorIs(t, err, ErrLengthOverflow)
	})

	t.Run("UnknownTag", func(t *testing.T) {
		data := append([]byte{}, valid...)
		binary.LittleEndian.PutUint32(data[8:], 9)
		_, err := DecodeCanonical(data)
		assert.ErrorIs(t, err, ErrUnknownTag)
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		_, err := DecodeCanonical(valid[:20])
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		data := append(append([]byte{}, valid...), 0xaa)
		_, err := DecodeCanonical(data)
		assert.ErrorIs(t, err, ErrTrailingBytes)
	})
}

// TestDecodeUnstructured 测试回退层的解释规则
func TestDecodeUnstructured(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		seq, tier := DecodeWithTier(nil)
		assert.Equal(t, TierUnstructured, tier)
		assert.Empty(t, seq)
	})

	t.Run("StopByte", func(t *testing.T) {
		assert.Empty(t, DecodeUnstructured([]byte{0x02, 0xff, 0xff}))
	})

	t.Run("SingleH", func(t *testing.T) {
		// 继续 + 判别值 0xffffffff -> H，之后字节耗尽
		seq := DecodeUnstructured([]byte{0x01, 0xff, 0xff, 0xff, 0xff})
		require.Len(t, seq, 1)
		assert.Equal(t, CallH(), seq[0])
	})

	t.Run("ZeroFilledPayload", func(t *testing.T) {
		// 判别值为0 -> F，参数只给出一个字节
		seq := DecodeUnstructured([]byte{0x01, 0, 0, 0, 0, 0x80})
		require.Len(t, seq, 1)
		assert.Equal(t, KindF, seq[0].Kind)
		expected := new(uint256.Int).Lsh(uint256.NewInt(0x80), 248)
		assert.Equal(t, *expected, seq[0].Value)
	})

	t.Run("TruncatedCanonical", func(t *testing.T) {
		data := Encode(Sequence{CallF(MaxValue()), CallG(MaxValue())})
		seq, tier := DecodeWithTier(data[:len(data)-3])
		assert.Equal(t, TierUnstructured, tier)
		assert.NotNil(t, seq)
	})
}

// TestActionString 测试可读形式
func TestActionString(t *testing.T) {
	assert.Equal(t, "F(5)", CallF(uint256.NewInt(5)).String())
	assert.Equal(t, "H", CallH().String())
	assert.Equal(t, "G(0x"+strings.Repeat("f", 64)+")", CallG(MaxValue()).String())
	assert.Equal(t, "[F(0) H]", Sequence{CallF(new(uint256.Int)), CallH()}.String())
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add(Encode(Sequence{CallF(uint256.NewInt(1)), CallH()}))
	f.Add([]byte{0x01, 0x00, 0x00, 0x00, 0x80})
	f.Fuzz(func(t *testing.T, data []byte) {
		seq := Decode(data)
		again, err := DecodeCanonical(Encode(seq))
		require.NoError(t, err)
		require.True(t, again.Equal(seq))
	})
}
