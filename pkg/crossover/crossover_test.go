package crossover

import (
	"bytes"
	"testing"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func f(v uint64) action.Action { return action.CallF(uint256.NewInt(v)) }
func g(v uint64) action.Action { return action.CallG(uint256.NewInt(v)) }

var (
	seqA = action.Sequence{f(1), g(2), action.CallH(), f(4)}
	seqB = action.Sequence{g(10), g(11), f(12)}
)

// TestNewEngine 测试默认策略注册顺序
func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	strategies := engine.Strategies()
	require.Len(t, strategies, 5)

	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{Extend, Splice, Insert, Interleave, Reverse}, names)
}

// TestExtendLaw 结果长度等于 len(A)+len(B)
func TestExtendLaw(t *testing.T) {
	engine := NewEngine()
	out := make([]byte, 4096)

	n, err := engine.CombineWith(Extend, action.Encode(seqA), action.Encode(seqB), out, 1)
	require.NoError(t, err)

	result, err := action.DecodeCanonical(out[:n])
	require.NoError(t, err)
	assert.Len(t, result, len(seqA)+len(seqB))
	assert.True(t, result[:len(seqA)].Equal(seqA))
	assert.True(t, result[len(seqA):].Equal(seqB))
}

// TestReverseLaw 结果等于 A 逆序，与 B 无关
func TestReverseLaw(t *testing.T) {
	engine := NewEngine()
	expected := action.Sequence{f(4), action.CallH(), g(2), f(1)}

	for _, other := range [][]byte{action.Encode(seqB), nil, {0xde, 0xad}} {
		out := make([]byte, 4096)
		n, err := engine.CombineWith(Reverse, action.Encode(seqA), other, out, 99)
		require.NoError(t, err)

		result, err := action.DecodeCanonical(out[:n])
		require.NoError(t, err)
		assert.True(t, result.Equal(expected), "got %v", result)
	}
}

// TestSpliceCopiesPrefix 拼接保持 A 的长度并以 B 的前缀覆盖
func TestSpliceCopiesPrefix(t *testing.T) {
	engine := NewEngine()
	for seed := uint32(0); seed < 50; seed++ {
		result, ok, err := engine.CrossSequences(Splice, seqA, seqB, seed)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, result, len(seqA))

		// 找到第一个与 A 相同的位置，之前都来自 B
		idx := 0
		for idx < len(result) && idx < len(seqB) && result[idx] == seqB[idx] && result[idx] != seqA[idx] {
			idx++
		}
		assert.True(t, result[idx:].Equal(seqA[idx:]))
		assert.Less(t, idx, len(seqB))
	}
}

// TestInsertTakesLastOfB 插入 B 的最后一个元素
func TestInsertTakesLastOfB(t *testing.T) {
	engine := NewEngine()
	for seed := uint32(0); seed < 50; seed++ {
		result, ok, err := engine.CrossSequences(Insert, seqA, seqB, seed)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, result, len(seqA)+1)

		found := -1
		for i, a := range result {
			if a == f(12) {
				found = i
			}
		}
		require.GreaterOrEqual(t, found, 0)
		assert.Less(t, found, len(seqA), "insert index must be inside A")

		rest := append(result[:found:found], result[found+1:]...)
		assert.True(t, rest.Equal(seqA))
	}
}

// TestEmptyOperandsNoCandidate splice/insert 在空操作数上不产生候选
func TestEmptyOperandsNoCandidate(t *testing.T) {
	engine := NewEngine()
	empty := action.Encode(nil)

	for _, name := range []string{Splice, Insert} {
		out := bytes.Repeat([]byte{0xcc}, 64)
		n, err := engine.CombineWith(name, action.Encode(seqA), empty, out, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, n, name)

		n, err = engine.CombineWith(name, empty, action.Encode(seqB), out, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, n, name)
		assert.Equal(t, bytes.Repeat([]byte{0xcc}, 64), out, "out must be untouched")
	}
}

// TestInterleaveDropsTail 交织在任一方耗尽时停止
func TestInterleaveDropsTail(t *testing.T) {
	engine := NewEngine()
	for seed := uint32(0); seed < 50; seed++ {
		result, ok, err := engine.CrossSequences(Interleave, seqA, seqB, seed)
		require.NoError(t, err)
		require.True(t, ok)

		var fromA, fromB action.Sequence
		for _, a := range result {
			if a.Kind == action.KindG && a.Value.Uint64() >= 10 || a == f(12) {
				fromB = append(fromB, a)
			} else {
				fromA = append(fromA, a)
			}
		}
		// 两个子序列分别是 A、B 的前缀，且至少一方被取完
		assert.True(t, fromA.Equal(seqA[:len(fromA)]))
		assert.True(t, fromB.Equal(seqB[:len(fromB)]))
		assert.True(t, len(fromA) == len(seqA) || len(fromB) == len(seqB))
	}

	result, ok, err := engine.CrossSequences(Interleave, seqA, nil, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, result)
}

// TestTruncatedOutputStillDecodes 截断输出经回退层仍可解码
func TestTruncatedOutputStillDecodes(t *testing.T) {
	engine := NewEngine()
	out := make([]byte, 13)

	n, err := engine.CombineWith(Extend, action.Encode(seqA), action.Encode(seqB), out, 5)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	_, err = action.DecodeCanonical(out[:n])
	assert.Error(t, err)
	assert.NotPanics(t, func() { action.Decode(out[:n]) })
}

// TestUnknownStrategy 未知策略名返回错误
func TestUnknownStrategy(t *testing.T) {
	engine := NewEngine()
	_, err := engine.CombineWith("shuffle", nil, nil, nil, 0)
	assert.Error(t, err)
	_, _, err = engine.CrossSequences("shuffle", nil, nil, 0)
	assert.Error(t, err)
}

// TestCombineDeterministic 相同输入与种子得到逐字节相同的输出
func TestCombineDeterministic(t *testing.T) {
	engine := NewEngine()
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.SliceOf(rapid.Byte()).Draw(t, "a")
		b := rapid.SliceOf(rapid.Byte()).Draw(t, "b")
		seed := rapid.Uint32().Draw(t, "seed")
		size := rapid.IntRange(0, 512).Draw(t, "size")

		out1 := make([]byte, size)
		out2 := make([]byte, size)
		n1 := engine.Combine(a, b, out1, seed)
		n2 := engine.Combine(a, b, out2, seed)
		if n1 != n2 || !bytes.Equal(out1[:n1], out2[:n2]) {
			t.Fatalf("non-deterministic crossover for seed %d", seed)
		}
		if n1 > size {
			t.Fatalf("wrote %d bytes into %d", n1, size)
		}
	})
}

// TestCombineReachesAllStrategies 不同种子覆盖全部五种策略
func TestCombineReachesAllStrategies(t *testing.T) {
	engine := NewEngine()
	a, b := action.Encode(seqA), action.Encode(seqB)

	reversed := action.Encode(action.Sequence{f(4), action.CallH(), g(2), f(1)})
	extended := action.Encode(append(seqA.Clone(), seqB...))

	var sawReverse, sawExtend bool
	for seed := uint32(0); seed < 200; seed++ {
		out := make([]byte, 4096)
		n := engine.Combine(a, b, out, seed)
		sawReverse = sawReverse || bytes.Equal(out[:n], reversed)
		sawExtend = sawExtend || bytes.Equal(out[:n], extended)
	}
	assert.True(t, sawReverse)
	assert.True(t, sawExtend)
}

func FuzzCombine(f *testing.F) {
	f.Add(action.Encode(seqA), action.Encode(seqB), uint32(0), 128)
	f.Add([]byte{}, []byte{0x01}, uint32(7), 0)
	engine := NewEngine()
	f.Fuzz(func(t *testing.T, a, b []byte, seed uint32, size int) {
		if size < 0 || size > 1<<16 {
			return
		}
		out := make([]byte, size)
		n := engine.Combine(a, b, out, seed)
		require.LessOrEqual(t, n, size)
		action.Decode(out[:n])
	})
}
