package crossover

import (
	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/fuzzrand"
)

// 策略名称
const (
	Extend     = "extend"
	Splice     = "splice"
	Insert     = "insert"
	Interleave = "interleave"
	Reverse    = "reverse"
)

// extendStrategy A 之后接上全部 B
type extendStrategy struct{}

func (extendStrategy) Name() string { return Extend }

func (extendStrategy) Cross(a, b action.Sequence, _ *fuzzrand.Rand) (action.Sequence, bool) {
	result := make(action.Sequence, 0, len(a)+len(b))
	result = append(result, a...)
	result = append(result, b...)
	return result, true
}

// spliceStrategy 用 B 的前缀覆盖 A 的等长前缀
type spliceStrategy struct{}

func (spliceStrategy) Name() string { return Splice }

func (spliceStrategy) Cross(a, b action.Sequence, rnd *fuzzrand.Rand) (action.Sequence, bool) {
	if len(a) == 0 || len(b) == 0 {
		return nil, false
	}
	idx := min(rnd.Intn(len(a)), rnd.Intn(len(b)))
	result := a.Clone()
	copy(result[:idx], b[:idx])
	return result, true
}

// insertStrategy 取出 B 的最后一个元素插入 A 的随机位置
type insertStrategy struct{}

func (insertStrategy) Name() string { return Insert }

func (insertStrategy) Cross(a, b action.Sequence, rnd *fuzzrand.Rand) (action.Sequence, bool) {
	if len(a) == 0 || len(b) == 0 {
		return nil, false
	}
	idx := rnd.Intn(len(a))
	last := b[len(b)-1]

	result := make(action.Sequence, 0, len(a)+1)
	result = append(result, a[:idx]...)
	result = append(result, last)
	result = append(result, a[idx:]...)
	return result, true
}

// interleaveStrategy 两个游标同步前进，每步抛硬币决定取 A 还是 B
// 任一方耗尽即停止，较长一方剩余的尾部被丢弃
type interleaveStrategy struct{}

func (interleaveStrategy) Name() string { return Interleave }

func (interleaveStrategy) Cross(a, b action.Sequence, rnd *fuzzrand.Rand) (action.Sequence, bool) {
	result := make(action.Sequence, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if rnd.Coin() {
			result = append(result, a[i])
			i++
		} else {
			result = append(result, b[j])
			j++
		}
	}
	return result, true
}

// reverseStrategy A 逆序，不使用 B
type reverseStrategy struct{}

func (reverseStrategy) Name() string { return Reverse }

func (reverseStrategy) Cross(a, _ action.Sequence, _ *fuzzrand.Rand) (action.Sequence, bool) {
	result := make(action.Sequence, len(a))
	for i, x := range a {
		result[len(a)-1-i] = x
	}
	return result, true
}
