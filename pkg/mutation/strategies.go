package mutation

import (
	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/fuzzrand"
	"github.com/holiman/uint256"
)

// 策略名称
const (
	RemoveOne   = "remove-one"
	Repeat      = "repeat"
	LowExtreme  = "low-extreme"
	HighExtreme = "high-extreme"
	Nudge       = "nudge"
)

// removeOneStrategy 删除随机位置的一个元素
type removeOneStrategy struct{}

func (removeOneStrategy) Name() string { return RemoveOne }

func (removeOneStrategy) Mutate(seq action.Sequence, rnd *fuzzrand.Rand) action.Sequence {
	idx := rnd.Intn(len(seq))
	return append(seq[:idx:idx], seq[idx+1:]...)
}

// repeatStrategy 用 N 份自身拼接替换序列，N 取自 [0, maxRepeat)
// N=0 时序列被清空
type repeatStrategy struct {
	maxRepeat int
}

func (repeatStrategy) Name() string { return Repeat }

func (s repeatStrategy) Mutate(seq action.Sequence, rnd *fuzzrand.Rand) action.Sequence {
	n := rnd.Intn(s.maxRepeat)
	result := make(action.Sequence, 0, n*len(seq))
	for i := 0; i < n; i++ {
		result = append(result, seq...)
	}
	return result
}

// extremeStrategy 把随机元素替换为参数为零或最大值的 F/G
type extremeStrategy struct {
	high bool
}

func (s extremeStrategy) Name() string {
	if s.high {
		return HighExtreme
	}
	return LowExtreme
}

func (s extremeStrategy) Mutate(seq action.Sequence, rnd *fuzzrand.Rand) action.Sequence {
	idx := rnd.Intn(len(seq))
	value := new(uint256.Int)
	if s.high {
		value = action.MaxValue()
	}
	if rnd.Coin() {
		seq[idx] = action.CallG(value)
	} else {
		seq[idx] = action.CallF(value)
	}
	return seq
}

// nudgeStrategy 对随机元素的参数做回绕加减
// H 没有参数，保持不变
type nudgeStrategy struct {
	maxDelta uint64
}

func (nudgeStrategy) Name() string { return Nudge }

func (s nudgeStrategy) Mutate(seq action.Sequence, rnd *fuzzrand.Rand) action.Sequence {
	idx := rnd.Intn(len(seq))
	add := rnd.Coin()
	delta := uint256.NewInt(rnd.Uint64Max(s.maxDelta))

	target := &seq[idx]
	if !target.Kind.HasPayload() {
		return seq
	}
	if add {
		target.Value.Add(&target.Value, delta)
	} else {
		target.Value.Sub(&target.Value, delta)
	}
	return seq
}
