// Package crossover 实现结构感知的交叉算子：解码两个语料缓冲区，按种子选择重组策略，再编码写回
package crossover

import (
	"fmt"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/fuzzrand"
)

// Strategy 交叉策略接口
type Strategy interface {
	// Name 策略名称
	Name() string

	// Cross 组合两个序列，ok=false 表示没有候选结果
	Cross(a, b action.Sequence, rnd *fuzzrand.Rand) (result action.Sequence, ok bool)
}

// Engine 交叉引擎
// 策略按注册顺序编号，选择时在全部策略中均匀抽取
type Engine struct {
	strategies []Strategy
}

// NewEngine 创建带有默认五种策略的交叉引擎
func NewEngine() *Engine {
	return &Engine{
		strategies: []Strategy{
			extendStrategy{},
			spliceStrategy{},
			insertStrategy{},
			interleaveStrategy{},
			reverseStrategy{},
		},
	}
}

// Strategies 返回已注册策略的副本
func (e *Engine) Strategies() []Strategy {
	result := make([]Strategy, len(e.strategies))
	copy(result, e.strategies)
	return result
}

// Combine 交叉入口：返回写入 out 的字节数
// 输出比编码短时静默截断，截断后的字节仍能被回退层解码
func (e *Engine) Combine(a, b, out []byte, seed uint32) int {
	rnd := fuzzrand.New(seed)
	strategy := e.strategies[rnd.Intn(len(e.strategies))]
	return e.apply(strategy, a, b, out, rnd)
}

// CombineWith 使用指定名称的策略执行交叉
func (e *Engine) CombineWith(name string, a, b, out []byte, seed uint32) (int, error) {
	for _, s := range e.strategies {
		if s.Name() == name {
			return e.apply(s, a, b, out, fuzzrand.New(seed)), nil
		}
	}
	return 0, fmt.Errorf("unknown crossover strategy %q", name)
}

// CrossSequences 在已解码的序列上执行指定策略，不做编码
func (e *Engine) CrossSequences(name string, a, b action.Sequence, seed uint32) (action.Sequence, bool, error) {
	for _, s := range e.strategies {
		if s.Name() == name {
			result, ok := s.Cross(a.Clone(), b.Clone(), fuzzrand.New(seed))
			return result, ok, nil
		}
	}
	return nil, false, fmt.Errorf("unknown crossover strategy %q", name)
}

func (e *Engine) apply(strategy Strategy, a, b, out []byte, rnd *fuzzrand.Rand) int {
	seqA := action.Decode(a)
	seqB := action.Decode(b)

	result, ok := strategy.Cross(seqA, seqB, rnd)
	if !ok {
		return 0
	}

	encoded := action.Encode(result)
	return copy(out, encoded)
}
