// Package mutation 实现结构感知的变异算子
package mutation

import (
	"fmt"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/fuzzrand"
)

// Strategy 变异策略接口
type Strategy interface {
	// Name 策略名称
	Name() string

	// Mutate 对非空序列做一次变异并返回新序列
	Mutate(seq action.Sequence, rnd *fuzzrand.Rand) action.Sequence
}

// ByteMutator 通用字节级变异器（解码得到空序列时使用）
type ByteMutator interface {
	// MutateBytes 原地变异 data[:size]，结果不超过 maxSize，返回新长度
	MutateBytes(data []byte, size, maxSize int, seed uint32) int
}

// Config 变异引擎配置
type Config struct {
	MaxRepeat     int    // repeat 策略副本数上界（不含）
	EnableNudge   bool   // 是否启用 nudge 策略
	NudgeMaxDelta uint64 // nudge 的最大增减量（含）
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxRepeat:     30,
		EnableNudge:   true,
		NudgeMaxDelta: 100,
	}
}

// Engine 变异引擎
type Engine struct {
	strategies []Strategy
	fallback   ByteMutator
}

// NewEngine 创建变异引擎
// fallback 为 nil 时使用 RandomByteMutator
func NewEngine(cfg Config, fallback ByteMutator) (*Engine, error) {
	if cfg.MaxRepeat <= 0 {
		return nil, fmt.Errorf("max repeat must be positive, got %d", cfg.MaxRepeat)
	}
	if fallback == nil {
		fallback = RandomByteMutator{}
	}

	strategies := []Strategy{
		removeOneStrategy{},
		repeatStrategy{maxRepeat: cfg.MaxRepeat},
		extremeStrategy{high: false},
		extremeStrategy{high: true},
	}
	if cfg.EnableNudge {
		strategies = append(strategies, nudgeStrategy{maxDelta: cfg.NudgeMaxDelta})
	}

	return &Engine{
		strategies: strategies,
		fallback:   fallback,
	}, nil
}

// Strategies 返回已注册策略的副本
func (e *Engine) Strategies() []Strategy {
	result := make([]Strategy, len(e.strategies))
	copy(result, e.strategies)
	return result
}

// Mutate 变异入口：原地改写 data，返回新长度
func (e *Engine) Mutate(data []byte, size, maxSize int, seed uint32) int {
	size = clampSize(size, len(data))
	seq := action.Decode(data[:size])
	if len(seq) == 0 {
		// 空序列上没有结构化变异可做
		return e.fallback.MutateBytes(data, size, maxSize, seed)
	}

	rnd := fuzzrand.New(seed)
	strategy := e.strategies[rnd.Intn(len(e.strategies))]
	return writeBack(data, maxSize, strategy.Mutate(seq, rnd))
}

// MutateWith 使用指定名称的策略变异
func (e *Engine) MutateWith(name string, data []byte, size, maxSize int, seed uint32) (int, error) {
	for _, s := range e.strategies {
		if s.Name() != name {
			continue
		}
		size = clampSize(size, len(data))
		seq := action.Decode(data[:size])
		if len(seq) == 0 {
			return e.fallback.MutateBytes(data, size, maxSize, seed), nil
		}
		return writeBack(data, maxSize, s.Mutate(seq, fuzzrand.New(seed))), nil
	}
	return 0, fmt.Errorf("unknown mutation strategy %q", name)
}

// MutateSequence 在已解码的序列上执行指定策略
func (e *Engine) MutateSequence(name string, seq action.Sequence, seed uint32) (action.Sequence, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("cannot apply %q to an empty sequence", name)
	}
	for _, s := range e.strategies {
		if s.Name() == name {
			return s.Mutate(seq.Clone(), fuzzrand.New(seed)), nil
		}
	}
	return nil, fmt.Errorf("unknown mutation strategy %q", name)
}

// writeBack 编码并写回 data，长度不超过 maxSize 和缓冲区容量
func writeBack(data []byte, maxSize int, seq action.Sequence) int {
	encoded := action.Encode(seq)
	n := min(clampSize(maxSize, len(data)), len(encoded))
	copy(data[:n], encoded[:n])
	return n
}

func clampSize(size, limit int) int {
	if size < 0 {
		return 0
	}
	if size > limit {
		return limit
	}
	return size
}
