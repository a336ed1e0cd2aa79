package target

import (
	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/holiman/uint256"
)

// Model 参考合约的Go模型，用于预测一次重放的结果
type Model struct {
	opts   Options
	x, y   uint256.Int
	calls  uint64
	broken bool
}

// NewModel 创建处于部署后初始状态的模型
func NewModel(opts Options) *Model {
	return &Model{opts: opts}
}

// Apply 执行一个操作，返回调用是否成功
func (m *Model) Apply(a action.Action) bool {
	switch a.Kind {
	case action.KindF:
		m.x = a.Value
	case action.KindG:
		if a.Value == *action.MaxValue() {
			return false
		}
		m.y = a.Value
	case action.KindH:
		if !m.opts.DisableEqualityBug && m.x == m.y && !m.x.IsZero() {
			m.broken = true
		}
	default:
		return false
	}
	m.calls++
	return true
}

// Invariant 返回 invariant_check 的结果
func (m *Model) Invariant() bool {
	if m.broken {
		return false
	}
	return m.opts.CallLimit == 0 || m.calls < m.opts.CallLimit
}

// Calls 成功调用次数
func (m *Model) Calls() uint64 {
	return m.calls
}

// FirstViolation 重放序列，返回第一个不变量失败的步骤（从0开始），没有则返回 -1
func FirstViolation(opts Options, seq action.Sequence) int {
	m := NewModel(opts)
	for i, a := range seq {
		m.Apply(a)
		if !m.Invariant() {
			return i
		}
	}
	return -1
}
