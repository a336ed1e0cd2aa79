// Package oracle 在全新沙箱中重放操作序列，并在每一步之后检查不变量
package oracle

import (
	"fmt"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/ethereum/go-ethereum/common"
)

// State 一次重放的状态
type State int

const (
	StateUninitialized      State = iota // 尚未部署
	StateDeployed                        // 合约已部署
	StateContinuing                      // 至少一步不变量成立，继续重放
	StateFault                           // 引擎错误（终态）
	StateInvariantViolation              // 不变量失败（终态）
	StateCompleted                       // 所有步骤不变量成立（终态）
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDeployed:
		return "deployed"
	case StateContinuing:
		return "continuing"
	case StateFault:
		return "fault"
	case StateInvariantViolation:
		return "invariant-violation"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal 是否为终态
func (s State) Terminal() bool {
	return s == StateFault || s == StateInvariantViolation || s == StateCompleted
}

// Verdict 输入是否保留在语料中
type Verdict int

const (
	VerdictKeep Verdict = iota
	VerdictReject
)

// String 返回判定的字符串表示
func (v Verdict) String() string {
	if v == VerdictKeep {
		return "keep"
	}
	return "reject"
}

// Report 一次重放的汇总
type Report struct {
	Sequence        action.Sequence
	Contract        common.Address
	State           State
	Verdict         Verdict
	ActionCalls     int    // 已执行的操作调用数
	InvariantChecks int    // 已执行的不变量检查数
	Reverted        int    // revert 或 halt 的操作调用数
	NonceBefore     uint64 // 部署后、第一笔调用前的nonce
	NonceAfter      uint64 // 重放结束时的nonce
}

// String 返回报告摘要
func (r *Report) String() string {
	return fmt.Sprintf("state=%s verdict=%s actions=%d checks=%d reverted=%d nonce=%d->%d",
		r.State, r.Verdict, r.ActionCalls, r.InvariantChecks, r.Reverted, r.NonceBefore, r.NonceAfter)
}
