package oracle

import (
	"errors"
	"fmt"
	"log"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/sandbox"
	"github.com/0xalpharush/evmlibfuzzer/pkg/target"
	"github.com/ethereum/go-ethereum/common"
)

// 错误定义
var (
	ErrNoFactory  = errors.New("sandbox factory is nil")
	ErrNoBytecode = errors.New("contract bytecode is empty")
	ErrNoBinding  = errors.New("contract binding is nil")
)

// Caller 部署与调用使用的固定账户
var Caller = common.Address{}

// Oracle 重放判定器
// 每次 Run 都从工厂取一个全新沙箱，实例本身不持有跨调用的状态
type Oracle struct {
	factory  sandbox.Factory
	bytecode []byte
	binding  *target.Binding
	verbose  bool
}

// New 创建判定器
func New(factory sandbox.Factory, bytecode []byte, binding *target.Binding) (*Oracle, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	if len(bytecode) == 0 {
		return nil, ErrNoBytecode
	}
	if binding == nil {
		return nil, ErrNoBinding
	}
	return &Oracle{
		factory:  factory,
		bytecode: append([]byte{}, bytecode...),
		binding:  binding,
	}, nil
}

// SetVerbose 设置是否打印每一步
func (o *Oracle) SetVerbose(verbose bool) {
	o.verbose = verbose
}

// Target 解码输入并重放
// 引擎错误或不变量失败时以类型化错误 panic，这是交给模糊测试引擎的崩溃信号
func (o *Oracle) Target(data []byte) Verdict {
	report, err := o.Run(action.Decode(data))
	if err != nil {
		panic(err)
	}
	return report.Verdict
}

// Run 部署合约并按顺序执行序列，每步之后调用 invariant_check
// 返回的错误只会是 *EngineFault 或 *InvariantViolation
func (o *Oracle) Run(seq action.Sequence) (*Report, error) {
	report := &Report{Sequence: seq, State: StateUninitialized, Verdict: VerdictKeep}

	sb, err := o.factory()
	if err != nil {
		return o.fail(report, &EngineFault{Stage: StageSandbox, Step: -1, Err: err})
	}

	addr, err := sb.Deploy(o.bytecode, Caller)
	if err != nil {
		return o.fail(report, &EngineFault{Stage: StageDeploy, Step: -1, Err: err})
	}
	if addr == (common.Address{}) {
		return o.fail(report, &EngineFault{Stage: StageDeploy, Step: -1, Err: sandbox.ErrDeployFailed})
	}
	calls, err := o.binding.NewCalldata()
	if err != nil {
		return o.fail(report, &EngineFault{Stage: StageSandbox, Step: -1, Err: err})
	}
	report.Contract = addr
	report.State = StateDeployed
	report.NonceBefore = sb.Nonce(Caller)
	report.NonceAfter = report.NonceBefore

	if o.verbose {
		log.Printf("[Oracle] 部署合约 %s，重放 %d 个操作", addr.Hex(), len(seq))
	}

	for step, a := range seq {
		if err := o.step(sb, calls, report, step, a); err != nil {
			return o.fail(report, err)
		}
		report.State = StateContinuing
	}

	report.State = StateCompleted
	if o.verbose {
		log.Printf("[Oracle] ✅ 重放完成: %s", report)
	}
	return report, nil
}

// step 执行一个操作并检查不变量
func (o *Oracle) step(sb sandbox.Sandbox, calls *target.Calldata, report *Report, step int, a action.Action) error {
	data, err := calls.Pack(a)
	if err != nil {
		return &EngineFault{Stage: StageAction, Step: step, Err: err}
	}

	result, err := sb.Call(report.Contract, Caller, data, sb.Nonce(Caller))
	report.NonceAfter = sb.Nonce(Caller)
	if err != nil {
		return &EngineFault{Stage: StageAction, Step: step, Err: err}
	}
	report.ActionCalls++
	status := result.Status
	// 操作调用的 revert/halt 是合约行为，不影响判定
	if !result.Succeeded() {
		report.Reverted++
	}

	check, err := o.binding.PackInvariantCheck()
	if err != nil {
		return &EngineFault{Stage: StageInvariant, Step: step, Err: err}
	}
	result, err = sb.Call(report.Contract, Caller, check, sb.Nonce(Caller))
	report.NonceAfter = sb.Nonce(Caller)
	if err != nil {
		return &EngineFault{Stage: StageInvariant, Step: step, Err: err}
	}
	report.InvariantChecks++
	if !result.Succeeded() {
		return &EngineFault{
			Stage: StageInvariant,
			Step:  step,
			Err:   fmt.Errorf("invariant_check %s: %v", result.Status, result.Err),
		}
	}

	held, err := o.binding.UnpackInvariantCheck(result.Output)
	if err != nil {
		return &EngineFault{Stage: StageDecode, Step: step, Err: err}
	}

	if o.verbose {
		log.Printf("[Oracle]   [%d/%d] %s -> %s, invariant=%v", step+1, len(report.Sequence), a, status, held)
	}

	if !held {
		return &InvariantViolation{Step: step, Action: a}
	}
	return nil
}

// fail 记录终态并返回错误
func (o *Oracle) fail(report *Report, err error) (*Report, error) {
	if IsInvariantViolation(err) {
		report.State = StateInvariantViolation
	} else {
		report.State = StateFault
	}
	report.Verdict = VerdictReject
	if o.verbose {
		log.Printf("[Oracle] ❌ %v", err)
	}
	return report, err
}
