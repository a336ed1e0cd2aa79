package oracle

import (
	"errors"
	"fmt"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
)

// Stage 引擎错误发生的阶段
type Stage string

const (
	StageSandbox   Stage = "sandbox"   // 创建沙箱
	StageDeploy    Stage = "deploy"    // 部署合约
	StageAction    Stage = "action"    // 操作调用
	StageInvariant Stage = "invariant" // 不变量检查调用
	StageDecode    Stage = "decode"    // 解码不变量返回值
)

// EngineFault 执行环境错误，与被测合约的行为无关
type EngineFault struct {
	Stage Stage
	Step  int // 出错的操作下标，部署阶段为 -1
	Err   error
}

func (e *EngineFault) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("engine fault during %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("engine fault during %s at step %d: %v", e.Stage, e.Step, e.Err)
}

func (e *EngineFault) Unwrap() error {
	return e.Err
}

// InvariantViolation 不变量在某一步之后返回 false
type InvariantViolation struct {
	Step   int
	Action action.Action
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated after step %d (%s)", e.Step, e.Action)
}

// IsEngineFault 判断错误链中是否有 EngineFault
func IsEngineFault(err error) bool {
	var fault *EngineFault
	return errors.As(err, &fault)
}

// IsInvariantViolation 判断错误链中是否有 InvariantViolation
func IsInvariantViolation(err error) bool {
	var violation *InvariantViolation
	return errors.As(err, &violation)
}
