// Package sandbox 提供被测合约的确定性执行环境
// 只向调用方暴露部署、调用、查询nonce三种操作，内部状态随实例一起丢弃
package sandbox

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 错误定义
var (
	// ErrDeployFailed 合约创建失败
	ErrDeployFailed = errors.New("contract deployment failed")
	// ErrNonceMismatch 调用携带的nonce与账户当前nonce不一致
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrEmptyBytecode 部署的字节码为空
	ErrEmptyBytecode = errors.New("empty bytecode")
	// ErrUnknownFork 不支持的分叉名
	ErrUnknownFork = errors.New("unknown fork")
)

// Sandbox 执行引擎接口
type Sandbox interface {
	// Deploy 以 caller 身份执行合约创建，返回合约地址
	Deploy(bytecode []byte, caller common.Address) (common.Address, error)

	// Call 以 caller 身份调用合约；revert/halt 通过 CallResult 表达，
	// 只有引擎级错误才返回 error
	Call(to, caller common.Address, data []byte, nonce uint64) (*CallResult, error)

	// Nonce 查询账户当前nonce
	Nonce(caller common.Address) uint64
}

// Factory 每次调用返回一个全新的空沙箱
type Factory func() (Sandbox, error)

// Status 调用结果状态
type Status int

const (
	StatusSuccess Status = iota // 正常返回
	StatusRevert                // REVERT
	StatusHalt                  // 异常终止（out of gas、invalid opcode等）
)

// String 返回状态的字符串表示
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	case StatusHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// CallResult 调用结果
type CallResult struct {
	Status  Status // 结果状态
	Output  []byte // 返回数据（revert时为revert数据）
	GasUsed uint64 // 消耗的Gas
	Err     error  // VM错误（仅 revert/halt 时非空）
}

// Succeeded 调用是否正常返回
func (r *CallResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// ExecutionConfig 执行配置
type ExecutionConfig struct {
	ChainID     *big.Int       // 链ID
	BlockNumber *big.Int       // 区块号
	Time        uint64         // 区块时间戳
	GasLimit    uint64         // 每笔调用的Gas限制
	BaseFee     *big.Int       // EIP-1559 基础费用
	Coinbase    common.Address // 矿工地址
	Difficulty  *big.Int       // 难度（PoW）
	Random      *common.Hash   // 随机数（PoS），非空时启用合并后的规则
	Fork        string         // 激活到的最新分叉: london / shanghai / cancun
}

// DefaultExecutionConfig 返回默认执行配置
func DefaultExecutionConfig() *ExecutionConfig {
	random := common.Hash{}
	return &ExecutionConfig{
		ChainID:     big.NewInt(1),
		BlockNumber: big.NewInt(1),
		Time:        1000000000,
		GasLimit:    30_000_000,
		BaseFee:     big.NewInt(0),
		Coinbase:    common.Address{},
		Difficulty:  big.NewInt(0),
		Random:      &random,
		Fork:        DefaultFork,
	}
}
