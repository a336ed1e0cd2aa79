package sandbox

import (
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// EVMSandbox 基于go-ethereum vm.EVM 的沙箱
// 使用内存中的空状态，每个实例只服务一次重放
type EVMSandbox struct {
	config      *ExecutionConfig
	chainConfig *params.ChainConfig
	stateDB     *state.StateDB
	evm         *vm.EVM
	verbose     bool
}

// NewEVMSandbox 创建空状态的EVM沙箱
func NewEVMSandbox(config *ExecutionConfig) (*EVMSandbox, error) {
	if config == nil {
		config = DefaultExecutionConfig()
	}

	stateDB, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		return nil, fmt.Errorf("failed to create state: %w", err)
	}

	chainConfig, err := newChainConfig(config)
	if err != nil {
		return nil, err
	}

	s := &EVMSandbox{
		config:      config,
		chainConfig: chainConfig,
		stateDB:     stateDB,
	}
	s.evm = vm.NewEVM(s.buildBlockContext(), stateDB, s.chainConfig, vm.Config{})
	return s, nil
}

// NewEVMFactory 返回创建全新EVM沙箱的工厂
func NewEVMFactory(config *ExecutionConfig) Factory {
	return func() (Sandbox, error) {
		return NewEVMSandbox(config)
	}
}

// SetVerbose 设置是否打印每笔调用
func (s *EVMSandbox) SetVerbose(verbose bool) {
	s.verbose = verbose
}

// Deploy 执行合约创建交易，创建过程会消耗 caller 的一个nonce
func (s *EVMSandbox) Deploy(bytecode []byte, caller common.Address) (common.Address, error) {
	if len(bytecode) == 0 {
		return common.Address{}, ErrEmptyBytecode
	}

	s.prepare(caller, nil)
	_, addr, _, err := s.evm.Create(caller, bytecode, s.config.GasLimit, new(uint256.Int))
	s.stateDB.Finalise(true)

	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrDeployFailed, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no contract address", ErrDeployFailed)
	}

	if s.verbose {
		log.Printf("[Sandbox] 部署合约 %s (code=%d bytes)", addr.Hex(), s.stateDB.GetCodeSize(addr))
	}
	return addr, nil
}

// Call 执行一笔调用交易
// nonce 必须等于账户当前nonce，执行前递增一次
func (s *EVMSandbox) Call(to, caller common.Address, data []byte, nonce uint64) (*CallResult, error) {
	current := s.stateDB.GetNonce(caller)
	if nonce != current {
		return nil, fmt.Errorf("%w: tx nonce %d, account nonce %d", ErrNonceMismatch, nonce, current)
	}
	if !s.stateDB.Exist(caller) {
		s.stateDB.CreateAccount(caller)
	}
	s.stateDB.SetNonce(caller, nonce+1, tracing.NonceChangeEoACall)

	s.prepare(caller, &to)
	ret, leftoverGas, execErr := s.evm.Call(caller, to, data, s.config.GasLimit, new(uint256.Int))
	s.stateDB.Finalise(true)

	result := &CallResult{
		Status:  StatusSuccess,
		Output:  ret,
		GasUsed: s.config.GasLimit - leftoverGas,
	}
	if execErr != nil {
		result.Err = execErr
		if errors.Is(execErr, vm.ErrExecutionReverted) {
			result.Status = StatusRevert
		} else {
			result.Status = StatusHalt
		}
	}

	if s.verbose {
		log.Printf("[Sandbox] call %s nonce=%d status=%s gas=%d", to.Hex(), nonce, result.Status, result.GasUsed)
	}
	return result, nil
}

// Nonce 查询账户当前nonce
func (s *EVMSandbox) Nonce(caller common.Address) uint64 {
	return s.stateDB.GetNonce(caller)
}

// Storage 读取合约存储槽（用于测试和调试）
func (s *EVMSandbox) Storage(addr common.Address, slot common.Hash) common.Hash {
	return s.stateDB.GetState(addr, slot)
}

// Code 读取合约代码
func (s *EVMSandbox) Code(addr common.Address) []byte {
	return s.stateDB.GetCode(addr)
}

// prepare 设置交易上下文并重置 access list / transient storage
func (s *EVMSandbox) prepare(caller common.Address, to *common.Address) {
	s.evm.SetTxContext(vm.TxContext{
		Origin:   caller,
		GasPrice: big.NewInt(0),
	})

	rules := s.chainConfig.Rules(s.config.BlockNumber, s.config.Random != nil, s.config.Time)
	s.stateDB.Prepare(rules, caller, s.config.Coinbase, to, vm.ActivePrecompiles(rules), nil)
}

// buildBlockContext 构建区块上下文
func (s *EVMSandbox) buildBlockContext() vm.BlockContext {
	ctx := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     blockHash,
		Coinbase:    s.config.Coinbase,
		GasLimit:    s.config.GasLimit,
		BlockNumber: s.config.BlockNumber,
		Time:        s.config.Time,
		Difficulty:  s.config.Difficulty,
		BaseFee:     s.config.BaseFee,
		Random:      s.config.Random,
	}
	if s.chainConfig.IsCancun(s.config.BlockNumber, s.config.Time) {
		ctx.BlobBaseFee = big.NewInt(1)
	}
	return ctx
}
