// Package config 加载模糊测试工具的YAML配置
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/0xalpharush/evmlibfuzzer/pkg/mutation"
	"github.com/0xalpharush/evmlibfuzzer/pkg/sandbox"
	"github.com/0xalpharush/evmlibfuzzer/pkg/target"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// 错误定义
var (
	ErrInvalidGasLimit = errors.New("sandbox.gas_limit must be positive")
	ErrInvalidRepeat   = errors.New("mutation.max_repeat must be positive")
	ErrInvalidMaxSize  = errors.New("harness.max_input_size must be positive")
	ErrConflictingCode = errors.New("harness.bytecode and harness.bytecode_file are mutually exclusive")
)

// Config 顶层配置
type Config struct {
	Harness  HarnessConfig  `yaml:"harness"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Mutation MutationConfig `yaml:"mutation"`
	Corpus   CorpusConfig   `yaml:"corpus"`
}

// HarnessConfig 被测合约与重放配置
type HarnessConfig struct {
	Bytecode     string          `yaml:"bytecode"`       // 十六进制部署字节码，为空时使用参考合约
	BytecodeFile string          `yaml:"bytecode_file"`  // 部署字节码文件（十六进制文本）
	ABIFile      string          `yaml:"abi_file"`       // ABI文件，为空时使用内置ABI
	Reference    ReferenceConfig `yaml:"reference"`      // 参考合约选项
	MaxInputSize int             `yaml:"max_input_size"` // mutate/crossover 的输出上限
	Verbose      bool            `yaml:"verbose"`
}

// ReferenceConfig 参考合约选项
type ReferenceConfig struct {
	CallLimit          uint64 `yaml:"call_limit"`
	DisableEqualityBug bool   `yaml:"disable_equality_bug"`
}

// SandboxConfig EVM执行环境配置
type SandboxConfig struct {
	ChainID     Quantity `yaml:"chain_id"`
	BlockNumber Quantity `yaml:"block_number"`
	Timestamp   Quantity `yaml:"timestamp"`
	GasLimit    Quantity `yaml:"gas_limit"`
	Coinbase    string   `yaml:"coinbase"`
	Fork        string   `yaml:"fork"` // london / shanghai / cancun
}

// MutationConfig 变异配置
type MutationConfig struct {
	MaxRepeat     int    `yaml:"max_repeat"`
	EnableNudge   bool   `yaml:"enable_nudge"`
	NudgeMaxDelta uint64 `yaml:"nudge_max_delta"`
}

// CorpusConfig 语料目录配置
type CorpusConfig struct {
	Dir string `yaml:"dir"`
}

// Default 返回默认配置
func Default() *Config {
	exec := sandbox.DefaultExecutionConfig()
	mut := mutation.DefaultConfig()
	return &Config{
		Harness: HarnessConfig{
			MaxInputSize: 4096,
		},
		Sandbox: SandboxConfig{
			ChainID:     Quantity(exec.ChainID.Uint64()),
			BlockNumber: Quantity(exec.BlockNumber.Uint64()),
			Timestamp:   Quantity(exec.Time),
			GasLimit:    Quantity(exec.GasLimit),
			Fork:        exec.Fork,
		},
		Mutation: MutationConfig{
			MaxRepeat:     mut.MaxRepeat,
			EnableNudge:   mut.EnableNudge,
			NudgeMaxDelta: mut.NudgeMaxDelta,
		},
		Corpus: CorpusConfig{
			Dir: "./corpus",
		},
	}
}

// Load 从YAML文件加载配置，未出现的字段保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析YAML配置
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Sandbox.GasLimit == 0 {
		return ErrInvalidGasLimit
	}
	if c.Mutation.MaxRepeat <= 0 {
		return ErrInvalidRepeat
	}
	if c.Harness.MaxInputSize <= 0 {
		return ErrInvalidMaxSize
	}
	if c.Harness.Bytecode != "" && c.Harness.BytecodeFile != "" {
		return ErrConflictingCode
	}
	if err := sandbox.ValidateFork(c.Sandbox.Fork); err != nil {
		return fmt.Errorf("invalid sandbox.fork: %w", err)
	}
	if c.Sandbox.Coinbase != "" && !common.IsHexAddress(c.Sandbox.Coinbase) {
		return fmt.Errorf("invalid sandbox.coinbase %q", c.Sandbox.Coinbase)
	}
	return nil
}

// ExecutionConfig 转换为沙箱执行配置
func (c *Config) ExecutionConfig() *sandbox.ExecutionConfig {
	exec := sandbox.DefaultExecutionConfig()
	exec.ChainID = new(big.Int).SetUint64(c.Sandbox.ChainID.Uint64())
	exec.BlockNumber = new(big.Int).SetUint64(c.Sandbox.BlockNumber.Uint64())
	exec.Time = c.Sandbox.Timestamp.Uint64()
	exec.GasLimit = c.Sandbox.GasLimit.Uint64()
	if c.Sandbox.Fork != "" {
		exec.Fork = c.Sandbox.Fork
	}
	if c.Sandbox.Coinbase != "" {
		exec.Coinbase = common.HexToAddress(c.Sandbox.Coinbase)
	}
	return exec
}

// MutationConfig 转换为变异引擎配置
func (c *Config) MutationConfig() mutation.Config {
	return mutation.Config{
		MaxRepeat:     c.Mutation.MaxRepeat,
		EnableNudge:   c.Mutation.EnableNudge,
		NudgeMaxDelta: c.Mutation.NudgeMaxDelta,
	}
}

// ReferenceOptions 转换为参考合约选项
func (c *Config) ReferenceOptions() target.Options {
	return target.Options{
		CallLimit:          c.Harness.Reference.CallLimit,
		DisableEqualityBug: c.Harness.Reference.DisableEqualityBug,
	}
}

// Bytecode 返回部署字节码：显式配置优先，否则组装参考合约
func (c *Config) Bytecode() ([]byte, error) {
	hex := c.Harness.Bytecode
	if c.Harness.BytecodeFile != "" {
		data, err := os.ReadFile(c.Harness.BytecodeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read bytecode file: %w", err)
		}
		hex = string(data)
	}
	if hex == "" {
		return target.Bytecode(c.ReferenceOptions())
	}
	code := common.FromHex(strings.TrimSpace(hex))
	if len(code) == 0 {
		return nil, fmt.Errorf("bytecode is empty or not hex")
	}
	return code, nil
}

// Binding 返回合约ABI绑定
func (c *Config) Binding() (*target.Binding, error) {
	if c.Harness.ABIFile == "" {
		return target.NewBinding(), nil
	}
	return target.LoadBinding(c.Harness.ABIFile)
}
