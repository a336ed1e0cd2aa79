// Package harness 组装模糊测试的三个入口：target、crossover、mutate
package harness

import (
	"fmt"
	"log"

	"github.com/0xalpharush/evmlibfuzzer/pkg/config"
	"github.com/0xalpharush/evmlibfuzzer/pkg/crossover"
	"github.com/0xalpharush/evmlibfuzzer/pkg/mutation"
	"github.com/0xalpharush/evmlibfuzzer/pkg/oracle"
	"github.com/0xalpharush/evmlibfuzzer/pkg/sandbox"
)

// Harness 模糊测试入口
type Harness struct {
	config    *config.Config
	oracle    *oracle.Oracle
	crossover *crossover.Engine
	mutation  *mutation.Engine
}

// New 根据配置创建入口
func New(cfg *config.Config) (*Harness, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	bytecode, err := cfg.Bytecode()
	if err != nil {
		return nil, err
	}
	binding, err := cfg.Binding()
	if err != nil {
		return nil, err
	}

	o, err := oracle.New(sandbox.NewEVMFactory(cfg.ExecutionConfig()), bytecode, binding)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}
	o.SetVerbose(cfg.Harness.Verbose)

	mut, err := mutation.NewEngine(cfg.MutationConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation engine: %w", err)
	}

	cross := crossover.NewEngine()

	if cfg.Harness.Verbose {
		log.Printf("[Harness] 字节码 %d bytes, 变异策略 %d 个, 交叉策略 %d 个",
			len(bytecode), len(mut.Strategies()), len(cross.Strategies()))
	}

	return &Harness{
		config:    cfg,
		oracle:    o,
		crossover: cross,
		mutation:  mut,
	}, nil
}

// Config 返回使用的配置
func (h *Harness) Config() *config.Config {
	return h.config
}

// Oracle 返回重放判定器
func (h *Harness) Oracle() *oracle.Oracle {
	return h.oracle
}

// Target 重放输入；发现失败时 panic
func (h *Harness) Target(data []byte) oracle.Verdict {
	return h.oracle.Target(data)
}

// Crossover 组合两个输入写入 out，返回写入的字节数
func (h *Harness) Crossover(a, b, out []byte, seed uint32) int {
	return h.crossover.Combine(a, b, out, seed)
}

// Mutate 原地变异 data[:size]，返回新长度（不超过 maxSize）
func (h *Harness) Mutate(data []byte, size, maxSize int, seed uint32) int {
	return h.mutation.Mutate(data, size, maxSize, seed)
}

// CrossoverEngine 返回交叉引擎
func (h *Harness) CrossoverEngine() *crossover.Engine {
	return h.crossover
}

// MutationEngine 返回变异引擎
func (h *Harness) MutationEngine() *mutation.Engine {
	return h.mutation
}
