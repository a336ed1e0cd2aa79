package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/mutation"
	"github.com/0xalpharush/evmlibfuzzer/pkg/sandbox"
	"github.com/0xalpharush/evmlibfuzzer/pkg/target"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 默认配置合法
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Mutation.MaxRepeat)
	assert.True(t, cfg.Mutation.EnableNudge)
	assert.Equal(t, Quantity(30_000_000), cfg.Sandbox.GasLimit)
	assert.Equal(t, sandbox.DefaultFork, cfg.Sandbox.Fork)

	code, err := cfg.Bytecode()
	require.NoError(t, err)
	assert.Equal(t, target.MustBytecode(target.Vulnerable()), code)
}

// TestParse 部分配置覆盖默认值
func TestParse(t *testing.T) {
	data := []byte(`
harness:
  verbose: true
  reference:
    call_limit: 4
    disable_equality_bug: true
sandbox:
  gas_limit: "0xf4240"
  block_number: "42"
  coinbase: "0x2222222222222222222222222222222222222222"
  fork: cancun
mutation:
  enable_nudge: false
corpus:
  dir: /tmp/corpus
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.True(t, cfg.Harness.Verbose)
	assert.Equal(t, 4096, cfg.Harness.MaxInputSize)
	assert.Equal(t, target.WithCallLimit(4), cfg.ReferenceOptions())
	assert.Equal(t, "/tmp/corpus", cfg.Corpus.Dir)

	mut := cfg.MutationConfig()
	assert.False(t, mut.EnableNudge)
	assert.Equal(t, 30, mut.MaxRepeat)

	exec := cfg.ExecutionConfig()
	assert.Equal(t, uint64(1000000), exec.GasLimit)
	assert.Equal(t, uint64(42), exec.BlockNumber.Uint64())
	assert.Equal(t, common.HexToAddress("0x2222222222222222222222222222222222222222"), exec.Coinbase)
	assert.NotNil(t, exec.Random)
	assert.Equal(t, sandbox.ForkCancun, exec.Fork)
}

// TestValidate 测试非法配置
func TestValidate(t *testing.T) {
	cases := map[string]struct {
		yaml string
		err  error
	}{
		"GasLimit":    {"sandbox:\n  gas_limit: 0\n", ErrInvalidGasLimit},
		"Repeat":      {"mutation:\n  max_repeat: 0\n", ErrInvalidRepeat},
		"MaxSize":     {"harness:\n  max_input_size: -1\n", ErrInvalidMaxSize},
		"Conflicting": {"harness:\n  bytecode: \"0x00\"\n  bytecode_file: code.hex\n", ErrConflictingCode},
		"Fork":        {"sandbox:\n  fork: frontier\n", sandbox.ErrUnknownFork},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := Parse([]byte("sandbox:\n  coinbase: nope\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("harness: [1, 2"))
	assert.Error(t, err)
}

// TestLoad 从文件加载
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	codeFile := filepath.Join(dir, "code.hex")
	require.NoError(t, os.WriteFile(codeFile, []byte("0x6001600055\n"), 0644))
	abiFile := filepath.Join(dir, "target.abi")
	require.NoError(t, os.WriteFile(abiFile, []byte(target.TargetABI), 0644))

	path := filepath.Join(dir, "fuzz.yaml")
	content := "harness:\n  bytecode_file: " + codeFile + "\n  abi_file: " + abiFile + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	code, err := cfg.Bytecode()
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0x6001600055"), code)

	binding, err := cfg.Binding()
	require.NoError(t, err)
	assert.NotNil(t, binding.Selector(target.MethodInvariant))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg.Harness.BytecodeFile = ""
	cfg.Harness.Bytecode = "zz"
	_, err = cfg.Bytecode()
	assert.Error(t, err)
}

// TestSampleConfig 仓库自带的配置文件与默认值一致
func TestSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "evmfuzz.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestParseQuantity 测试数量解析
func TestParseQuantity(t *testing.T) {
	cases := map[string]Quantity{
		"":          0,
		"0x":        0,
		"0x10":      16,
		"0X1c9c380": 30_000_000,
		"12345":     12345,
	}
	for in, want := range cases {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"0xzz", "0x10000000000000000", "-1", "abc"} {
		_, err := ParseQuantity(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, "0x10", Quantity(16).String())

	_, err := Parse([]byte("sandbox:\n  gas_limit: [1]\n"))
	assert.Error(t, err)
}

// TestNudgeMaxDeltaFullRange uint64 上限的 nudge_max_delta 可以直接用于变异
func TestNudgeMaxDeltaFullRange(t *testing.T) {
	cfg, err := Parse([]byte("mutation:\n  nudge_max_delta: 18446744073709551615\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), cfg.MutationConfig().NudgeMaxDelta)

	engine, err := mutation.NewEngine(cfg.MutationConfig(), nil)
	require.NoError(t, err)
	seq := action.Sequence{action.CallF(action.MaxValue())}
	for seed := uint32(0); seed < 20; seed++ {
		assert.NotPanics(t, func() {
			_, err := engine.MutateSequence(mutation.Nudge, seq, seed)
			assert.NoError(t, err)
		})
	}
}
