package sandbox

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// 支持的分叉，按激活顺序排列
const (
	ForkLondon   = "london"
	ForkShanghai = "shanghai"
	ForkCancun   = "cancun"
)

// DefaultFork 默认分叉
const DefaultFork = ForkShanghai

var forkOrder = []string{ForkLondon, ForkShanghai, ForkCancun}

// Forks 返回支持的分叉名
func Forks() []string {
	return append([]string(nil), forkOrder...)
}

// forkIndex 分叉在激活顺序中的位置，空字符串视为默认分叉
func forkIndex(fork string) (int, error) {
	if fork == "" {
		fork = DefaultFork
	}
	for i, name := range forkOrder {
		if name == fork {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownFork, fork, forkOrder)
}

// ValidateFork 检查分叉名是否受支持
func ValidateFork(fork string) error {
	_, err := forkIndex(fork)
	return err
}

// newChainConfig 根据执行配置生成链配置
// London 及之前的区块号分叉从创世激活，之后的时间分叉激活到 config.Fork 为止
func newChainConfig(config *ExecutionConfig) (*params.ChainConfig, error) {
	idx, err := forkIndex(config.Fork)
	if err != nil {
		return nil, err
	}

	genesis := big.NewInt(0)
	chain := &params.ChainConfig{
		ChainID:                 config.ChainID,
		HomesteadBlock:          genesis,
		EIP150Block:             genesis,
		EIP155Block:             genesis,
		EIP158Block:             genesis,
		ByzantiumBlock:          genesis,
		ConstantinopleBlock:     genesis,
		PetersburgBlock:         genesis,
		IstanbulBlock:           genesis,
		MuirGlacierBlock:        genesis,
		BerlinBlock:             genesis,
		LondonBlock:             genesis,
		ArrowGlacierBlock:       genesis,
		GrayGlacierBlock:        genesis,
		MergeNetsplitBlock:      genesis,
		TerminalTotalDifficulty: genesis,
	}

	activate := func(fork string) *uint64 {
		pos, _ := forkIndex(fork)
		if pos > idx {
			return nil
		}
		zero := uint64(0)
		return &zero
	}
	chain.ShanghaiTime = activate(ForkShanghai)
	chain.CancunTime = activate(ForkCancun)
	return chain, nil
}

// blockHash 伪区块哈希：keccak256(十进制区块号)
func blockHash(n uint64) common.Hash {
	return crypto.Keccak256Hash([]byte(new(big.Int).SetUint64(n).String()))
}
