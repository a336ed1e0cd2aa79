// Package corpus 提供初始种子和基于目录的语料存储
package corpus

import (
	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/holiman/uint256"
)

// Seeds 返回初始种子序列
// 覆盖空序列、每种单一操作、零值/最大值两端以及一个混合序列
func Seeds() []action.Sequence {
	zero := new(uint256.Int)
	one := uint256.NewInt(1)
	max := action.MaxValue()

	return []action.Sequence{
		{},
		{action.CallF(one)},
		{action.CallG(one)},
		{action.CallH()},
		{action.CallF(zero), action.CallG(zero)},
		{action.CallF(max), action.CallG(max)},
		{action.CallF(uint256.NewInt(5)), action.CallH(), action.CallG(uint256.NewInt(7))},
	}
}

// EncodedSeeds 返回种子的规范编码
func EncodedSeeds() [][]byte {
	seeds := Seeds()
	out := make([][]byte, 0, len(seeds))
	for _, seq := range seeds {
		out = append(out, action.Encode(seq))
	}
	return out
}
