// Package fuzzrand 从调用方提供的种子派生确定性随机数，不依赖任何全局熵源
package fuzzrand

import (
	"math"

	"pgregory.net/rand"
)

// Rand 种子驱动的随机数生成器
type Rand struct {
	r *rand.Rand
}

// New 基于种子创建生成器，相同种子得到相同的随机流
func New(seed uint32) *Rand {
	return &Rand{r: rand.New(uint64(seed))}
}

// Intn 返回 [0, n) 内的均匀随机数，n 必须大于0
func (g *Rand) Intn(n int) int {
	return g.r.Intn(n)
}

// Uint64Max 返回 [0, bound] 内的均匀随机数，bound 可以取 uint64 的任意值
func (g *Rand) Uint64Max(bound uint64) uint64 {
	if bound == math.MaxUint64 {
		return g.r.Uint64()
	}
	return g.r.Uint64n(bound + 1)
}

// Coin 公平硬币
func (g *Rand) Coin() bool {
	return g.r.Uint64()&1 == 1
}

// Byte 返回一个随机字节
func (g *Rand) Byte() byte {
	return byte(g.r.Uint64())
}
