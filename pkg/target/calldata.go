package target

import (
	"fmt"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Calldata 一次重放内按操作缓存的调用数据
// 序列中重复的操作只编码一次，返回的切片不能被修改
type Calldata struct {
	binding *Binding
	packs   *lru.Cache[action.Action, []byte]
}

// NewCalldata 创建调用数据缓存
func (b *Binding) NewCalldata() (*Calldata, error) {
	cache, err := lru.New[action.Action, []byte](callCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create calldata cache: %w", err)
	}
	return &Calldata{binding: b, packs: cache}, nil
}

// Pack 返回操作的调用数据，命中缓存时不再编码
func (c *Calldata) Pack(a action.Action) ([]byte, error) {
	if data, ok := c.packs.Get(a); ok {
		return data, nil
	}
	data, err := c.binding.Pack(a)
	if err != nil {
		return nil, err
	}
	c.packs.Add(a, data)
	return data, nil
}

// Len 缓存中的调用数据条数
func (c *Calldata) Len() int {
	return c.packs.Len()
}
