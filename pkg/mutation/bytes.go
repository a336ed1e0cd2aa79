package mutation

import "github.com/0xalpharush/evmlibfuzzer/pkg/fuzzrand"

// RandomByteMutator 默认的通用字节级变异器
// 与结构化策略共用同一种子，保证空序列路径同样可复现
type RandomByteMutator struct{}

// MutateBytes 执行一次字节级变异：翻转比特、改写字节、插入、删除或追加
func (RandomByteMutator) MutateBytes(data []byte, size, maxSize int, seed uint32) int {
	limit := clampSize(maxSize, len(data))
	size = clampSize(size, limit)
	rnd := fuzzrand.New(seed)

	switch op := rnd.Intn(5); {
	case op == 0 && size > 0:
		// 翻转一个比特
		idx := rnd.Intn(size)
		data[idx] ^= 1 << uint(rnd.Intn(8))
	case op == 1 && size > 0:
		// 改写一个字节
		data[rnd.Intn(size)] = rnd.Byte()
	case op == 2 && size > 0 && size < limit:
		// 在随机位置插入一个字节
		idx := rnd.Intn(size + 1)
		copy(data[idx+1:size+1], data[idx:size])
		data[idx] = rnd.Byte()
		size++
	case op == 3 && size > 1:
		// 删除一个字节
		idx := rnd.Intn(size)
		copy(data[idx:], data[idx+1:size])
		size--
	default:
		// 追加一个字节；空间不足时原样返回
		if size < limit {
			data[size] = rnd.Byte()
			size++
		}
	}
	return size
}
