package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Randomizer 随机源，洗牌和平票随机淘汰都只通过它取随机数
// *rand.Rand 满足该接口，测试中可以注入固定序列
type Randomizer interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRandom 使用加密随机种子创建随机源
func NewRandom() Randomizer {
	return rand.New(rand.NewSource(newSeed()))
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
