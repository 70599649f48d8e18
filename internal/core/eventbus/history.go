package eventbus

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Record 一次发射的记录
type Record struct {
	Seq       uint64    `json:"seq"`
	Channel   string    `json:"channel"`
	Payload   any       `json:"payload"`
	Delivered int       `json:"delivered"`
	At        time.Time `json:"at"`
}

// history 最近发射记录
//
// 以递增序号为键，容量满时淘汰最早的记录。
type history struct {
	cache *lru.Cache[uint64, Record]
}

func newHistory(size int) *history {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[uint64, Record](size)
	if err != nil {
		log.Warn("创建发射历史失败", "size", size, "err", err)
		return nil
	}
	return &history{cache: cache}
}

func (h *history) add(r Record) {
	h.cache.Add(r.Seq, r)
}

// recent 返回最近 n 条记录，从旧到新；n <= 0 返回全部
func (h *history) recent(n int) []Record {
	keys := h.cache.Keys()
	if n > 0 && len(keys) > n {
		keys = keys[len(keys)-n:]
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		if r, ok := h.cache.Peek(k); ok {
			out = append(out, r)
		}
	}
	return out
}
