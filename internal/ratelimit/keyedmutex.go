package ratelimit

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedMutex is a sharded lock table. Locking a key serializes the
// read-modify-write sequence for that identifier within one limiter
// instance; distinct identifiers usually land on distinct shards.
type keyedMutex struct {
	shards [lockShards]sync.Mutex
}

// lock acquires the shard for key and returns it for unlocking.
func (m *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	mu := &m.shards[h.Sum32()%lockShards]
	mu.Lock()

	return mu
}
