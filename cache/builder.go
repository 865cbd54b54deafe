package cache

import (
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/prefetch"
	"github.com/sarchlab/coresim/replace"
)

// Builder is a fluent, immutable cache builder in the teacher's With*
// idiom (mem/cache/builder.go).
type Builder struct {
	cfg        Config
	policy     replace.Policy
	prefetcher prefetch.Module
	upper      *channel.Channel
	lower      *channel.Channel
}

// MakeBuilder returns a Builder seeded with spec.md's implicit L1D-shaped
// defaults.
func MakeBuilder() Builder {
	return Builder{
		cfg: Config{
			NumSets:       64,
			NumWays:       8,
			Log2BlockSize: 6,
			HitLatency:    4,
			FillLatency:   1,
			MaxRead:       2,
			MaxWrite:      1,
			MSHRCapacity:  16,
		},
	}
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(n int) Builder { b.cfg.NumSets = n; return b }

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(n int) Builder { b.cfg.NumWays = n; return b }

// WithLog2BlockSize sets the log2 block size in bytes.
func (b Builder) WithLog2BlockSize(n int) Builder { b.cfg.Log2BlockSize = n; return b }

// WithHitLatency sets the hit latency in cycles.
func (b Builder) WithHitLatency(n uint64) Builder { b.cfg.HitLatency = n; return b }

// WithFillLatency sets the fill latency in cycles.
func (b Builder) WithFillLatency(n uint64) Builder { b.cfg.FillLatency = n; return b }

// WithMaxRead sets the per-cycle read/prefetch throughput bound.
func (b Builder) WithMaxRead(n int) Builder { b.cfg.MaxRead = n; return b }

// WithMaxWrite sets the per-cycle write throughput bound.
func (b Builder) WithMaxWrite(n int) Builder { b.cfg.MaxWrite = n; return b }

// WithMSHRCapacity sets the miss-status-holding-register table's
// capacity, independent of the tag-array's set/way geometry.
func (b Builder) WithMSHRCapacity(n int) Builder { b.cfg.MSHRCapacity = n; return b }

// WithNonInclusive marks this cache as dropping (rather than issuing
// RFOs for) write misses.
func (b Builder) WithNonInclusive(v bool) Builder { b.cfg.NonInclusive = v; return b }

// WithVirtualPrefetch permits the attached prefetcher to cross page
// boundaries.
func (b Builder) WithVirtualPrefetch(v bool) Builder { b.cfg.VirtualPrefetch = v; return b }

// WithPolicy sets the replacement policy.
func (b Builder) WithPolicy(p replace.Policy) Builder { b.policy = p; return b }

// WithPrefetcher sets the prefetch module.
func (b Builder) WithPrefetcher(p prefetch.Module) Builder { b.prefetcher = p; return b }

// WithUpper sets the channel this cache receives requests from.
func (b Builder) WithUpper(c *channel.Channel) Builder { b.upper = c; return b }

// WithLower sets the channel this cache issues misses to.
func (b Builder) WithLower(c *channel.Channel) Builder { b.lower = c; return b }

// Build constructs the Cache. policy defaults to LRU and prefetcher
// defaults to a no-op module if unset.
func (b Builder) Build() *Cache {
	policy := b.policy
	if policy == nil {
		policy = replace.NewLRU(b.cfg.NumSets, b.cfg.NumWays)
	}

	prefetcher := b.prefetcher
	if prefetcher == nil {
		prefetcher = prefetch.NoOp{}
	}

	return New(b.cfg, policy, prefetcher, b.upper, b.lower)
}
