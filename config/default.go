package config

import "github.com/sarchlab/coresim/dram"

// DefaultSystem returns a single-core, three-level (L1/L2/LLC) system
// with a single-channel DRAM back end — the implicit configuration
// spec.md's own worked examples assume where it does not name explicit
// constants.
func DefaultSystem() *System {
	return &System{
		Layout: AddressLayout{Log2BlockSize: 6, Log2PageSize: 12},
		Caches: []CacheConfig{
			{Name: "L1", NumSets: 64, NumWays: 8, HitLatency: 4, FillLatency: 1, MaxRead: 2, MaxWrite: 1, MSHRCapacity: 16},
			{Name: "L2", NumSets: 1024, NumWays: 8, HitLatency: 10, FillLatency: 2, MaxRead: 1, MaxWrite: 1, MSHRCapacity: 16, NonInclusive: true},
			{Name: "LLC", NumSets: 2048, NumWays: 16, HitLatency: 30, FillLatency: 4, MaxRead: 1, MaxWrite: 1, MSHRCapacity: 16, NonInclusive: true},
		},
		DRAM: dram.Config{
			NumBanks: 16,
			NumRanks: 1,
			Decode: dram.Decode{
				Log2BlockSize: 6,
				Log2Channels:  0,
				Log2Banks:     4,
				Log2Columns:   10,
				Log2Ranks:     0,
			},
			Timing: dram.Timing{
				TRCD: 12, TRAS: 28, TRP: 12, TCAS: 12, TCWD: 10,
				RefreshPeriod: 6400, RefreshDuration: 350,
			},
			RQCapacity:         64,
			WQCapacity:         64,
			WriteHighWatermark: 48,
			WriteLowWatermark:  16,
		},
		PTW:     PageTableConfig{Levels: 4, Log2PTEPageSize: 12, Log2PTEBytes: 3},
		NumCPUs: 1,
	}
}
