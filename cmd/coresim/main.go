// Command coresim wires a memory-hierarchy system from a configuration
// file (or the built-in default) and drives it for a fixed number of
// cycles. This entry point is deliberately thin: trace ingestion and
// the full CLI argument grammar are out of scope (spec.md §6's Non-goal
// on the build-time CLI contract) — it exists only to give the module a
// runnable surface.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/coresim/cache"
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/config"
	"github.com/sarchlab/coresim/dram"
	"github.com/sarchlab/coresim/operable"
	"github.com/sarchlab/coresim/ptw"
	"github.com/sarchlab/coresim/vmem"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var cycles uint64

	cmd := &cobra.Command{
		Use:   "coresim",
		Short: "Run the coresim memory-hierarchy core for a fixed cycle budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys := config.DefaultSystem()

			if configPath != "" {
				loaded, err := config.LoadSystemYAML(configPath)
				if err != nil {
					return fmt.Errorf("coresim: %w", err)
				}

				sys = loaded
			}

			return run(sys, cycles)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a system configuration YAML file")
	cmd.Flags().Uint64VarP(&cycles, "cycles", "n", 1000, "number of cycles to run")

	return cmd
}

// system is the wired set of units a run drives; its caches are kept
// separately from the generic unit list so their Statistics can be
// printed by name afterward.
type system struct {
	caches []*cache.Cache
	driver *operable.Driver
}

// build wires sys's cache levels in series (L1 -> L2 -> ... -> LLC),
// the LLC's miss traffic into a DRAM Controller, and a page-table walker
// sharing the same DRAM back end, following spec.md §4's queue
// discipline: every link between two units is a latency-modelled
// channel.Channel.
func build(sys *config.System) *system {
	memChannel := channel.New(channel.Config{Latency: 1, RQCapacity: 64, WQCapacity: 64, PQCapacity: 16, RSPCapacity: 64})

	ctl := dram.NewController(sys.DRAM.Decode, []dram.Config{sys.DRAM}, memChannel)

	allocator := vmem.NewAllocator(sys.Layout.Log2PageSize, 0, 1<<24)
	pageTable := vmem.NewPageTable()
	ptwUpper := channel.New(channel.Config{Latency: 0, RQCapacity: 32, WQCapacity: 1, PQCapacity: 1, RSPCapacity: 32})
	walker := ptw.MakeBuilder().
		WithLevels(sys.PTW.Levels).
		WithLog2PageSize(sys.Layout.Log2PageSize).
		WithLog2PTEPageSize(sys.PTW.Log2PTEPageSize).
		WithLog2PTEBytes(sys.PTW.Log2PTEBytes).
		WithAllocator(allocator).
		WithPageTable(pageTable).
		WithUpper(ptwUpper).
		WithLower(memChannel).
		Build()

	units := []operable.Unit{ctl, walker}
	caches := make([]*cache.Cache, 0, len(sys.Caches))

	upper := channel.New(channel.Config{Latency: 0, RQCapacity: 16, WQCapacity: 16, PQCapacity: 4, RSPCapacity: 16})

	for i, cc := range sys.Caches {
		lower := memChannel
		if i < len(sys.Caches)-1 {
			lower = channel.New(channel.Config{Latency: 1, RQCapacity: 16, WQCapacity: 16, PQCapacity: 4, RSPCapacity: 16})
		}

		c := cache.MakeBuilder().
			WithNumSets(cc.NumSets).
			WithNumWays(cc.NumWays).
			WithLog2BlockSize(sys.Layout.Log2BlockSize).
			WithHitLatency(cc.HitLatency).
			WithFillLatency(cc.FillLatency).
			WithMaxRead(cc.MaxRead).
			WithMaxWrite(cc.MaxWrite).
			WithMSHRCapacity(cc.MSHRCapacity).
			WithNonInclusive(cc.NonInclusive).
			WithUpper(upper).
			WithLower(lower).
			Build()

		caches = append(caches, c)
		units = append(units, c)
		upper = lower
	}

	return &system{caches: caches, driver: operable.NewDriver(units...)}
}

func run(sys *config.System, cycles uint64) error {
	if err := sys.Validate(); err != nil {
		return fmt.Errorf("coresim: %w", err)
	}

	s := build(sys)
	s.driver.Run(func(cycle uint64) bool { return cycle >= cycles })

	for i, c := range s.caches {
		name := sys.Caches[i].Name
		stats := c.Statistics()

		fmt.Printf("cache %s:\n", name)

		for t, n := range stats.Hits {
			fmt.Printf("  hits[%s]=%d\n", t, n)
		}

		for t, n := range stats.Misses {
			fmt.Printf("  misses[%s]=%d\n", t, n)
		}

		if stats.FillLatencyCount > 0 {
			fmt.Printf("  avg_fill_latency=%.2f\n", float64(stats.FillLatencySum)/float64(stats.FillLatencyCount))
		}
	}

	return nil
}
