// Package compactor runs an optional background sweep that compacts pages
// whose free-list hole ratio has crossed the advisory threshold the index
// itself never checks automatically (see pager.SlottedPage.ShouldCompact).
// It is strictly opt-in: nothing in package pager ever schedules one of
// these, so a caller who never constructs a Daemon gets the exact baseline
// behavior the index describes on its own.
package compactor

import (
	"cmp"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/Sean-Leishman/CloaksDB/internal/storage/pager"
)

// Walker is the subset of *pager.BTree the daemon needs. It is an
// interface so tests can supply a fake without standing up a real file.
type Walker[K cmp.Ordered, V any] interface {
	Walk(visit func(page *pager.SlottedPage[K, V]) error) error
}

// Daemon periodically walks every page reachable from the root and
// compacts any page whose hole ratio exceeds pager.CompactionThreshold.
type Daemon[K cmp.Ordered, V any] struct {
	cron   *cron.Cron
	walker Walker[K, V]
	logger *log.Logger
}

// New builds a Daemon that will sweep walker on the given cron schedule
// (standard 5-field cron syntax) once Start is called.
func New[K cmp.Ordered, V any](walker Walker[K, V], logger *log.Logger) *Daemon[K, V] {
	if logger == nil {
		logger = log.Default()
	}
	return &Daemon[K, V]{cron: cron.New(), walker: walker, logger: logger}
}

// Start schedules the compaction sweep and begins running it in the
// background. The returned error is from parsing schedule, not from any
// sweep (sweep errors are logged, not returned, since the daemon runs
// unattended).
func (d *Daemon[K, V]) Start(schedule string) error {
	_, err := d.cron.AddFunc(schedule, d.sweepOnce)
	if err != nil {
		return fmt.Errorf("compactor: bad schedule %q: %w", schedule, err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the background sweep, waiting for any in-flight run to finish.
func (d *Daemon[K, V]) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// SweepOnce runs one compaction pass synchronously — exported so callers
// and tests can trigger a sweep without waiting on the cron schedule.
func (d *Daemon[K, V]) SweepOnce() {
	d.sweepOnce()
}

func (d *Daemon[K, V]) sweepOnce() {
	compacted := 0
	err := d.walker.Walk(func(page *pager.SlottedPage[K, V]) error {
		if page.ShouldCompact() {
			page.Compact()
			compacted++
		}
		return nil
	})
	if err != nil {
		d.logger.Printf("compactor: sweep failed: %v", err)
		return
	}
	if compacted > 0 {
		d.logger.Printf("compactor: compacted %d page(s)", compacted)
	}
}
