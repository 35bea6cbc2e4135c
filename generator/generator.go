// Package generator produces mine layouts for new rounds. Layouts are
// shuffled and handed to the solver until one is certified or the time
// budget runs out, in which case the last shuffle is used as is.
package generator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/monitor"
	"github.com/wfunc/sweepserver/solver"
)

var ErrClosed = errors.New("generator worker closed")

type Options struct {
	// Budget bounds the wall-clock time spent looking for a certified layout.
	Budget time.Duration
	// Seed makes generation reproducible when non-zero.
	Seed uint64
}

// Request describes the round to generate.
type Request struct {
	Width     int
	Height    int
	Topology  grid.Topology
	MineCount int
	Level     solver.Level
}

type Result struct {
	Mines    *grid.Grid[bool]
	Counts   *grid.Grid[uint8]
	Start    grid.Pos
	HasStart bool
	// Solved is set when the solver cleared the layout from Start.
	Solved   bool
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Generate runs the shuffle/solve loop on the calling goroutine. At least one
// layout is always produced unless the request itself is invalid.
func Generate(ctx context.Context, opts Options, req Request) Result {
	begin := time.Now()
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, uint64(req.MineCount)))
	b := board.New(req.Width, req.Height, req.Topology)

	var res Result
	deadline := begin.Add(opts.Budget)
	for {
		res.Attempts++
		if err := b.Shuffle(req.MineCount, rng); err != nil {
			return Result{Err: err, Attempts: res.Attempts, Elapsed: time.Since(begin)}
		}
		if req.Level == solver.GuessAny {
			break
		}

		start, err := solver.New(b, req.Level, rng).Solve()
		if err == nil {
			res.Start, res.HasStart, res.Solved = start, true, true
			break
		}
		if errors.Is(err, solver.ErrUnsolved) {
			res.Start, res.HasStart = start, true
		} else {
			res.HasStart = false
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			logger.Log.Warnf("generation budget exhausted after %d attempts (%dx%d, %d mines, level %v), using an uncertified layout",
				res.Attempts, req.Width, req.Height, req.MineCount, req.Level)
			break
		}
	}

	res.Mines, res.Counts = b.Layout()
	res.Elapsed = time.Since(begin)
	return res
}

type job struct {
	ctx context.Context
	req Request
	out chan Result
}

// Worker runs generation off the room goroutines.
type Worker struct {
	opts    Options
	monitor *monitor.Monitor
	jobs    chan job
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewWorker(workers int, opts Options, mon *monitor.Monitor) *Worker {
	if workers < 1 {
		workers = 1
	}
	w := &Worker{
		opts:    opts,
		monitor: mon,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Submit queues a request. The returned channel receives exactly one
// result.
func (w *Worker) Submit(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	select {
	case w.jobs <- job{ctx: ctx, req: req, out: out}:
	case <-w.quit:
		out <- Result{Err: ErrClosed}
	case <-ctx.Done():
		out <- Result{Err: ctx.Err()}
	}
	return out
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case j := <-w.jobs:
			res := Generate(j.ctx, w.opts, j.req)
			if res.Err == nil {
				w.monitor.ObserveGeneration(res.Elapsed, res.Attempts,
					j.req.Level != solver.GuessAny && !res.Solved)
			}
			j.out <- res
		case <-w.quit:
			return
		}
	}
}

// Close stops the workers after any generation in progress finishes.
func (w *Worker) Close() {
	w.once.Do(func() {
		close(w.quit)
	})
	w.wg.Wait()
}
