package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

// ErrRunnerStopped is returned by commands sent after the loop has exited.
var ErrRunnerStopped = errors.New("sim: runner stopped")

type RunnerConfig struct {
	TickHz float64
	// MaxDt caps the wall-clock step so a long pause cannot destabilise the
	// integration.
	MaxDt time.Duration
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{TickHz: 1000, MaxDt: time.Millisecond}
}

// Commands accepted on Runner.Inbox. Reply channels, when set, receive
// exactly one value and must be buffered.
type (
	SetForce struct {
		Index int
		Force mgl64.Vec3
		Reply chan error
	}
	ClearForces struct{}
	ResetCloth  struct{}
	Pause       struct{ Paused bool }
	MoveCursor  struct{ Pos mgl64.Vec3 }
	// Tune runs Apply on the loop goroutine, e.g. to change spring constants.
	Tune struct{ Apply func(c *cloth.Cloth) }
)

// CursorMover is implemented by force sources whose cursor can be moved
// directly, such as the contact proxy.
type CursorMover interface {
	SetCursor(p mgl64.Vec3)
}

// CursorReporter is implemented by force sources with a cursor position to
// publish alongside each snapshot.
type CursorReporter interface {
	Cursor() mgl64.Vec3
}

// Runner owns a cloth on a single goroutine and advances it against the
// wall clock. Node state is published through a double buffer: the loop
// writes the back buffer without locking and swaps it with the front under
// a write lock, readers copy the front under a read lock.
type Runner struct {
	Inbox chan any

	cloth  *cloth.Cloth
	source ForceSource
	cfg    RunnerConfig
	pool   *SnapshotPool

	// manual forces set through SetForce, re-applied every tick
	manual map[int]mgl64.Vec3

	mu     sync.RWMutex
	front  *cloth.Snapshot
	back   *cloth.Snapshot
	device mgl64.Vec3
	cursor mgl64.Vec3

	paused  atomic.Bool
	ticks   atomic.Int64
	lastErr atomic.Value

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(c *cloth.Cloth, source ForceSource, cfg RunnerConfig) *Runner {
	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultRunnerConfig().TickHz
	}
	if cfg.MaxDt <= 0 {
		cfg.MaxDt = DefaultRunnerConfig().MaxDt
	}
	r := &Runner{
		Inbox:  make(chan any, 64),
		cloth:  c,
		source: source,
		cfg:    cfg,
		pool:   NewSnapshotPool(c.Nodes()),
		manual: make(map[int]mgl64.Vec3),
		front:  c.Snapshot(nil),
		back:   c.Snapshot(nil),
	}
	if cr, ok := source.(CursorReporter); ok {
		r.cursor = cr.Cursor()
	}
	return r
}

// Start runs the loop on its own goroutine until Stop or ctx cancellation.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		_ = r.Run(ctx)
	}()
}

// Stop cancels a loop launched with Start and waits for it to exit.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Run is the tick loop. It returns ctx.Err() once ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	period := time.Duration(float64(time.Second) / r.cfg.TickHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	defer r.drain()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if r.paused.Load() {
				continue
			}
			if dt := ClampDt(elapsed, r.cfg.MaxDt); dt > 0 {
				r.Step(dt)
			}
		}
	}
}

// Step advances one tick and publishes the result. Only the loop goroutine
// may call it while Run is active.
func (r *Runner) Step(dt float64) {
	c := r.cloth
	c.ClearExternalForces()

	var device mgl64.Vec3
	if r.source != nil {
		f, err := r.source.Apply(c, c.Time())
		if err != nil {
			r.lastErr.Store(errBox{err})
		}
		device = f
	}
	for i, f := range r.manual {
		ext, err := c.ExternalForceAt(i)
		if err == nil {
			err = c.SetExternalForceAt(i, ext.Add(f))
		}
		if err != nil {
			r.lastErr.Store(errBox{fmt.Errorf("manual force on node %d: %w", i, err)})
		}
	}

	if err := c.Advance(dt); err != nil {
		r.lastErr.Store(errBox{err})
		return
	}
	r.ticks.Add(1)
	r.publish(device)
}

func (r *Runner) publish(device mgl64.Vec3) {
	r.back = r.cloth.Snapshot(r.back)
	var cursor mgl64.Vec3
	if cr, ok := r.source.(CursorReporter); ok {
		cursor = cr.Cursor()
	}

	r.mu.Lock()
	r.front, r.back = r.back, r.front
	r.device = device
	r.cursor = cursor
	r.mu.Unlock()
}

func (r *Runner) handleCommand(cmd any) {
	switch m := cmd.(type) {
	case SetForce:
		var err error
		if _, err = r.cloth.ExternalForceAt(m.Index); err == nil {
			if m.Force == (mgl64.Vec3{}) {
				delete(r.manual, m.Index)
			} else {
				r.manual[m.Index] = m.Force
			}
		}
		if m.Reply != nil {
			m.Reply <- err
		}
	case ClearForces:
		clear(r.manual)
		r.cloth.ClearExternalForces()
	case ResetCloth:
		clear(r.manual)
		r.cloth.Reset()
		r.publish(mgl64.Vec3{})
	case Pause:
		r.paused.Store(m.Paused)
	case MoveCursor:
		if cm, ok := r.source.(CursorMover); ok {
			cm.SetCursor(m.Pos)
		}
	case Tune:
		if m.Apply != nil {
			m.Apply(r.cloth)
		}
	}
}

// drain answers pending replies after the loop exits so senders never block.
func (r *Runner) drain() {
	for {
		select {
		case cmd := <-r.Inbox:
			if m, ok := cmd.(SetForce); ok && m.Reply != nil {
				m.Reply <- ErrRunnerStopped
			}
		default:
			return
		}
	}
}

// Read copies the latest published snapshot into dst and returns it along
// with the device force of that tick.
func (r *Runner) Read(dst *cloth.Snapshot) (*cloth.Snapshot, mgl64.Vec3) {
	if dst == nil {
		dst = &cloth.Snapshot{}
	}
	r.mu.RLock()
	copySnapshot(dst, r.front)
	device := r.device
	r.mu.RUnlock()
	return dst, device
}

// Acquire returns a pooled copy of the latest snapshot. Hand it back with
// Release when done.
func (r *Runner) Acquire() (*cloth.Snapshot, mgl64.Vec3) {
	return r.Read(r.pool.Get())
}

func (r *Runner) Release(s *cloth.Snapshot) { r.pool.Put(s) }

// Cursor returns the cursor position published with the latest snapshot.
func (r *Runner) Cursor() mgl64.Vec3 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

func (r *Runner) Ticks() int64 { return r.ticks.Load() }
func (r *Runner) Paused() bool { return r.paused.Load() }
func (r *Runner) Nodes() int   { return r.cloth.Nodes() }

func (r *Runner) FixedIndices() []int {
	return r.cloth.FixedIndices()
}

// Err returns the last error raised inside the loop, if any.
func (r *Runner) Err() error {
	if b, ok := r.lastErr.Load().(errBox); ok {
		return b.err
	}
	return nil
}

// SetForce sends a force command and waits for the loop to validate it.
func (r *Runner) SetForce(ctx context.Context, index int, f mgl64.Vec3) error {
	reply := make(chan error, 1)
	select {
	case r.Inbox <- SetForce{Index: index, Force: f, Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type errBox struct{ err error }

// ClampDt converts a wall-clock gap to a tick dt no larger than max.
func ClampDt(elapsed, max time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed > max {
		elapsed = max
	}
	return elapsed.Seconds()
}
