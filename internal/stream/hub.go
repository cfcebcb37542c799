package stream

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

const DefaultBroadcastHz = 60.0

type Conn interface {
	Send([]byte) error
	Close() error
}

// Join is issued once per client after its hello is parsed.
type Join struct {
	Conn  Conn
	Name  string
	Reply chan<- JoinResult
}

type JoinResult struct {
	ClientID string
}

// Incoming carries a decoded client message to the hub.
type Incoming struct {
	ClientID string
	Env      Envelope
}

type Leave struct {
	ClientID string
}

// Hub fans runner snapshots out to connected clients and forwards their
// input to the runner. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	Inbox chan any

	runner  *sim.Runner
	period  time.Duration
	welcome Welcome
	clients map[string]Conn
	nextID  int
	snap    *cloth.Snapshot
	logger  *log.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewHub prepares a hub for r. The topology in the welcome message is taken
// from c, which must be the runner's cloth and must not be stepped by the
// caller.
func NewHub(r *sim.Runner, c *cloth.Cloth, broadcastHz float64, logger *log.Logger) *Hub {
	if broadcastHz <= 0 {
		broadcastHz = DefaultBroadcastHz
	}
	if logger == nil {
		logger = log.Default()
	}
	cols, rows := c.Dims()
	return &Hub{
		Inbox:  make(chan any, 256),
		runner: r,
		period: time.Duration(float64(time.Second) / broadcastHz),
		welcome: Welcome{
			Cols:        cols,
			Rows:        rows,
			Fixed:       c.FixedIndices(),
			Triangles:   c.Triangles(),
			BroadcastHz: broadcastHz,
		},
		clients: make(map[string]Conn),
		nextID:  1,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (h *Hub) NumClients() int { return len(h.clients) }

// Run broadcasts until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	defer func() {
		for id := range h.clients {
			h.remove(id)
		}
		h.doneOnce.Do(func() { close(h.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-h.Inbox:
			h.handleCommand(cmd)
		case <-ticker.C:
			h.broadcastState()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// post queues cmd on the inbox. It gives up and reports false when the hub
// has stopped or ctx is cancelled.
func (h *Hub) post(ctx context.Context, cmd any) bool {
	select {
	case h.Inbox <- cmd:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		id := fmt.Sprintf("c%d", h.nextID)
		h.nextID++
		h.clients[id] = c.Conn
		h.logger.Printf("stream: %s joined (%s)", id, c.Name)

		w := h.welcome
		w.ClientID = id
		if b, err := Encode(MsgWelcome, w); err == nil {
			_ = c.Conn.Send(b)
		}
		h.sendStateTo(c.Conn)
		if c.Reply != nil {
			c.Reply <- JoinResult{ClientID: id}
		}
	case Incoming:
		if _, ok := h.clients[c.ClientID]; !ok {
			return
		}
		if err := h.forward(c.Env); err != nil {
			h.sendError(c.ClientID, err)
		}
	case Leave:
		if _, ok := h.clients[c.ClientID]; ok {
			h.logger.Printf("stream: %s left", c.ClientID)
			h.remove(c.ClientID)
		}
	}
}

// forward translates a client message into a runner command.
func (h *Hub) forward(env Envelope) error {
	var cmd any
	switch env.T {
	case MsgCursor:
		m, err := DecodePayload[Cursor](env)
		if err != nil {
			return err
		}
		cmd = sim.MoveCursor{Pos: mgl64.Vec3(m.Pos)}
	case MsgForce:
		m, err := DecodePayload[Force](env)
		if err != nil {
			return err
		}
		if m.Index < 0 || m.Index >= h.runner.Nodes() {
			return fmt.Errorf("%w: index %d", cloth.ErrNodeOutOfRange, m.Index)
		}
		cmd = sim.SetForce{Index: m.Index, Force: mgl64.Vec3(m.F)}
	case MsgCommand:
		m, err := DecodePayload[Command](env)
		if err != nil {
			return err
		}
		switch m.Op {
		case OpPause:
			cmd = sim.Pause{Paused: true}
		case OpResume:
			cmd = sim.Pause{Paused: false}
		case OpReset:
			cmd = sim.ResetCloth{}
		case OpClear:
			cmd = sim.ClearForces{}
		default:
			return fmt.Errorf("unknown command %q", m.Op)
		}
	default:
		return fmt.Errorf("unexpected message type %q", env.T)
	}

	select {
	case h.runner.Inbox <- cmd:
		return nil
	default:
		return fmt.Errorf("runner busy, dropped %s", env.T)
	}
}

func (h *Hub) buildState() State {
	var device mgl64.Vec3
	h.snap, device = h.runner.Read(h.snap)
	return State{
		Tick:      h.snap.Tick,
		Time:      h.snap.Time,
		Positions: h.snap.Flatten(),
		Device:    device,
		Cursor:    h.runner.Cursor(),
	}
}

func (h *Hub) broadcastState() {
	if len(h.clients) == 0 {
		return
	}
	b, err := Encode(MsgState, h.buildState())
	if err != nil {
		return
	}

	var failed []string
	for id, c := range h.clients {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.logger.Printf("stream: dropping %s after failed send", id)
		h.remove(id)
	}
}

func (h *Hub) sendStateTo(c Conn) {
	if b, err := Encode(MsgState, h.buildState()); err == nil {
		_ = c.Send(b)
	}
}

func (h *Hub) sendError(id string, err error) {
	if b, e := Encode(MsgError, Error{Message: err.Error()}); e == nil {
		_ = h.clients[id].Send(b)
	}
}

func (h *Hub) remove(id string) {
	if c, ok := h.clients[id]; ok {
		_ = c.Close()
	}
	delete(h.clients, id)
}
