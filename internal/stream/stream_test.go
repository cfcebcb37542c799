package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

type fakeConn struct {
	sendCh chan []byte
	fail   bool
	closed bool
}

func (f *fakeConn) Send(b []byte) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sendCh <- cp
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newHub(t *testing.T) (*Hub, *sim.Runner) {
	t.Helper()
	p := cloth.DefaultParams()
	p.Grid.Cols, p.Grid.Rows = 4, 4
	c, err := cloth.New(p)
	if err != nil {
		t.Fatal(err)
	}
	r := sim.NewRunner(c, nil, sim.DefaultRunnerConfig())
	return NewHub(r, c, 100, log.New(io.Discard, "", 0)), r
}

func next[T any](t *testing.T, fc *fakeConn, typ string) T {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case b := <-fc.sendCh:
			env, err := DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.T != typ {
				continue
			}
			out, err := DecodePayload[T](env)
			if err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
			return out
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	b, err := Encode(MsgForce, Force{Index: 3, F: [3]float64{0, 1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	env, err := DecodeEnvelope(b)
	if err != nil || env.T != MsgForce {
		t.Fatalf("envelope %+v, err %v", env, err)
	}
	f, err := DecodePayload[Force](env)
	if err != nil || f.Index != 3 || f.F[1] != 1 {
		t.Errorf("payload %+v, err %v", f, err)
	}

	if _, err := Encode("", Force{}); err == nil {
		t.Error("expected error for empty type")
	}
	if _, err := DecodeEnvelope(nil); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := DecodePayload[Force](Envelope{T: MsgForce}); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestHubJoinSendsWelcomeAndState(t *testing.T) {
	h, r := newHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	r.Step(0.001)

	fc := &fakeConn{sendCh: make(chan []byte, 64)}
	reply := make(chan JoinResult, 1)
	h.Inbox <- Join{Conn: fc, Name: "viewer", Reply: reply}
	res := <-reply
	if res.ClientID == "" {
		t.Fatal("expected client id")
	}

	w := next[Welcome](t, fc, MsgWelcome)
	if w.ClientID != res.ClientID || w.Cols != 4 || w.Rows != 4 {
		t.Errorf("unexpected welcome %+v", w)
	}
	if len(w.Fixed) != 4 || len(w.Triangles) != 3*3*2*3 {
		t.Errorf("expected 4 fixed and 54 triangle indices, got %d and %d", len(w.Fixed), len(w.Triangles))
	}

	st := next[State](t, fc, MsgState)
	if st.Tick != 1 || len(st.Positions) != 16*3 {
		t.Errorf("unexpected state tick %d with %d coords", st.Tick, len(st.Positions))
	}
}

func TestHubForwardsInput(t *testing.T) {
	h, r := newHub(t)
	fc := &fakeConn{sendCh: make(chan []byte, 64)}
	h.handleCommand(Join{Conn: fc})

	send := func(typ string, payload any) {
		b, err := Encode(typ, payload)
		if err != nil {
			t.Fatal(err)
		}
		env, _ := DecodeEnvelope(b)
		h.handleCommand(Incoming{ClientID: "c1", Env: env})
	}

	send(MsgCursor, Cursor{Pos: [3]float64{1, 2, 3}})
	if cmd := <-r.Inbox; cmd != (sim.MoveCursor{Pos: mgl64.Vec3{1, 2, 3}}) {
		t.Errorf("expected MoveCursor, got %#v", cmd)
	}

	send(MsgCommand, Command{Op: OpPause})
	if cmd := <-r.Inbox; cmd != (sim.Pause{Paused: true}) {
		t.Errorf("expected Pause, got %#v", cmd)
	}

	send(MsgForce, Force{Index: 99})
	e := next[Error](t, fc, MsgError)
	if !strings.Contains(e.Message, "out of range") {
		t.Errorf("unexpected error message %q", e.Message)
	}
	select {
	case cmd := <-r.Inbox:
		t.Errorf("out-of-range force should not reach the runner, got %#v", cmd)
	default:
	}
}

func TestHubDropsFailedClients(t *testing.T) {
	h, _ := newHub(t)
	good := &fakeConn{sendCh: make(chan []byte, 64)}
	bad := &fakeConn{sendCh: make(chan []byte, 64)}
	h.handleCommand(Join{Conn: good})
	h.handleCommand(Join{Conn: bad})
	bad.fail = true

	h.broadcastState()
	if h.NumClients() != 1 || !bad.closed {
		t.Errorf("expected failed client removed, %d left", h.NumClients())
	}

	h.handleCommand(Leave{ClientID: "c1"})
	if h.NumClients() != 0 || !good.closed {
		t.Error("leave should close and remove the client")
	}
}

func TestPostAfterHubStops(t *testing.T) {
	h, _ := newHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	finished := make(chan int)
	go func() {
		accepted := 0
		for i := 0; i < 2*cap(h.Inbox); i++ {
			if h.post(context.Background(), Leave{ClientID: "c1"}) {
				accepted++
			}
		}
		finished <- accepted
	}()

	select {
	case accepted := <-finished:
		if accepted > cap(h.Inbox) {
			t.Errorf("accepted %d posts into a %d slot inbox", accepted, cap(h.Inbox))
		}
	case <-time.After(time.Second):
		t.Fatal("post blocked after the hub stopped")
	}
}

func TestServerHandshake(t *testing.T) {
	h, _ := newHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(NewServer(h, log.New(io.Discard, "", 0)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	b, _ := Encode(MsgHello, Hello{V: ProtocolVersion, Name: "test"})
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	env, err := DecodeEnvelope(msg)
	if err != nil || env.T != MsgWelcome {
		t.Fatalf("expected welcome first, got %q (%v)", env.T, err)
	}
}
