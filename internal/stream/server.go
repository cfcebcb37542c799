package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// Server upgrades HTTP requests on /ws and attaches them to a hub.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewServer(h *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			// viewers are local tools; origin checks are left to a proxy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *wsConn) Close() error { return c.conn.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Println("upgrade:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	hello, err := readHello(conn)
	if err != nil {
		s.logger.Println("hello:", err)
		return
	}

	wc := &wsConn{conn: conn}
	reply := make(chan JoinResult, 1)
	if !s.hub.post(r.Context(), Join{Conn: wc, Name: hello.Name, Reply: reply}) {
		return
	}
	var id string
	select {
	case res := <-reply:
		id = res.ClientID
	case <-s.hub.Done():
		return
	case <-r.Context().Done():
		return
	}
	// leave must reach the hub even after the request context ends
	defer s.hub.post(context.Background(), Leave{ClientID: id})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Println("read:", err)
			}
			return
		}
		env, err := DecodeEnvelope(msg)
		if err != nil {
			s.logger.Printf("stream: %s sent bad envelope: %v", id, err)
			continue
		}
		if !s.hub.post(r.Context(), Incoming{ClientID: id, Env: env}) {
			return
		}
	}
}

func readHello(conn *websocket.Conn) (Hello, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return Hello{}, err
	}
	env, err := DecodeEnvelope(msg)
	if err != nil {
		return Hello{}, err
	}
	if env.T != MsgHello {
		return Hello{}, errors.New("first message must be hello")
	}
	return DecodePayload[Hello](env)
}

// ListenAndServe serves the websocket endpoint on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Printf("listening on %s (ws endpoint: /ws)", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
