package stream

import (
	"encoding/json"
	"fmt"
)

// Message types carried in Envelope.T.
const (
	MsgHello   = "hello"
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgCursor  = "cursor"
	MsgForce   = "force"
	MsgCommand = "command"
	MsgError   = "error"
)

const ProtocolVersion = 1

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Hello is the first message a client sends.
type Hello struct {
	V    int    `json:"v"`
	Name string `json:"name,omitempty"`
}

// Welcome carries the static topology so clients can build their mesh once.
type Welcome struct {
	ClientID    string   `json:"clientId"`
	Cols        int      `json:"cols"`
	Rows        int      `json:"rows"`
	Fixed       []int    `json:"fixed"`
	Triangles   []uint32 `json:"triangles"`
	BroadcastHz float64  `json:"broadcastHz"`
}

// State is one published snapshot. Positions are flattened x,y,z triples in
// node index order.
type State struct {
	Tick      int        `json:"tick"`
	Time      float64    `json:"time"`
	Positions []float64  `json:"positions"`
	Device    [3]float64 `json:"device"`
	Cursor    [3]float64 `json:"cursor"`
}

// Cursor moves the contact cursor.
type Cursor struct {
	Pos [3]float64 `json:"pos"`
}

// Force sets a persistent external force on one node; a zero force removes it.
type Force struct {
	Index int        `json:"index"`
	F     [3]float64 `json:"f"`
}

// Command ops.
const (
	OpPause  = "pause"
	OpResume = "resume"
	OpReset  = "reset"
	OpClear  = "clear"
)

type Command struct {
	Op string `json:"op"`
}

type Error struct {
	Message string `json:"message"`
}

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty envelope type")
	}
	if payload == nil {
		return nil, fmt.Errorf("encode %s: nil payload", t)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty message")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
