package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrEmptyPacket = errors.New("empty packet")
	ErrWrongState  = errors.New("opcode not allowed in session state")
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateHandshake SessionState = iota // connected, awaiting C_HELLO
	StateObserving                     // receiving the feed, no player
	StateInWorld                       // controls a player
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateObserving:
		return "Observing"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	refused  map[SessionState]int
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		refused:  make(map[SessionState]int),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the session
// state, and calls the handler. Unknown opcodes are ignored; an opcode sent
// in the wrong state is an error.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	op := data[0]
	entry, ok := reg.handlers[op]
	if !ok {
		reg.log.Debug("unknown opcode", zap.String("opcode", OpcodeName(op)), zap.Stringer("state", state))
		return nil // newer clients may send opcodes we do not know
	}
	if !entry.allowedStates[state] {
		reg.refused[state]++
		return fmt.Errorf("%w: %s in %s", ErrWrongState, OpcodeName(op), state)
	}
	reg.log.Debug("packet", zap.String("opcode", OpcodeName(op)), zap.Int("size", len(data)), zap.Stringer("state", state))
	return reg.safeCall(entry.fn, sess, NewReader(data), op)
}

// Refused counts packets dropped for arriving in the wrong state.
func (reg *Registry) Refused(state SessionState) int {
	return reg.refused[state]
}

// safeCall runs a handler so that a bad packet cannot take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, op byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered", zap.String("opcode", OpcodeName(op)), zap.Any("panic", rec))
			err = fmt.Errorf("handler panic for %s: %v", OpcodeName(op), rec)
		}
	}()
	fn(sess, r)
	return nil
}
