package nodebrain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	listenerWriteWait = 10 * time.Second
	listenerReadWait  = 60 * time.Second
)

// listener wraps one duplex connection registered with ListenerAdd: a
// read pump that dispatches each incoming line through Engine.Cmd and
// writes the result back, grounded on the teacher's Client.readPump/
// writePump split (internal/infrastructure/websocket/client.go), adapted
// from a pub/sub event hub to a request/response command console.
type listener struct {
	id   string
	conn *websocket.Conn
	done chan struct{}
}

type listenerCmd struct {
	Line string `json:"line"`
}

type listenerReply struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (l *listener) close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.conn.Close()
}

// ListenerAdd registers conn as a live duplex console: NodeBrain's
// platform event loop primitive (spec.md §5), the concrete channel an
// external collaborator (a log tail, a remote command console) uses to
// drive Cmd without polling.
func (e *Engine) ListenerAdd(id string, conn *websocket.Conn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.listeners[id]; exists {
		return fmt.Errorf("nodebrain: listener %q already registered", id)
	}
	e.listeners[id] = &listener{id: id, conn: conn, done: make(chan struct{})}
	return nil
}

// ListenerAddAuto registers conn under a fresh UUID, for a front end
// that has no natural connection identity of its own to hand in —
// grounded on the teacher's websocket handler, which mints a
// uuid.New().String() client ID at upgrade time rather than requiring
// the caller to name the connection.
func (e *Engine) ListenerAddAuto(conn *websocket.Conn) (string, error) {
	id := uuid.New().String()
	if err := e.ListenerAdd(id, conn); err != nil {
		return "", err
	}
	return id, nil
}

// ListenerRemove closes and forgets the named listener.
func (e *Engine) ListenerRemove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.listeners[id]
	if !ok {
		return fmt.Errorf("nodebrain: listener %q not registered", id)
	}
	l.close()
	delete(e.listeners, id)
	return nil
}

// ListenerStart runs the engine's main loop: one goroutine per
// registered listener reading commands off its connection, and a timer
// pump driving internal/timecond's Queue off its own next-alarm
// deadline. Both only ever call back into the engine synchronously, per
// spec.md §5's single-threaded discipline — no node evaluation runs
// concurrently with another.
func (e *Engine) ListenerStart(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("nodebrain: engine not started")
	}
	conns := make([]*listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		conns = append(conns, l)
	}
	e.mu.Unlock()

	for _, l := range conns {
		go e.runListener(ctx, l)
	}
	go e.runTimerPump(ctx)
	return nil
}

func (e *Engine) runListener(ctx context.Context, l *listener) {
	defer l.close()
	l.conn.SetReadDeadline(time.Now().Add(listenerReadWait))
	for {
		select {
		case <-l.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd listenerCmd
		reply := listenerReply{}
		if err := json.Unmarshal(payload, &cmd); err != nil {
			reply.Error = "invalid command format"
		} else if result, err := e.Cmd(ctx, cmd.Line); err != nil {
			reply.Error = err.Error()
		} else {
			reply.Result = result
		}

		body, _ := json.Marshal(reply)
		l.conn.SetWriteDeadline(time.Now().Add(listenerWriteWait))
		if err := l.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return
		}
	}
}

// runTimerPump sleeps until the timer queue's next alarm and ticks it,
// the way the engine's main loop wraps the timer queue's own deadline
// (spec.md §5) instead of polling on a fixed interval.
func (e *Engine) runTimerPump(ctx context.Context) {
	for {
		next, ok := e.timers.Next()
		var wait time.Duration
		if ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		} else {
			wait = time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			e.timers.Tick(ctx, now)
			e.scheduler.RunReady(ctx)
		}

		e.mu.Lock()
		running := e.started
		e.mu.Unlock()
		if !running {
			return
		}
	}
}
