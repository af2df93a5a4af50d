package collab

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

/*
LEARNING: CONNECTION LIFECYCLE STATE MACHINE

The connection manager owns exactly one websocket per session and walks it
through Idle -> Connecting -> Open -> Closing -> Closed. A Closed connection
re-enters Connecting only when the close was unclean and the retry budget
(5 attempts, exponential backoff capped at 30s) is not exhausted; otherwise
it parks in Failed until the user asks for a manual reconnect.

Dialing and reading happen on their own goroutines, but they never mutate
state directly - they push events into a channel the session's event loop
drains, so every transition runs on one goroutine.
*/

// ConnState is the lifecycle state of the collaboration socket.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CloseCodeClean is the reserved close code meaning "intentional, do not
// retry". It is the path used when the document view unmounts.
const CloseCodeClean = websocket.CloseNormalClosure // 1000

type connEventKind int

const (
	connOpened connEventKind = iota
	connErrored
	connClosed
	connFrame
)

// connEvent is what the dial/read goroutines report back to the event loop.
// The epoch tags events with the physical connection they came from, so a
// late read from a dead socket can never corrupt the current one.
type connEvent struct {
	kind   connEventKind
	epoch  int
	ws     *websocket.Conn
	frame  *Frame
	code   int
	reason string
	err    error
}

// connManager drives the websocket lifecycle for one session.
// All methods must be called from the session event loop.
type connManager struct {
	opts   *Options
	dialer *websocket.Dialer

	events chan connEvent

	state    ConnState
	ws       *websocket.Conn
	epoch    int
	attempt  int
	lastErr  string
	lastPong time.Time // recorded but never enforced (one-directional heartbeat)
}

func newConnManager(opts *Options) *connManager {
	return &connManager{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		events: make(chan connEvent, 32),
		state:  StateIdle,
	}
}

// connectURL builds the per-document endpoint with the session identity in
// the query string, URL-encoded.
func (c *connManager) connectURL() string {
	q := url.Values{}
	q.Set("user_id", c.opts.UserID)
	q.Set("user_name", c.opts.UserName)
	return fmt.Sprintf("%s/%s?%s", c.opts.URL, url.PathEscape(c.opts.DocumentID), q.Encode())
}

// connect dials asynchronously. No-op if already connecting or open.
func (c *connManager) connect() {
	if c.state == StateConnecting || c.state == StateOpen {
		return
	}

	c.state = StateConnecting
	c.epoch++
	epoch := c.epoch
	endpoint := c.connectURL()

	go func() {
		ws, _, err := c.dialer.Dial(endpoint, nil)
		if err != nil {
			// A failed dial reports an error followed by a close event,
			// the same sequence a browser socket produces. The close event
			// is what drives the retry state machine.
			c.events <- connEvent{kind: connErrored, epoch: epoch, err: err}
			c.events <- connEvent{kind: connClosed, epoch: epoch, code: websocket.CloseAbnormalClosure}
			return
		}
		c.events <- connEvent{kind: connOpened, epoch: epoch, ws: ws}
	}()
}

// handleOpened installs the freshly dialed socket and starts its reader.
// Returns false if the event belongs to a connection we already abandoned.
func (c *connManager) handleOpened(ev connEvent) bool {
	if ev.epoch != c.epoch {
		// Stale dial from before a reconnect; drop the socket.
		ev.ws.Close()
		return false
	}

	c.ws = ev.ws
	c.state = StateOpen
	c.attempt = 0
	c.lastErr = ""

	go c.readLoop(ev.ws, ev.epoch)
	return true
}

// readLoop pumps inbound frames into the event channel until the socket dies.
func (c *connManager) readLoop(ws *websocket.Conn, epoch int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			reason := ""
			if closeErr, ok := err.(*websocket.CloseError); ok {
				code = closeErr.Code
				reason = closeErr.Text
			}
			c.events <- connEvent{kind: connClosed, epoch: epoch, code: code, reason: reason}
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			// Malformed frames are logged and ignored; they never affect
			// connection state.
			log.Printf("collab: dropping malformed frame: %v", err)
			continue
		}

		c.events <- connEvent{kind: connFrame, epoch: epoch, frame: frame}
	}
}

// retryDelay is the backoff before automatic reconnect attempt n (0-based):
// min(base * 2^n, max). Defaults give 1s, 2s, 4s, 8s, 16s.
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	return d
}

// handleClosed transitions to Closed and decides whether to schedule a retry.
// It returns the backoff delay, or a negative duration when no retry should
// be scheduled (clean close, stale event, or exhausted budget).
func (c *connManager) handleClosed(ev connEvent) time.Duration {
	if ev.epoch != c.epoch {
		return -1
	}

	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.state = StateClosed

	if ev.code == CloseCodeClean {
		// Intentional close; never retried.
		return -1
	}

	if c.attempt < c.opts.MaxReconnectAttempts {
		delay := retryDelay(c.attempt, c.opts.BackoffBase, c.opts.BackoffMax)
		c.attempt++
		log.Printf("collab: connection to document %s lost (code %d), retrying in %s (attempt %d/%d)",
			c.opts.DocumentID, ev.code, delay, c.attempt, c.opts.MaxReconnectAttempts)
		return delay
	}

	c.state = StateFailed
	c.lastErr = "failed to reconnect after multiple attempts"
	return -1
}

// send transmits a frame if and only if the connection is open. Anything
// else is a silent drop: delivery is best-effort and nothing is queued.
func (c *connManager) send(f *Frame) bool {
	if c.state != StateOpen || c.ws == nil {
		return false
	}

	data, err := f.Encode()
	if err != nil {
		log.Printf("collab: %v", err)
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		// The read loop will observe the broken socket and report the close.
		c.lastErr = fmt.Sprintf("connection error: %v", err)
		return false
	}
	return true
}

// forceClose tears the current socket down without a clean close code, so a
// manual reconnect can start from scratch. Resets the retry budget.
func (c *connManager) forceClose() {
	c.epoch++ // orphan any in-flight dial or reader
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.state = StateClosed
	c.attempt = 0
	c.lastErr = ""
}

// shutdown performs the clean close used at session teardown: write the
// reserved close code so the server (and this client's own state machine)
// knows not to retry.
func (c *connManager) shutdown() {
	c.epoch++
	if c.ws != nil {
		c.state = StateClosing
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(CloseCodeClean, "session closed")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("collab: failed to send close frame: %v", err)
		}
		c.ws.Close()
		c.ws = nil
	}
	c.state = StateClosed
}
