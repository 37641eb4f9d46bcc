package client

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReconnectDelay    = 5 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultPageSize          = 50
)

// Session is one logical push session for an authenticated token. It owns
// the connect/reconnect cycle, the heartbeat, the local notification set and
// its unread count, and reconciles against REST catch-up on every (re)connect.
type Session struct {
	transport Transport
	rest      *RESTClient
	wsURL     string
	log       *zap.SugaredLogger

	reconnectDelay    time.Duration
	heartbeatInterval time.Duration
	pageSize          int

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}

	mu            sync.Mutex
	state         State
	notifications []Notification
	unread        int
	conn          Conn
	subs          map[int]chan Snapshot
	nextSub       int
	started       bool
	stopped       bool
}

type Option func(*Session)

// WithTransport swaps the push transport; tests use this to run the state
// machine against a fake connection.
func WithTransport(t Transport) Option {
	return func(s *Session) { s.transport = t }
}

// WithReconnectDelay overrides the fixed delay between a dropped connection
// and the next attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Session) { s.reconnectDelay = d }
}

// WithHeartbeatInterval overrides the one-way keepalive interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Session) { s.heartbeatInterval = d }
}

// WithPageSize overrides the catch-up window size.
func WithPageSize(n int) Option {
	return func(s *Session) { s.pageSize = n }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = log }
}

// New builds a session. restBase is the HTTP origin (e.g. http://host:8000),
// wsBase the websocket origin (e.g. ws://host:8000). The token authenticates
// both paths; on the push handshake it travels as a query parameter since
// browsers cannot set headers there.
func New(restBase, wsBase, token string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport:         NewWebSocketTransport(),
		rest:              NewRESTClient(restBase, token),
		wsURL:             wsBase + "/ws/notifications?token=" + url.QueryEscape(token),
		log:               zap.NewNop().Sugar(),
		reconnectDelay:    defaultReconnectDelay,
		heartbeatInterval: defaultHeartbeatInterval,
		pageSize:          defaultPageSize,
		ctx:               ctx,
		cancel:            cancel,
		stopCh:            make(chan struct{}),
		state:             StateDisconnected,
		subs:              make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fetches the REST baseline and begins the connect loop. Calling it
// twice is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.refresh()
	go s.run()
}

// Stop ends the session deliberately: the connection is closed, no reconnect
// follows, all timers die. In-flight REST results are discarded.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.state = StateStopped
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	close(s.stopCh)
	if conn != nil {
		_ = conn.Close()
	}
	s.publish()
}

// run is the connect/read/reconnect loop. A single goroutine owns it, which
// is what guarantees at most one reconnect attempt per closed connection.
func (s *Session) run() {
	for {
		if s.isStopped() {
			return
		}
		s.setState(StateConnecting)

		conn, err := s.transport.Dial(s.ctx, s.wsURL)
		if err != nil {
			s.log.Warnw("push connect failed", "err", err)
			s.setState(StateDisconnected)
			if !s.sleep(s.reconnectDelay) {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()
		s.setState(StateConnected)

		// catch-up replaces the baseline; any push that raced the fetch is
		// deduplicated by the wholesale replace
		go s.refresh()

		hbDone := make(chan struct{})
		go s.heartbeat(conn, hbDone)

		for {
			data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleFrame(data)
		}

		close(hbDone)
		_ = conn.Close()

		s.mu.Lock()
		s.conn = nil
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}

		s.setState(StateDisconnected)
		if !s.sleep(s.reconnectDelay) {
			return
		}
	}
}

// heartbeat sends a bare keepalive on a fixed interval while the connection
// lives. One-way: no reply is expected and none is awaited.
func (s *Session) heartbeat(conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteMessage([]byte("ping")); err != nil {
				return
			}
		case <-done:
			return
		case <-s.stopCh:
			return
		}
	}
}

// handleFrame merges one inbound frame. Malformed frames and unknown event
// kinds are discarded silently for forward compatibility.
func (s *Session) handleFrame(data []byte) {
	ev, ok := decodeEvent(data)
	if !ok || ev.Event != "new_notification" {
		return
	}
	n := ev.notification()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.notifications = append([]Notification{n}, s.notifications...)
	s.unread++
	s.mu.Unlock()
	s.publish()
}

// refresh performs the REST catch-up: the fetched page and authoritative
// unread count replace local state wholesale. On failure local state stays
// stale but intact; the next reconnect retries.
func (s *Session) refresh() {
	items, err := s.rest.Notifications(s.ctx, s.pageSize)
	if err != nil {
		s.log.Warnw("catch-up fetch failed", "err", err)
		return
	}
	count, err := s.rest.UnreadCount(s.ctx)
	if err != nil {
		s.log.Warnw("unread count fetch failed", "err", err)
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.notifications = items
	s.unread = count
	s.mu.Unlock()
	s.publish()
}

// Refresh forces a REST catch-up outside the reconnect cycle.
func (s *Session) Refresh() {
	s.refresh()
}

// MarkRead optimistically flips local state before the REST call resolves;
// a failed call is returned but not rolled back.
func (s *Session) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			if !s.notifications[i].IsRead {
				s.notifications[i].IsRead = true
				if s.unread > 0 {
					s.unread--
				}
			}
			break
		}
	}
	s.mu.Unlock()
	s.publish()

	return s.rest.MarkRead(ctx, id)
}

// MarkAllRead optimistically clears the unread state, then tells the server.
func (s *Session) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()
	s.publish()

	_, err := s.rest.MarkAllRead(ctx)
	return err
}

// Snapshot returns a copy of the current local state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener for state snapshots. The current snapshot
// is delivered immediately; slow listeners drop updates rather than block
// the session. The returned func unregisters and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 16)
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

func (s *Session) snapshotLocked() Snapshot {
	items := make([]Notification, len(s.notifications))
	copy(items, s.notifications)
	return Snapshot{Notifications: items, UnreadCount: s.unread, State: s.state}
}

func (s *Session) publish() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// listener lagging, drop
		}
	}
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.publish()
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// sleep waits for the reconnect delay, returning false if the session was
// stopped while waiting.
func (s *Session) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.stopCh:
		return false
	}
}
