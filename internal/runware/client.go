package runware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codefionn/charwizard/internal/consts"
	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/juju/clock"
)

// Config holds client configuration
type Config struct {
	// Endpoint is the WebSocket URL of the image-generation service
	Endpoint string
	// ReconnectDelay is the fixed pause before every reconnect attempt
	ReconnectDelay time.Duration
	// MaxReconnectAttempts caps consecutive automatic reconnects; 0 retries forever
	MaxReconnectAttempts int
	// HandshakeTimeout bounds the HTTP upgrade of a dial
	HandshakeTimeout time.Duration
	// WriteTimeout bounds a single frame write
	WriteTimeout time.Duration
	// MaxFrameSize is the read limit for inbound frames
	MaxFrameSize int64
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint:             consts.RunwareEndpoint,
		ReconnectDelay:       consts.ReconnectDelay,
		MaxReconnectAttempts: 0,
		HandshakeTimeout:     consts.Timeout10Seconds,
		WriteTimeout:         consts.WriteWait,
		MaxFrameSize:         consts.MaxFrameSize,
	}
}

// Option customises a Client.
type Option func(*Client)

// WithNotifier sets the sink for user-visible failures.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithIDGenerator sets the task identifier source.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Client) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithClock sets the clock used to schedule reconnects.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// cycle is one connect-and-authenticate attempt. Every caller that asks for
// readiness while the attempt is in flight waits on the same cycle.
type cycle struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newCycle() *cycle {
	return &cycle{done: make(chan struct{})}
}

func (cy *cycle) finish(err error) {
	cy.once.Do(func() {
		cy.err = err
		close(cy.done)
	})
}

// Client multiplexes image-generation tasks over one authenticated,
// self-healing WebSocket connection.
type Client struct {
	cfg        Config
	creds      credential.Provider
	notifier   Notifier
	ids        IDGenerator
	clock      clock.Clock
	dialer     *websocket.Dialer
	log        *logger.Logger
	correlator *Correlator

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	sessionUUID string
	cycle       *cycle
	auth        *authWaiter
	cancelDial  context.CancelFunc
	timer       clock.Timer
	timerGen    uint64
	scheduled   bool
	attempts    int
	closed      bool

	// onReady, when set, runs after a cycle reaches Ready and before its
	// waiters are released.
	onReady func()

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewClient creates a client. No connection is opened until the first call
// to Connect, EnsureReady or GenerateImage.
func NewClient(cfg *Config, creds credential.Provider, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("runware: endpoint is required")
	}
	if creds == nil {
		return nil, ErrMissingCredential
	}

	c := &Client{
		cfg:        *cfg,
		creds:      creds,
		ids:        UUIDGenerator{},
		clock:      clock.WallClock,
		log:        logger.Global().WithPrefix("runware"),
		correlator: NewCorrelator(),
		state:      StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = logNotifier{log: c.log}
	}
	if c.cfg.ReconnectDelay <= 0 {
		c.cfg.ReconnectDelay = consts.ReconnectDelay
	}
	if c.cfg.WriteTimeout <= 0 {
		c.cfg.WriteTimeout = consts.WriteWait
	}
	c.dialer = &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionUUID returns the session identifier issued by the server, or "".
func (c *Client) SessionUUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionUUID
}

// PendingTasks returns the number of tasks awaiting a response.
func (c *Client) PendingTasks() int {
	return c.correlator.Len()
}

// Connect starts connecting and waits until the connection is ready.
func (c *Client) Connect(ctx context.Context) error {
	return c.EnsureReady(ctx)
}

// EnsureReady returns once the connection is authenticated. A call made while
// a connect cycle is in flight joins that cycle; a call made while
// disconnected starts a new one. ctx only bounds this caller's wait.
func (c *Client) EnsureReady(ctx context.Context) error {
	cy, err := c.readiness()
	if err != nil {
		return err
	}
	if cy == nil {
		return nil
	}

	select {
	case <-cy.done:
		return cy.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readiness() (*cycle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return nil, ErrClosed
	case StateReady:
		return nil, nil
	case StateConnecting, StateAuthenticating:
		return c.cycle, nil
	default:
		return c.startCycleLocked(), nil
	}
}

// startCycleLocked must be called with c.mu held and the client not closed.
func (c *Client) startCycleLocked() *cycle {
	// A reconnect timer that fires after this point is stale and ignored.
	c.timerGen++
	c.scheduled = false
	c.timer = nil

	cy := newCycle()
	c.cycle = cy
	c.setStateLocked(StateConnecting)

	c.wg.Add(1)
	go c.run(cy)
	return cy
}

func (c *Client) setStateLocked(state State) {
	if c.state == state {
		return
	}
	c.log.Debug("state %s -> %s", c.state, state)
	c.state = state
}

// run performs one connect-and-authenticate cycle.
func (c *Client) run(cy *cycle) {
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cy.finish(ErrClosed)
		return
	}
	c.cancelDial = cancel
	c.mu.Unlock()

	secret, err := credential.Resolve(ctx, c.creds)
	if err != nil {
		// Nothing was sent, so there is nothing to retry.
		c.mu.Lock()
		if !c.closed {
			c.setStateLocked(StateDisconnected)
		}
		c.mu.Unlock()
		c.log.Error("No API key available, not reconnecting: %v", err)
		c.notifier.Notify(ErrMissingCredential.Error())
		cy.finish(fmt.Errorf("%w: %v", ErrMissingCredential, err))
		return
	}

	c.log.Info("Connecting to %s", c.cfg.Endpoint)
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		c.log.Error("WebSocket error: %v", err)
		c.notifier.Notify("Connection error. Please try again.")
		c.connectFailed(cy, fmt.Errorf("runware: dial %s: %w", c.cfg.Endpoint, err))
		return
	}
	if c.cfg.MaxFrameSize > 0 {
		conn.SetReadLimit(c.cfg.MaxFrameSize)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		cy.finish(ErrClosed)
		return
	}
	c.conn = conn
	c.cancelDial = nil
	waiter := newAuthWaiter()
	c.auth = waiter
	session := c.sessionUUID
	c.setStateLocked(StateAuthenticating)
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Info("WebSocket connected")
	go c.readPump(conn)

	if err := c.authenticate(conn, waiter, secret, session); err != nil {
		c.log.Error("Authentication failed: %v", err)
		cy.finish(err)
		// The read pump observes the close and schedules the reconnect.
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	if c.conn != conn || c.closed {
		c.mu.Unlock()
		cy.finish(ErrConnectionLost)
		return
	}
	c.setStateLocked(StateReady)
	c.attempts = 0
	onReady := c.onReady
	c.mu.Unlock()

	if onReady != nil {
		onReady()
	}
	cy.finish(nil)
}

// authenticate sends the handshake on conn and waits for the acknowledgement.
func (c *Client) authenticate(conn *websocket.Conn, waiter *authWaiter, secret *credential.Secret, session string) error {
	c.mu.Lock()
	open := c.conn == conn && c.state == StateAuthenticating && !c.closed
	c.mu.Unlock()
	if !open {
		return ErrSocketNotOpen
	}

	req := AuthRequest{
		TaskType:              TaskTypeAuthentication,
		APIKey:                secret.Reveal(),
		ConnectionSessionUUID: session,
	}

	c.log.Info("Sending authentication message")
	if err := c.write(conn, []AuthRequest{req}); err != nil {
		return fmt.Errorf("runware: send authentication: %w", err)
	}

	res := <-waiter.ch
	if res.err != nil {
		return res.err
	}
	if res.item.Error {
		msg := res.item.ErrorMessage
		if msg == "" {
			msg = "authentication rejected"
		}
		return &ServerError{Message: msg}
	}

	c.mu.Lock()
	if res.item.ConnectionSessionUUID != "" {
		c.sessionUUID = res.item.ConnectionSessionUUID
	}
	session = c.sessionUUID
	c.mu.Unlock()

	c.log.Info("Authentication successful, session UUID: %s", session)
	return nil
}

func (c *Client) takeAuthWaiter() *authWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.auth
	c.auth = nil
	return w
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, err)
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	c.log.Debug("WebSocket message received: %s", data)

	frame, err := DecodeFrame(data)
	if err != nil {
		c.log.Warn("Dropping malformed frame: %v", err)
		return
	}

	if frame.IsError() {
		c.handleErrorFrame(frame)
		return
	}

	for _, item := range frame.Data {
		if item.IsAuthentication() {
			if w := c.takeAuthWaiter(); w != nil {
				w.deliver(item, nil)
			} else {
				c.log.Debug("Ignoring unsolicited authentication acknowledgement")
			}
			continue
		}
		if !c.correlator.Dispatch(item) {
			c.log.Debug("No pending task for %q, dropping item", item.TaskUUID)
		}
	}
}

// handleErrorFrame rejects whichever waiter the error belongs to: a pending
// task named in the errors array, otherwise an in-flight handshake.
func (c *Client) handleErrorFrame(frame *Frame) {
	message := frame.ErrorText()
	c.log.Error("WebSocket error response: %s", message)

	handled := false
	for _, fe := range frame.Errors {
		if fe.TaskUUID == "" || fe.TaskType == TaskTypeAuthentication {
			continue
		}
		msg := fe.Message
		if msg == "" {
			msg = message
		}
		if c.correlator.Dispatch(Item{TaskUUID: fe.TaskUUID, Error: true, ErrorMessage: msg}) {
			handled = true
		}
	}
	if handled {
		return
	}

	if w := c.takeAuthWaiter(); w != nil {
		w.deliver(Item{}, &ServerError{Message: message})
		return
	}

	c.notifier.Notify(message)
}

// handleClose runs when the read pump of conn stops.
func (c *Client) handleClose(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	prev := c.state
	waiter := c.auth
	c.auth = nil
	cy := c.cycle
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	_ = conn.Close()

	if unexpectedClose(cause) {
		c.log.Error("WebSocket error: %v", cause)
		c.notifier.Notify("Connection error. Please try again.")
	}

	lost := fmt.Errorf("%w: %v", ErrConnectionLost, cause)
	if waiter != nil {
		waiter.deliver(Item{}, lost)
	}
	if cy != nil && (prev == StateConnecting || prev == StateAuthenticating) {
		cy.finish(lost)
	}

	if n := c.correlator.Len(); n > 0 {
		c.log.Warn("%d pending task(s) will not be answered on a new connection", n)
	}

	c.log.Info("WebSocket closed, attempting to reconnect...")
	c.scheduleReconnect()
}

func unexpectedClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code != websocket.CloseNormalClosure && ce.Code != websocket.CloseGoingAway
	}
	return true
}

// connectFailed handles a cycle that never produced an open socket.
func (c *Client) connectFailed(cy *cycle, err error) {
	c.mu.Lock()
	c.cancelDial = nil
	if c.closed {
		c.mu.Unlock()
		cy.finish(ErrClosed)
		return
	}
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	cy.finish(err)
	c.scheduleReconnect()
}

// scheduleReconnect arms the backoff timer. The clock is never called with
// c.mu held because fake clocks may run callbacks synchronously.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected || c.scheduled {
		c.mu.Unlock()
		return
	}
	if limit := c.cfg.MaxReconnectAttempts; limit > 0 && c.attempts >= limit {
		c.mu.Unlock()
		c.log.Warn("Giving up after %d reconnect attempts", limit)
		c.notifier.Notify(ErrReconnectExhausted.Error())
		return
	}
	c.attempts++
	c.scheduled = true
	gen := c.timerGen
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Debug("Reconnect attempt %d in %s", attempt, c.cfg.ReconnectDelay)
	timer := c.clock.AfterFunc(c.cfg.ReconnectDelay, func() { c.reconnect(gen) })

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		timer.Stop()
		return
	}
	if gen == c.timerGen {
		c.timer = timer
	}
	c.mu.Unlock()
}

func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.timerGen || c.closed || c.state != StateDisconnected {
		return
	}
	c.startCycleLocked()
}

// write sends v as one JSON text frame.
func (c *Client) write(conn *websocket.Conn, v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteJSON(v)
}

// Close stops reconnecting, closes the socket and rejects every pending task
// with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	timer := c.timer
	c.timer = nil
	c.timerGen++
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	conn := c.conn
	c.conn = nil
	waiter := c.auth
	c.auth = nil
	cy := c.cycle
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if waiter != nil {
		waiter.deliver(Item{}, ErrClosed)
	}
	if cy != nil {
		cy.finish(ErrClosed)
	}

	var err error
	if conn != nil {
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = conn.Close()
	}

	if n := c.correlator.FailAll(ErrClosed); n > 0 {
		c.log.Debug("Rejected %d pending task(s) on close", n)
	}

	c.wg.Wait()
	return err
}
