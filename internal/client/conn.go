package client

import (
	"errors"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	helloGreeting    = "Hello from client"
)

// Status of the single logical connection.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// ErrorKind is the closed classification of terminal transport failures,
// produced once at the boundary. The state machine branches on these
// values; no error text escapes the worker.
type ErrorKind int32

const (
	ErrNone ErrorKind = iota

	// ErrHandshakeTimeout means the remote accepted nothing in time,
	// the signature of a cold-booting host. Benign: wait and retry.
	ErrHandshakeTimeout

	// ErrConnectionRefused covers hard refusals, DNS failures and HTTP
	// 403/404 handshakes. Developer/config error, no auto-retry.
	ErrConnectionRefused

	// ErrOther is any other failure, treated as a generic disconnect.
	ErrOther
)

// Conn is everything a worker shares with the game loop: the two queues
// plus the status flags. A fresh Conn is bound on every attempt so the
// loop never reads leftovers from a dead worker.
type Conn struct {
	status    atomic.Int32
	lastError atomic.Int32

	in  chan []byte
	out chan []byte
}

func newConn() *Conn {
	c := &Conn{
		in:  make(chan []byte, 128),
		out: make(chan []byte, 64),
	}
	c.status.Store(int32(StatusConnecting))
	return c
}

func (c *Conn) Status() Status       { return Status(c.status.Load()) }
func (c *Conn) Connected() bool      { return c.Status() == StatusConnected }
func (c *Conn) LastError() ErrorKind { return ErrorKind(c.lastError.Load()) }

// TryRecv pops one inbound frame without blocking.
func (c *Conn) TryRecv() ([]byte, bool) {
	select {
	case msg := <-c.in:
		return msg, true
	default:
		return nil, false
	}
}

// Send queues one outbound frame without blocking. Frames queued while the
// buffer is full are dropped; everything here is a small control message
// the server re-broadcasts anyway.
func (c *Conn) Send(msg []byte) {
	select {
	case c.out <- msg:
	default:
	}
}

func (c *Conn) fail(kind ErrorKind) {
	c.lastError.Store(int32(kind))
	c.status.Store(int32(StatusDisconnected))
	c.drain()
}

func (c *Conn) drain() {
	for {
		select {
		case <-c.in:
		case <-c.out:
		default:
			return
		}
	}
}

// Worker owns at most one live connection attempt. Start is idempotent
// through a liveness flag rather than a lock, so the one-frame window where
// an old worker is still unwinding is tolerated, not excluded. There is no
// forced cancellation; a worker only exits on transport failure.
type Worker struct {
	URL string

	alive atomic.Bool
	conn  atomic.Pointer[Conn]
}

func NewWorker(url string) *Worker {
	return &Worker{URL: url}
}

// State returns the Conn of the current (or last) attempt. Nil before the
// first Start.
func (w *Worker) State() *Conn {
	return w.conn.Load()
}

func (w *Worker) Alive() bool {
	return w.alive.Load()
}

// Start spawns a worker bound to a fresh Conn. No-op while a worker is
// still alive.
func (w *Worker) Start() {
	if !w.alive.CompareAndSwap(false, true) {
		return
	}
	c := newConn()
	w.conn.Store(c)
	go w.pump(c)
}

// pump runs the whole lifecycle of one connection attempt. It never
// panics or returns an error across this boundary: every failure is
// classified into c and the worker simply exits.
func (w *Worker) pump(c *Conn) {
	defer w.alive.Store(false)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, resp, err := dialer.Dial(w.URL, nil)
	if err != nil {
		kind := classifyDial(err, resp)
		log.Printf("worker: dial failed (%v): %v", kind, err)
		c.fail(kind)
		return
	}
	defer ws.Close()

	c.lastError.Store(int32(ErrNone))
	c.status.Store(int32(StatusConnected))
	log.Printf("worker: connected to server")

	_ = ws.WriteMessage(websocket.TextMessage, []byte(helloGreeting))

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			c.in <- data
		}
	}()

	for {
		select {
		case err := <-readErr:
			log.Printf("worker: read failed: %v", err)
			c.fail(ErrOther)
			return

		case msg := <-c.out:
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("worker: write failed: %v", err)
				c.fail(ErrOther)
				return
			}
		}
	}
}

// classifyDial translates a dial failure into the closed ErrorKind set.
// resp is non-nil only for rejected HTTP handshakes.
func classifyDial(err error, resp *http.Response) ErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrHandshakeTimeout
	}
	if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusNotFound:
			return ErrConnectionRefused
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnectionRefused
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}
	return ErrOther
}

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrHandshakeTimeout:
		return "handshake_timeout"
	case ErrConnectionRefused:
		return "connection_refused"
	default:
		return "other"
	}
}
