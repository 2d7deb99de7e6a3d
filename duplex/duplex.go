// Package duplex implements the asynchronous duplex socket transport: a TCP
// connection wrapped in two ring buffers, each serviced by a dedicated
// background goroutine, exposing a blocking byte-stream API to the
// application so it never calls read(2)/write(2) directly.
package duplex

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"pi-exchange/nsema"
	"pi-exchange/ring"
)

// DefaultBufferSize is the default capacity of each half-duplex ring.
const DefaultBufferSize = 4096

// DefaultFlushThreshold is the default byte threshold the background
// goroutines batch up to before touching the socket.
const DefaultFlushThreshold = 1

// ErrClosed is returned by Read/Write once the socket has been closed or the
// connection has been lost.
var ErrClosed = errors.New("duplex: socket closed")

// halfRing is one direction's ring: a fixed buffer plus the cursors and
// semaphores that coordinate a single producer and a single consumer
// goroutine across it. occupied tracks bytes available to the consumer;
// free tracks bytes available to the producer. Exactly one goroutine ever
// advances prodCursor, and exactly one (possibly different) goroutine ever
// advances consCursor.
type halfRing struct {
	buf        *ring.Buffer
	capacity   uint32
	prodCursor uint32
	consCursor uint32
	occupied   *nsema.Loose
	free       *nsema.Strict
}

func newHalfRing(capacity uint32) *halfRing {
	return &halfRing{
		buf:      ring.NewBuffer(int(capacity)),
		capacity: capacity,
		occupied: nsema.NewLoose(0),
		free:     nsema.NewStrict(capacity),
	}
}

// fillFromConn is the producer side pulling bytes in off a connection: wait
// for at least threshold bytes of room, then issue one scatter read for
// whatever room is currently available. Used by the reader daemon.
func (h *halfRing) fillFromConn(conn net.Conn, threshold uint32) (int, error) {
	if !h.free.Wait(threshold) {
		return 0, ErrClosed
	}
	offset := h.prodCursor
	length := h.free.Load()
	if length == 0 {
		return 0, nil
	}
	n, err := h.buf.ReadFrom(conn, int(offset), int(length))
	if n > 0 {
		h.prodCursor = (h.prodCursor + uint32(n)) % h.capacity
		h.free.Consume(uint32(n))
		h.occupied.Post(uint32(n))
	}
	return n, err
}

// drainToConn is the consumer side pushing bytes out to a connection: wait
// for at least threshold bytes of data or a flush, then issue one gather
// write for whatever is currently available. Used by the writer daemon.
func (h *halfRing) drainToConn(conn net.Conn, threshold uint32) (int, error) {
	if !h.occupied.Wait(threshold) {
		return 0, ErrClosed
	}
	offset := h.consCursor
	length := h.occupied.Load()
	if length == 0 {
		return 0, nil
	}
	n, err := h.buf.WriteTo(conn, int(offset), int(length))
	if n > 0 {
		h.consCursor = (h.consCursor + uint32(n)) % h.capacity
		h.occupied.Consume(uint32(n))
		h.free.Post(uint32(n))
	}
	return n, err
}

// fillFromMemory is the producer side copying application bytes into the
// ring. Used by the application's Write.
func (h *halfRing) fillFromMemory(src []byte) error {
	n := uint32(len(src))
	if !h.free.Wait(n) {
		return ErrClosed
	}
	offset := h.prodCursor
	h.buf.Write(src, int(offset), len(src))
	h.prodCursor = (h.prodCursor + n) % h.capacity
	h.free.Consume(n)
	h.occupied.Post(n)
	return nil
}

// drainToMemory is the consumer side copying ring bytes out to the
// application. Used by the application's Read.
func (h *halfRing) drainToMemory(dst []byte) error {
	n := uint32(len(dst))
	if !h.occupied.Wait(n) {
		return ErrClosed
	}
	offset := h.consCursor
	h.buf.Read(dst, int(offset), len(dst))
	h.consCursor = (h.consCursor + n) % h.capacity
	h.occupied.Consume(n)
	h.free.Post(n)
	return nil
}

func (h *halfRing) terminate() {
	h.occupied.Terminate()
	h.free.Terminate()
}

// Options configures a Socket's ring capacity and batching threshold.
type Options struct {
	BufferSize     uint32
	FlushThreshold uint32
}

func (o Options) withDefaults() Options {
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.FlushThreshold == 0 {
		o.FlushThreshold = DefaultFlushThreshold
	}
	return o
}

// Socket is one end of a duplex byte-stream connection. It is not
// thread-safe across multiple readers or multiple writers: exactly one
// goroutine may call Read, and exactly one goroutine may call Write/Flush.
// Close may be called while a Read or Write is blocked, and wakes it.
type Socket struct {
	conn   net.Conn
	opts   Options
	reader *halfRing
	writer *halfRing
	done   chan struct{}
	wg     sync.WaitGroup // tracks readerDaemon/writerDaemon, joined by Close
}

// reusePortControl sets SO_REUSEADDR on the listening socket before bind, so
// a restarted server doesn't have to wait out TIME_WAIT.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Listener accepts incoming connections and wraps each in a Socket.
type Listener struct {
	ln   net.Listener
	opts Options
}

// Listen starts listening on address (host:port) with SO_REUSEADDR set.
func Listen(address string, opts Options) (*Listener, error) {
	lc := net.ListenConfig{Control: reusePortControl}
	ln, err := lc.Listen(context.Background(), "tcp", address)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, opts: opts}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept blocks until a client connects, returning a Socket wrapping it.
func (l *Listener) Accept() (*Socket, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newSocket(conn, l.opts), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Connect dials address (host:port) and returns a Socket wrapping the
// connection.
func Connect(address string, opts Options) (*Socket, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, opts), nil
}

func newSocket(conn net.Conn, opts Options) *Socket {
	opts = opts.withDefaults()
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	s := &Socket{
		conn:   conn,
		opts:   opts,
		reader: newHalfRing(opts.BufferSize),
		writer: newHalfRing(opts.BufferSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readerDaemon()
	go s.writerDaemon()
	return s
}

func (s *Socket) readerDaemon() {
	defer s.wg.Done()
	defer s.reader.terminate()
	for {
		n, err := s.reader.fillFromConn(s.conn, s.opts.FlushThreshold)
		if err != nil || n <= 0 {
			return
		}
	}
}

func (s *Socket) writerDaemon() {
	defer s.wg.Done()
	defer s.writer.terminate()
	for {
		n, err := s.writer.drainToConn(s.conn, s.opts.FlushThreshold)
		if err != nil || n <= 0 {
			return
		}
	}
}

// Read fills dst completely from the connection, blocking until enough
// bytes have arrived. If len(dst) exceeds the ring's capacity it is read
// through the ring in ring-sized chunks, since the ring could never hold the
// whole request at once.
func (s *Socket) Read(dst []byte) error {
	if uint32(len(dst)) > s.reader.capacity {
		return s.readDirect(dst)
	}
	return s.reader.drainToMemory(dst)
}

func (s *Socket) readDirect(dst []byte) error {
	read := 0
	for read < len(dst) {
		chunk := len(dst) - read
		if uint32(chunk) > s.reader.capacity {
			chunk = int(s.reader.capacity)
		}
		if err := s.reader.drainToMemory(dst[read : read+chunk]); err != nil {
			return err
		}
		read += chunk
	}
	return nil
}

// Write copies src into the outgoing ring completely, blocking until there
// is room. If len(src) exceeds the ring's capacity it is split into
// ring-sized chunks, the conceptual "exclusive grab" of the whole buffer
// spec.md describes.
func (s *Socket) Write(src []byte) error {
	if uint32(len(src)) > s.writer.capacity {
		written := 0
		for written < len(src) {
			chunk := len(src) - written
			if uint32(chunk) > s.writer.capacity {
				chunk = int(s.writer.capacity)
			}
			if err := s.writer.fillFromMemory(src[written : written+chunk]); err != nil {
				return err
			}
			written += chunk
		}
		return nil
	}
	return s.writer.fillFromMemory(src)
}

// Flush forces the writer daemon to drain its current occupancy even if
// below the batching threshold. Call it after submitting a request whenever
// the next action is to wait for a response.
func (s *Socket) Flush() {
	s.writer.occupied.Flush()
}

// ReadReady reports, without blocking, whether at least one byte is
// currently available to Read.
func (s *Socket) ReadReady() bool {
	return s.reader.occupied.Load() > 0
}

// Close shuts the connection down for both directions, wakes any blocked
// application Read/Write via the ring semaphores, closes the underlying file
// descriptor (unblocking any daemon goroutine parked in a syscall), and
// joins both daemon goroutines before returning.
func (s *Socket) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	if tc, ok := s.conn.(interface{ CloseRead() error }); ok {
		_ = tc.CloseRead()
	}
	if tc, ok := s.conn.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	s.reader.terminate()
	s.writer.terminate()
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
