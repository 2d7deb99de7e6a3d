// Package exchange wires the wire protocol, the duplex socket transport and
// the matching engine into a single-client exchange server: accept one
// connection at a time, decode each request frame, drive the engine, and
// write engine events straight back out on the same connection.
package exchange

import (
	"encoding/binary"
	"fmt"
	"sync"

	"pi-exchange/config"
	"pi-exchange/domain"
	"pi-exchange/duplex"
	"pi-exchange/matching"
	"pi-exchange/wire"
)

// Server owns the matching engine and the listening socket. It serves one
// client connection at a time; when a connection drops, it accepts the
// next one and keeps the same engine state.
type Server struct {
	listener *duplex.Listener
	engine   *matching.Exchange

	mu   sync.Mutex
	conn *duplex.Socket // set while a client is connected, for event callbacks
}

// NewServer starts listening on address and returns a Server with its
// matching engine running. Call Serve to accept connections.
func NewServer(address string, opts duplex.Options, cfg config.Values) (*Server, error) {
	ln, err := duplex.Listen(address, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange: listen on %s: %w", address, err)
	}
	s := &Server{listener: ln}
	s.engine = matching.NewExchange(s, cfg.OrderBookInitSize)
	s.engine.Run()
	return s, nil
}

// Addr returns the server's bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections in a loop, handling one at a time, until the
// listener is closed. It never returns nil; io.EOF-class errors from a
// closed listener are expected and reported as such.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return fmt.Errorf("exchange: accept: %w", err)
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.serveConn(conn)

		// serveConn only returns after every Place/Cancel it submitted has
		// been enqueued on the engine; Barrier waits for the engine to
		// finish handling (and delivering events for) all of them before the
		// socket is cleared, so a late event can never be written to the
		// next client's connection.
		s.engine.Barrier()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

// Close stops accepting new connections and shuts the engine down.
func (s *Server) Close() error {
	s.engine.Stop()
	return s.listener.Close()
}

// serveConn reads one frame at a time until the connection errors or
// closes, which is the expected way a client session ends — not logged as a
// server fault.
func (s *Server) serveConn(conn *duplex.Socket) {
	defer conn.Close()
	header := make([]byte, wire.RequestHeaderSize)
	rest := make([]byte, wire.MaxRequestSize-wire.RequestHeaderSize)
	for {
		if err := conn.Read(header); err != nil {
			return
		}
		tagged := binary.LittleEndian.Uint64(header)
		typ, _, _ := wire.DecodeRequestID(tagged)
		switch typ {
		case wire.RequestPlace:
			if err := conn.Read(rest[:wire.PlaceRequestSize-wire.RequestHeaderSize]); err != nil {
				return
			}
			frame := append(append([]byte{}, header...), rest[:wire.PlaceRequestSize-wire.RequestHeaderSize]...)
			req := wire.DecodePlaceRequest(frame)
			s.engine.Place(domain.NewOrder(req.ID, toDomainSide(req.Side), req.Price, req.Quantity))
		case wire.RequestCancel:
			req := wire.DecodeCancelRequest(header)
			s.engine.Cancel(toDomainSide(req.Side), req.ID)
		case wire.RequestFlush:
			// The flush frame is padded to PlaceRequestSize on the wire;
			// discard the padding to stay aligned with the next frame.
			if err := conn.Read(rest[:wire.FlushRequestSize-wire.RequestHeaderSize]); err != nil {
				return
			}
			conn.Flush()
		default:
			return
		}
	}
}

func toDomainSide(side uint8) domain.Side {
	if side == 0 {
		return domain.SideBuy
	}
	return domain.SideSell
}

// OnPlace implements matching.EventHandler.
func (s *Server) OnPlace(resp wire.PlaceResponse) {
	s.writeFrame(wire.PlaceResponseSize, resp.Encode)
}

// OnCancel implements matching.EventHandler.
func (s *Server) OnCancel(resp wire.CancelResponse) {
	s.writeFrame(wire.CancelResponseSize, resp.Encode)
}

// OnMatch implements matching.EventHandler.
func (s *Server) OnMatch(resp wire.MatchResponse) {
	s.writeFrame(wire.MatchResponseSize, resp.Encode)
}

func (s *Server) writeFrame(size int, encode func([]byte)) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	buf := make([]byte, size)
	encode(buf)
	if err := conn.Write(buf); err != nil {
		return
	}
	conn.Flush()
}
