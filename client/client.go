// Package client implements the exchange's client-side wire protocol: a
// thin wrapper over a duplex socket that encodes Place/Cancel/Flush
// requests and decodes Place/Cancel/Match responses.
package client

import (
	"encoding/binary"
	"fmt"

	"pi-exchange/duplex"
	"pi-exchange/wire"
)

// EventHandler receives decoded responses as they're read off the wire.
type EventHandler interface {
	OnPlace(wire.PlaceResponse)
	OnCancel(wire.CancelResponse)
	OnMatch(wire.MatchResponse)
}

// Client holds a connected socket and dispatches responses to a handler.
type Client struct {
	conn    *duplex.Socket
	handler EventHandler
}

// Connect dials address and returns a Client wrapping the connection.
func Connect(address string, opts duplex.Options, handler EventHandler) (*Client, error) {
	conn, err := duplex.Connect(address, opts)
	if err != nil {
		return nil, fmt.Errorf("client: connect to %s: %w", address, err)
	}
	return &Client{conn: conn, handler: handler}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// PlaceBuy submits a buy limit order.
func (c *Client) PlaceBuy(id uint64, price, quantity uint32) error {
	return c.place(0, id, price, quantity)
}

// PlaceSell submits a sell limit order.
func (c *Client) PlaceSell(id uint64, price, quantity uint32) error {
	return c.place(1, id, price, quantity)
}

func (c *Client) place(side uint8, id uint64, price, quantity uint32) error {
	buf := make([]byte, wire.PlaceRequestSize)
	wire.PlaceRequest{Side: side, ID: id, Price: price, Quantity: quantity}.Encode(buf)
	return c.conn.Write(buf)
}

// CancelBuy cancels a resting buy order by id.
func (c *Client) CancelBuy(id uint64) error {
	return c.cancel(0, id)
}

// CancelSell cancels a resting sell order by id.
func (c *Client) CancelSell(id uint64) error {
	return c.cancel(1, id)
}

func (c *Client) cancel(side uint8, id uint64) error {
	buf := make([]byte, wire.CancelRequestSize)
	wire.CancelRequest{Side: side, ID: id}.Encode(buf)
	return c.conn.Write(buf)
}

// Flush sends a Flush request and flushes the outgoing socket buffer so
// everything written so far actually reaches the wire.
func (c *Client) Flush() error {
	buf := make([]byte, wire.FlushRequestSize)
	wire.EncodeFlushRequest(buf)
	if err := c.conn.Write(buf); err != nil {
		return err
	}
	c.conn.Flush()
	return nil
}

// ReceiveResponse blocks for exactly one response frame and dispatches it to
// the handler.
func (c *Client) ReceiveResponse() error {
	header := make([]byte, wire.ResponseHeaderSize)
	if err := c.conn.Read(header); err != nil {
		return err
	}
	tagged := binary.LittleEndian.Uint64(header)
	typ, _, _ := wire.DecodeResponseID(tagged)
	switch typ {
	case wire.ResponsePlace:
		c.handler.OnPlace(wire.DecodePlaceResponse(header))
	case wire.ResponseCancel:
		c.handler.OnCancel(wire.DecodeCancelResponse(header))
	case wire.ResponseMatch:
		rest := make([]byte, wire.MatchResponseSize-wire.ResponseHeaderSize)
		if err := c.conn.Read(rest); err != nil {
			return err
		}
		frame := append(append([]byte{}, header...), rest...)
		c.handler.OnMatch(wire.DecodeMatchResponse(frame))
	default:
		return fmt.Errorf("client: unknown response type %d", typ)
	}
	return nil
}

// TryReceiveResponses drains every response currently available without
// blocking past what's already arrived.
func (c *Client) TryReceiveResponses() error {
	for c.conn.ReadReady() {
		if err := c.ReceiveResponse(); err != nil {
			return err
		}
	}
	return nil
}
