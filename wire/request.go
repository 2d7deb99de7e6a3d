// Package wire implements the framed binary request/response protocol the
// exchange speaks over a duplex socket: fixed-size records per variant, with
// the type discriminant packed into the low bits of the id word to keep
// every frame a flat run of bytes.
package wire

import "encoding/binary"

// RequestType is the discriminant packed into bits [0:2) of a request's id
// word.
type RequestType uint8

const (
	RequestPlace RequestType = iota
	RequestCancel
	RequestFlush
)

const (
	requestTypeBits = 2
	requestSideBits = 1
	requestTagBits  = requestTypeBits + requestSideBits
)

// RequestHeaderSize is the number of bytes a receiver must read to learn a
// request's type before reading the rest of the frame.
const RequestHeaderSize = 8

// PlaceRequestSize is the wire size of a Place request: tagged id + price +
// quantity.
const PlaceRequestSize = 8 + 4 + 4

// CancelRequestSize is the wire size of a Cancel request: tagged id only.
const CancelRequestSize = 8

// FlushRequestSize is the wire size of a Flush request: the tagged id word,
// padded to the size of the largest request variant (a Place request).
const FlushRequestSize = PlaceRequestSize

// MaxRequestSize is the size of the largest request frame; callers allocate
// a buffer of this size and read RequestHeaderSize first to learn how much
// more to read.
const MaxRequestSize = PlaceRequestSize

func packRequestID(typ RequestType, side uint8, id uint64) uint64 {
	return (id << requestTagBits) | (uint64(side) << requestTypeBits) | uint64(typ)
}

// DecodeRequestID splits a tagged request id word into its type, side and
// logical order id.
func DecodeRequestID(tagged uint64) (typ RequestType, side uint8, id uint64) {
	typ = RequestType(tagged & 0b11)
	side = uint8((tagged >> requestTypeBits) & 0b1)
	id = tagged >> requestTagBits
	return
}

// PlaceRequest places a new order on the given side.
type PlaceRequest struct {
	Side     uint8
	ID       uint64
	Price    uint32
	Quantity uint32
}

// Encode writes r into buf, which must be at least PlaceRequestSize bytes.
func (r PlaceRequest) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], packRequestID(RequestPlace, r.Side, r.ID))
	binary.LittleEndian.PutUint32(buf[8:12], r.Price)
	binary.LittleEndian.PutUint32(buf[12:16], r.Quantity)
}

// DecodePlaceRequest reads a Place request body out of buf (which must
// contain at least PlaceRequestSize bytes, the tagged id word included).
func DecodePlaceRequest(buf []byte) PlaceRequest {
	tagged := binary.LittleEndian.Uint64(buf[0:8])
	_, side, id := DecodeRequestID(tagged)
	return PlaceRequest{
		Side:     side,
		ID:       id,
		Price:    binary.LittleEndian.Uint32(buf[8:12]),
		Quantity: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// CancelRequest cancels a resting order by id on the given side.
type CancelRequest struct {
	Side uint8
	ID   uint64
}

// Encode writes r into buf, which must be at least CancelRequestSize bytes.
func (r CancelRequest) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], packRequestID(RequestCancel, r.Side, r.ID))
}

// DecodeCancelRequest reads a Cancel request body out of buf.
func DecodeCancelRequest(buf []byte) CancelRequest {
	tagged := binary.LittleEndian.Uint64(buf[0:8])
	_, side, id := DecodeRequestID(tagged)
	return CancelRequest{Side: side, ID: id}
}

// EncodeFlushRequest writes a bare Flush tag into buf.
func EncodeFlushRequest(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(RequestFlush))
}
