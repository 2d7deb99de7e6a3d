package wire

import "encoding/binary"

// ResponseType is the discriminant packed into bits [0:2) of a response's
// leading id word.
type ResponseType uint8

const (
	ResponsePlace ResponseType = iota
	ResponseCancel
	ResponseMatch
)

const (
	responseTypeBits    = 2
	responseSuccessBits = 1
	responseTagBits     = responseTypeBits + responseSuccessBits
)

// ResponseHeaderSize is the number of bytes a receiver must read to learn a
// response's type before reading the rest of the frame.
const ResponseHeaderSize = 8

// PlaceResponseSize / CancelResponseSize are the wire size of a Place/Cancel
// response: the tagged id word only.
const (
	PlaceResponseSize  = 8
	CancelResponseSize = 8
)

// MatchResponseSize is the wire size of a Match response: tagged buy id +
// sell id + price + quantity + top-of-book prices for both sides.
const MatchResponseSize = 8 + 8 + 4 + 4 + 4 + 4

// MaxResponseSize is the size of the largest response frame.
const MaxResponseSize = MatchResponseSize

func packResponseID(typ ResponseType, success bool, id uint64) uint64 {
	var s uint64
	if success {
		s = 1
	}
	return (id << responseTagBits) | (s << responseTypeBits) | uint64(typ)
}

// DecodeResponseID splits a tagged response id word into its type, success
// flag and logical order id.
func DecodeResponseID(tagged uint64) (typ ResponseType, success bool, id uint64) {
	typ = ResponseType(tagged & 0b11)
	success = (tagged>>responseTypeBits)&0b1 != 0
	id = tagged >> responseTagBits
	return
}

// PlaceResponse reports whether a Place request was accepted.
type PlaceResponse struct {
	Success bool
	ID      uint64
}

// Encode writes r into buf, which must be at least PlaceResponseSize bytes.
func (r PlaceResponse) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], packResponseID(ResponsePlace, r.Success, r.ID))
}

// DecodePlaceResponse reads a Place response out of buf.
func DecodePlaceResponse(buf []byte) PlaceResponse {
	_, success, id := DecodeResponseID(binary.LittleEndian.Uint64(buf[0:8]))
	return PlaceResponse{Success: success, ID: id}
}

// CancelResponse reports whether a Cancel request found and removed an
// order.
type CancelResponse struct {
	Success bool
	ID      uint64
}

// Encode writes r into buf, which must be at least CancelResponseSize bytes.
func (r CancelResponse) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], packResponseID(ResponseCancel, r.Success, r.ID))
}

// DecodeCancelResponse reads a Cancel response out of buf.
func DecodeCancelResponse(buf []byte) CancelResponse {
	_, success, id := DecodeResponseID(binary.LittleEndian.Uint64(buf[0:8]))
	return CancelResponse{Success: success, ID: id}
}

// MatchResponse reports one trade between a resting order and a taker,
// executed at the resting (maker) side's price, along with the best price
// on each side immediately after the trade (0 meaning that side is empty).
type MatchResponse struct {
	BuyID        uint64
	SellID       uint64
	Price        uint32
	Quantity     uint32
	TopBuyPrice  uint32
	TopSellPrice uint32
}

// Encode writes r into buf, which must be at least MatchResponseSize bytes.
func (r MatchResponse) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], packResponseID(ResponseMatch, true, r.BuyID))
	binary.LittleEndian.PutUint64(buf[8:16], r.SellID)
	binary.LittleEndian.PutUint32(buf[16:20], r.Price)
	binary.LittleEndian.PutUint32(buf[20:24], r.Quantity)
	binary.LittleEndian.PutUint32(buf[24:28], r.TopBuyPrice)
	binary.LittleEndian.PutUint32(buf[28:32], r.TopSellPrice)
}

// DecodeMatchResponse reads a Match response out of buf.
func DecodeMatchResponse(buf []byte) MatchResponse {
	_, _, buyID := DecodeResponseID(binary.LittleEndian.Uint64(buf[0:8]))
	return MatchResponse{
		BuyID:        buyID,
		SellID:       binary.LittleEndian.Uint64(buf[8:16]),
		Price:        binary.LittleEndian.Uint32(buf[16:20]),
		Quantity:     binary.LittleEndian.Uint32(buf[20:24]),
		TopBuyPrice:  binary.LittleEndian.Uint32(buf[24:28]),
		TopSellPrice: binary.LittleEndian.Uint32(buf[28:32]),
	}
}
