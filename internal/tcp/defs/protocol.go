package defs

import "time"

// Protocol constants
const (
	MagicNumber uint16 = 0xCAFE
	HeaderSize         = 8

	// Message types
	MsgStreamStart    byte = 0x01 // client -> server: StreamStartData
	MsgStreamAck      byte = 0x02 // server -> client: StreamAckData
	MsgStreamData     byte = 0x03 // server -> client: one stream message
	MsgStreamEnd      byte = 0x04 // server -> client: the session queue closed
	MsgHistoryRequest byte = 0x05 // client -> server: HistoryRequestData
	MsgHistoryData    byte = 0x06 // server -> client: HistoryData
	MsgError          byte = 0x07

	// MaxPayloadSize bounds a single inbound frame
	MaxPayloadSize = 1 << 20

	// Configuration constants
	InitialRequestTimeout = 30 * time.Second
	ConnectionRetryDelay  = 1 * time.Second
)

// Error codes carried in ErrorData
const (
	ErrCodeInvalidPayload  = 1001
	ErrCodeInvalidSpec     = 1002
	ErrCodeStartFailed     = 1003
	ErrCodeAlreadyStreamed = 1004
	ErrCodeSessionNotFound = 1005
	ErrCodeHistoryFailed   = 1006
	ErrCodeUnknownMessage  = 1016
)
