// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xbee implements the XBee API mode 2 serial framing used by the
// Thermoquad radio mesh.
//
// A frame on the wire is [0x7E][length hi][length lo][frame data][checksum].
// The frame data starts with the API identifier. Every byte after the start
// delimiter is escaped: 0x7D, 0x7E, 0x11 and 0x13 are sent as 0x7D followed
// by the byte XOR 0x20. The checksum is 0xFF minus the low byte of the sum of
// the frame data.
package xbee

// Framing bytes
const (
	StartByte = 0x7E
	EscByte   = 0x7D
	EscXor    = 0x20
	XonByte   = 0x11
	XoffByte  = 0x13
)

// Frame size limits
const (
	MaxFrameDataSize = 256 // API identifier + body
	HeaderSize       = 3   // start + 2 length bytes
	AddressSize      = 8
)

// API identifiers
const (
	FrameTxRequest    = 0x10
	FrameModemStatus  = 0x8A
	FrameTxStatus     = 0x8B
	FrameRxPacket     = 0x90
	FrameIOSample     = 0x92
	FrameATCommand    = 0x08
	FrameATCmdReponse = 0x88
)

// Special addresses
const (
	AddressCoordinator Address = 0x0000000000000000
	AddressBroadcast   Address = 0x000000000000FFFF
	NetworkUnknown             = 0xFFFE
)

// TX request options
const (
	TxOptionDisableAck   = 0x01
	TxOptionDisableRoute = 0x02
)

// RX receive options
const (
	RxOptionAcknowledged = 0x01
	RxOptionBroadcast    = 0x02
)

// TX delivery status values
const (
	DeliverySuccess       = 0x00
	DeliveryMACAckFailure = 0x01
	DeliveryNetworkAck    = 0x21
	DeliveryNotJoined     = 0x22
	DeliveryAddressNotFnd = 0x24
	DeliveryRouteNotFound = 0x25
	DeliveryPayloadTooBig = 0x74
)

// Modem status values
const (
	ModemHardwareReset  = 0x00
	ModemWatchdogReset  = 0x01
	ModemJoinedNetwork  = 0x02
	ModemDisassociated  = 0x03
	ModemCoordinatorUp  = 0x06
	ModemNetworkWokeUp  = 0x0B
	ModemNetworkAsleep  = 0x0C
	ModemVoltageTooHigh = 0x0D
)

// Decoder states
const (
	stateIdle = iota
	stateLengthHi
	stateLengthLo
	stateData
	stateChecksum
)
