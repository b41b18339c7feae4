package peerindex

import "errors"

var (
	// ErrAddressBound is returned when registering an address that already
	// belongs to a different peer.
	ErrAddressBound = errors.New("address already bound to another peer")

	// ErrPeerRegistered is returned when the same peer is registered again
	// under a different address.
	ErrPeerRegistered = errors.New("peer already registered under another address")

	// ErrIndexFull is returned when every peer id is in use.
	ErrIndexFull = errors.New("peer index is full")

	// ErrNotFound is returned by lookups that match no registered peer.
	ErrNotFound = errors.New("peer not found")

	// ErrPeerDisabled is returned when depositing a connection for a peer
	// that is administratively disabled.
	ErrPeerDisabled = errors.New("peer is disabled")
)
