package wire

import "errors"

var (
	errShortBuffer    = errors.New("wire: buffer too short")
	errMissingPayload = errors.New("wire: frame missing payload for its type")
	errUnknownType    = errors.New("wire: unknown packet type")
	errNotTCP         = errors.New("wire: ip next-proto is not TCP-shaped transport")
)
