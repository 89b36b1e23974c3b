package llm

import (
	"errors"
)

// ErrorKind classifies RPC failures.
type ErrorKind int

const (
	// KindTransport - connection-level failure after retry exhaustion
	KindTransport ErrorKind = iota
	// KindProtocol - non-2xx status or a malformed response payload
	KindProtocol
	// KindServer - explicit error field inside a well-formed payload
	KindServer
	// KindEmptyOutput - payload parsed but the response text was empty
	KindEmptyOutput
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindServer:
		return "server"
	case KindEmptyOutput:
		return "empty-output"
	default:
		return "unknown"
	}
}

// RPCError is the terminal error surfaced by the client.
type RPCError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rpc error: " + e.Kind.String()
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// unwrapRPCError normalizes whatever comes out of the retry machinery into
// an *RPCError. Retry exhaustion wraps the last transport failure.
func unwrapRPCError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &RPCError{Kind: KindTransport, Message: err.Error(), Err: err}
}

// KindOf returns the kind of an RPC error, or KindTransport when err is not
// an RPCError.
func KindOf(err error) ErrorKind {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	return KindTransport
}
