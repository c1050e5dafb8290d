package rmi

import (
	"github.com/blitz-frost/rmi/wire"
)

// Status is the three-way result tag of a Response (§3).
type Status int8

const (
	StatusNormal Status = iota
	StatusException
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusException:
		return "exception"
	case StatusError:
		return "error"
	default:
		return "invalid"
	}
}

// Request is the on-the-wire shape of one invocation (§3). Arguments
// themselves are not a Go field: they are encoded immediately after the
// Request, one wire.EncodeValue per entry, because their concrete type is
// only known once MethodName has resolved a method on the receiving end.
type Request struct {
	MethodName    string
	ArgumentTypes []string
}

// Encode writes the Request header. The caller is still responsible for
// encoding len(r.ArgumentTypes) argument values immediately afterwards.
func (r Request) Encode(enc *wire.Encoder) error {
	if err := enc.Encode(r.MethodName); err != nil {
		return Wrap("encode method name", err)
	}
	if err := enc.Encode(r.ArgumentTypes); err != nil {
		return Wrap("encode argument types", err)
	}
	return nil
}

// DecodeRequest reads a Request header from dec. The caller must decode
// len(request.ArgumentTypes) argument values immediately afterwards.
func DecodeRequest(dec *wire.Decoder) (Request, error) {
	var r Request
	if err := dec.Decode(&r.MethodName); err != nil {
		return Request{}, Wrap("decode method name", err)
	}
	if err := dec.Decode(&r.ArgumentTypes); err != nil {
		return Request{}, Wrap("decode argument types", err)
	}
	return r, nil
}

// Response is the on-the-wire shape of one result (§3). The payload that
// follows Status depends on its value: a return value (or nothing, for a
// void method) for StatusNormal, the user error's message string for
// StatusException (decoded as a RemoteError), the dispatch error's message
// string for StatusError (decoded as an Error).
type Response struct {
	Status Status
}

func (r Response) Encode(enc *wire.Encoder) error {
	if err := enc.Encode(int8(r.Status)); err != nil {
		return Wrap("encode response status", err)
	}
	return nil
}

func DecodeResponse(dec *wire.Decoder) (Response, error) {
	var s int8
	if err := dec.Decode(&s); err != nil {
		return Response{}, Wrap("decode response status", err)
	}
	status := Status(s)
	if status != StatusNormal && status != StatusException && status != StatusError {
		return Response{}, Errorf("invalid response status %d", s)
	}
	return Response{Status: status}, nil
}
