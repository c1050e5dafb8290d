// Package stub builds client-side dynamic surrogates for remote interface
// descriptors and implements the invocation round trip (§4.2).
package stub

import (
	"hash/fnv"
	"net"
	"reflect"

	"github.com/blitz-frost/rmi"
	"github.com/blitz-frost/rmi/skeleton"
	"github.com/blitz-frost/rmi/wire"
)

// A Surrogate is the dynamic proxy of §4.2: its Iface field holds a value
// of I with every exported function field populated by a reflect.MakeFunc
// invoker, so that a caller holding *Surrogate[I] can call sg.Iface.Ping(3)
// exactly as if I were implemented locally. Go forbids embedding a type
// parameter directly (it must be a named field, not an embedded one), so
// identity (desc, addr) is carried alongside Iface on the same struct
// rather than promoted through it.
type Surrogate[I any] struct {
	Iface I

	desc reflect.Type
	addr rmi.Addr
}

// Addr returns the address this surrogate was bound to. Implements
// rmi.Transportable so a Surrogate can itself be returned from, or passed
// as an argument to, a remote operation (§8 scenario 2).
func (s *Surrogate[I]) Addr() rmi.Addr {
	return s.addr
}

// Equal implements the §3 identity law: equal iff descriptor and address
// both match. No I/O is performed.
func (s *Surrogate[I]) Equal(other *Surrogate[I]) bool {
	if other == nil {
		return false
	}
	return s.desc == other.desc && s.addr == other.addr
}

// Hash implements the §3 hash law: depends only on descriptor and address.
func (s *Surrogate[I]) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.desc.String()))
	h.Write([]byte(s.addr.String()))
	return h.Sum64()
}

func (s *Surrogate[I]) String() string {
	return s.desc.String() + " @ " + s.addr.String()
}

// RehydrateAddr implements rmi.Rehydratable: it lets the generic invoker in
// build rebuild a nested surrogate purely from the address that crossed the
// wire, without needing compile-time knowledge of I: the descriptor type is
// taken from the Iface field and stored on s.
func (s *Surrogate[I]) RehydrateAddr(addr rmi.Addr) error {
	if err := rmi.Valid(reflect.TypeOf(s.Iface)); err != nil {
		return err
	}
	s.desc = reflect.TypeOf(s.Iface)
	s.addr = addr
	build(&s.Iface, addr)
	return nil
}

// Create copies skel's effective address (§4.2 overload 1). If that
// address is the wildcard any-interface address, it is resolved to the
// local host name first.
func Create[I any](skel *skeleton.Skeleton[I]) (*Surrogate[I], error) {
	if skel == nil {
		fatal("nil skeleton")
	}
	addr, err := skel.Address()
	if err != nil {
		return nil, err
	}
	addr, err = addr.Resolved()
	if err != nil {
		return nil, err
	}
	return newSurrogate[I](addr)
}

// CreateHost combines host with skel's effective port (§4.2 overload 2).
// Fails with an "illegal state" error if skel has no port yet.
func CreateHost[I any](skel *skeleton.Skeleton[I], host string) (*Surrogate[I], error) {
	if skel == nil {
		fatal("nil skeleton")
	}
	addr, err := skel.Address()
	if err != nil {
		return nil, err
	}
	if addr.Port == 0 {
		return nil, rmi.ProgrammerError{Text: "skeleton has no port yet"}
	}
	addr.Host = host
	return newSurrogate[I](addr)
}

// CreateAddr builds a Surrogate directly from a fixed address (§4.2
// overload 3), used for bootstrapping without a local Skeleton value.
func CreateAddr[I any](addr rmi.Addr) (*Surrogate[I], error) {
	return newSurrogate[I](addr)
}

func newSurrogate[I any](addr rmi.Addr) (*Surrogate[I], error) {
	desc := reflect.TypeOf(*new(I))
	if err := rmi.Valid(desc); err != nil {
		fatal(err.Error())
	}

	sg := &Surrogate[I]{desc: desc, addr: addr}
	build(&sg.Iface, addr)
	return sg, nil
}

func fatal(msg string) {
	panic(rmi.ProgrammerError{Text: msg})
}

// build populates every exported function field of iface with an invoker
// bound to addr, mutating iface in place.
func build[I any](iface *I, addr rmi.Addr) {
	v := reflect.ValueOf(iface).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			continue
		}
		v.Field(i).Set(reflect.MakeFunc(f.Type, invoker(f.Name, f.Type, addr)))
	}
}

// invoker builds the reflect.MakeFunc body implementing §4.2 steps 1-6 for
// one operation.
func invoker(name string, ft reflect.Type, addr rmi.Addr) func([]reflect.Value) []reflect.Value {
	numOut := ft.NumOut() - 1 // exclude the trailing error
	argTypes := make([]string, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		argTypes[i] = ft.In(i).String()
	}

	return func(args []reflect.Value) []reflect.Value {
		results := make([]reflect.Value, numOut+1)
		zero := func() {
			for i := 0; i < numOut; i++ {
				results[i] = reflect.Zero(ft.Out(i))
			}
		}

		fail := func(err error) []reflect.Value {
			zero()
			results[numOut] = reflect.ValueOf(err)
			return results
		}

		conn, err := net.Dial("tcp", addr.String())
		if err != nil {
			return fail(rmi.Wrap("dial "+addr.String(), err))
		}
		defer conn.Close()

		enc := wire.NewEncoder(conn)
		req := rmi.Request{MethodName: name, ArgumentTypes: argTypes}
		if err := req.Encode(enc); err != nil {
			return fail(err)
		}
		for i, arg := range args {
			if err := encodeValue(enc, ft.In(i), arg); err != nil {
				return fail(rmi.Wrap("encode argument", err))
			}
		}

		dec := wire.NewDecoder(conn)
		resp, err := rmi.DecodeResponse(dec)
		if err != nil {
			return fail(rmi.Wrap("invalid response", err))
		}

		switch resp.Status {
		case rmi.StatusNormal:
			for i := 0; i < numOut; i++ {
				out, err := decodeValue(dec, ft.Out(i))
				if err != nil {
					return fail(rmi.Wrap("decode return value", err))
				}
				results[i] = out
			}
			results[numOut] = reflect.Zero(errorType)
			return results

		case rmi.StatusException:
			var re rmi.RemoteError
			if err := dec.Decode(&re.Text); err != nil {
				return fail(rmi.Wrap("decode exception", err))
			}
			return fail(re)

		case rmi.StatusError:
			var rerr rmi.Error
			if err := dec.Decode(&rerr.Text); err != nil {
				return fail(rmi.Wrap("decode error payload", err))
			}
			return fail(rerr)

		default:
			return fail(rmi.Errorf("unknown response status %v", resp.Status))
		}
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// encodeValue writes v, which has static type t, using the address-only
// shortcut for transportable types (nested stubs) and the generic wire
// codec otherwise.
func encodeValue(enc *wire.Encoder, t reflect.Type, v reflect.Value) error {
	if t.Implements(rmi.TransportableType) {
		tr := v.Interface().(rmi.Transportable)
		return enc.Encode(tr.Addr())
	}
	return enc.EncodeValue(v)
}

// decodeValue reads a value of static type t, rehydrating a nested stub
// from its address if t is a transportable (surrogate) type.
func decodeValue(dec *wire.Decoder, t reflect.Type) (reflect.Value, error) {
	if t.Implements(rmi.RehydratableType) {
		var addr rmi.Addr
		if err := dec.Decode(&addr); err != nil {
			return reflect.Value{}, err
		}
		inst := reflect.New(t.Elem())
		if err := inst.Interface().(rmi.Rehydratable).RehydrateAddr(addr); err != nil {
			return reflect.Value{}, err
		}
		return inst, nil
	}

	out := reflect.New(t)
	if err := dec.DecodeValue(out); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
