package skeleton

import (
	"net"
	"reflect"

	"github.com/blitz-frost/rmi"
	"github.com/blitz-frost/rmi/wire"
)

// handle is the worker task of §4.5: decode one Request, resolve and
// invoke the matching method on the server object, and write exactly one
// Response, classifying the outcome per the dispatch error taxonomy.
func (s *Skeleton[I]) handle(conn net.Conn) {
	defer conn.Close()

	dec := wire.NewDecoder(conn)
	enc := wire.NewEncoder(conn)

	req, err := rmi.DecodeRequest(dec)
	if err != nil {
		s.respondDispatchError(enc, rmi.Wrap("invalid request", err))
		return
	}

	ft, method, rerr := s.resolve(req)
	if rerr != nil {
		s.respondDispatchError(enc, rerr)
		return
	}

	args := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		v, err := decodeValue(dec, ft.In(i))
		if err != nil {
			s.respondDispatchError(enc, rmi.Wrap("decode argument", err))
			return
		}
		args[i] = v
	}

	out := method.Call(args)
	numOut := len(out) - 1

	if errVal := out[numOut]; !errVal.IsNil() {
		// a user error raised from inside the target method is not a
		// dispatch failure: it is sent back with status Exception (§4.5
		// step 4, §7 propagation policy), and service_error is not called.
		// Only its message is transported; its concrete type is not.
		userErr := errVal.Interface().(error)
		s.respondPayload(enc, rmi.Response{Status: rmi.StatusException}, userErr.Error())
		return
	}

	resp := rmi.Response{Status: rmi.StatusNormal}
	if err := resp.Encode(enc); err != nil {
		s.reportServiceError(rmi.Wrap("write response", err))
		return
	}
	for i := 0; i < numOut; i++ {
		if err := encodeValue(enc, ft.Out(i), out[i]); err != nil {
			s.reportServiceError(rmi.Wrap("encode return value", err))
			return
		}
	}
}

// resolve matches (request.method-name, request.argument-types) exactly
// against the descriptor field of the same name, then looks up the
// corresponding method on the server object (§4.5 step 3). A missing
// field, an arity mismatch, or an argument-type mismatch is a dispatch
// error distinct from any failure inside the invoked method itself.
func (s *Skeleton[I]) resolve(req rmi.Request) (reflect.Type, reflect.Value, error) {
	field, ok := s.desc.FieldByName(req.MethodName)
	if !ok || !field.IsExported() || field.Type.Kind() != reflect.Func {
		return nil, reflect.Value{}, rmi.Errorf("unknown method %q", req.MethodName)
	}

	ft := field.Type
	if ft.NumIn() != len(req.ArgumentTypes) {
		return nil, reflect.Value{}, rmi.Errorf("method %q expects %d arguments, got %d", req.MethodName, ft.NumIn(), len(req.ArgumentTypes))
	}
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i).String() != req.ArgumentTypes[i] {
			return nil, reflect.Value{}, rmi.Errorf("method %q argument %d: got type %s, want %s", req.MethodName, i, req.ArgumentTypes[i], ft.In(i).String())
		}
	}

	m := reflect.ValueOf(s.obj).MethodByName(req.MethodName)
	if !m.IsValid() {
		return nil, reflect.Value{}, rmi.Errorf("server object has no method %q", req.MethodName)
	}
	return ft, m, nil
}

// respondPayload writes a Response whose payload is a single string, used
// for both Exception and Error statuses (§3: RemoteError and Error both
// carry only a message once on the wire).
func (s *Skeleton[I]) respondPayload(enc *wire.Encoder, resp rmi.Response, text string) {
	if err := resp.Encode(enc); err != nil {
		s.reportServiceError(rmi.Wrap("write response", err))
		return
	}
	if err := enc.Encode(text); err != nil {
		s.reportServiceError(rmi.Wrap("write response payload", err))
	}
}

// respondDispatchError sends an Error Response carrying err and always
// reports it via ServiceError (§4.5 step 6, taxonomy rows 1-2).
func (s *Skeleton[I]) respondDispatchError(enc *wire.Encoder, err error) {
	rerr, ok := err.(rmi.Error)
	if !ok {
		rerr = rmi.Wrap("dispatch", err)
	}
	s.respondPayload(enc, rmi.Response{Status: rmi.StatusError}, rerr.Error())
	s.reportServiceError(rerr)
}

func (s *Skeleton[I]) reportServiceError(err rmi.Error) {
	s.hooks.serviceError(err)
}

// encodeValue and decodeValue mirror stub's identical helpers: a value
// whose static type implements rmi.Transportable (a nested Surrogate, the
// "factory of stubs" pattern, §8 scenario 2) crosses the wire as its bare
// Addr rather than through the generic codec. Duplicated rather than
// shared because stub imports skeleton, and skeleton must not import
// stub back.
func encodeValue(enc *wire.Encoder, t reflect.Type, v reflect.Value) error {
	if t.Implements(rmi.TransportableType) {
		tr := v.Interface().(rmi.Transportable)
		return enc.Encode(tr.Addr())
	}
	return enc.EncodeValue(v)
}

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
