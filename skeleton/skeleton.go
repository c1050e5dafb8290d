// Package skeleton implements the server half of the rmi runtime: a
// multi-connection listener that dispatches decoded requests against a
// user-supplied server object. The accept-loop / detached-worker shape
// generalizes blitz-frost/wasm's rpc.Server.ListenAndServe from a single
// long-lived HTTP connection to a TCP listener accepting one connection
// per invocation (§4.3, §4.4).
package skeleton

import (
	"fmt"
	"net"
	"reflect"
	"strconv"
	"sync"

	"github.com/blitz-frost/rmi"
)

// Hooks bundles the three overridable callbacks of §4.3/§9: a small
// injected capability struct rather than subclass overrides.
type Hooks struct {
	// Stopped is invoked exactly once per running session, from the
	// listening task, after the accept-loop exits, while the Skeleton's
	// lock is held. cause is nil on an orderly Stop.
	Stopped func(cause error)

	// ListenError is invoked from the accept-loop when accept fails while
	// still running. true resumes accepting; false shuts the Skeleton
	// down and triggers Stopped(err). The zero value always returns
	// false: a transient accept error permanently stops the server unless
	// the caller opts into retrying (preserved per the Design Notes).
	ListenError func(err error) bool

	// ServiceError is invoked from a worker when a dispatch-level error
	// occurs. Must never call Start or Stop. The zero value is a no-op:
	// unlike Stopped, nothing is printed by default.
	ServiceError func(err *rmi.Error)
}

func (h Hooks) stopped(cause error) {
	if h.Stopped != nil {
		h.Stopped(cause)
		return
	}
	if cause != nil {
		fmt.Println("skeleton stopped:", cause)
	}
}

func (h Hooks) listenError(err error) bool {
	if h.ListenError != nil {
		return h.ListenError(err)
	}
	return false
}

func (h Hooks) serviceError(err rmi.Error) {
	if h.ServiceError != nil {
		h.ServiceError(&err)
	}
}

// A Skeleton serves remote interface I by dispatching accepted connections
// against obj. Safe for concurrent use: Start, Stop and Address all
// acquire the Skeleton's own lock (§5, the single Skeleton-scoped lock
// covering the running flag, listening socket and effective address).
type Skeleton[I any] struct {
	mu sync.Mutex

	obj  interface{}
	desc reflect.Type

	configured    rmi.Addr
	hasConfigured bool
	effective     rmi.Addr
	hasEffective  bool

	running bool
	ln      net.Listener

	hooks Hooks
}

// New validates I against rmi.Valid and checks that obj actually supports
// every operation it declares (rmi.Implements, §4.1). addr is the optional
// configured address; nil means bind to a system-assigned port on all
// interfaces on Start. A nil obj or invalid/unimplemented descriptor is a
// programmer error and panics rather than returning an error.
func New[I any](obj interface{}, addr *rmi.Addr, hooks Hooks) (*Skeleton[I], error) {
	if obj == nil {
		fatal("nil server object")
	}
	desc := reflect.TypeOf(*new(I))
	if err := rmi.Valid(desc); err != nil {
		fatal(err.Error())
	}
	if err := rmi.Implements(obj, desc); err != nil {
		fatal(err.Error())
	}

	skel := &Skeleton[I]{
		obj:   obj,
		desc:  desc,
		hooks: hooks,
	}
	if addr != nil {
		skel.configured = *addr
		skel.hasConfigured = true
	}
	return skel, nil
}

func fatal(msg string) {
	panic(rmi.ProgrammerError{Text: msg})
}

// Address returns the Skeleton's effective address (§4.3 accessor): the
// address captured by the most recent successful Start, or the configured
// address if never started. Illegal state if neither exists.
func (s *Skeleton[I]) Address() (rmi.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addressLocked()
}

func (s *Skeleton[I]) addressLocked() (rmi.Addr, error) {
	if s.hasEffective {
		return s.effective, nil
	}
	if s.hasConfigured {
		return s.configured, nil
	}
	return rmi.Addr{}, rmi.ProgrammerError{Text: "skeleton has no address: never started and no configured address"}
}

// Start transitions idle -> running (§4.3). It binds the listening socket
// to the configured address (a system-assigned port if the configured
// port was zero or no address was configured; on a restart, the port
// captured by the previous running session), captures the effective
// address before returning, and spawns the accept-loop as a detached
// goroutine.
func (s *Skeleton[I]) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return rmi.Errorf("skeleton already running")
	}

	host := s.configured.Host
	port := s.configured.Port
	if s.hasEffective {
		// reuse the port a previous running session was assigned, so a
		// Stub built from the pre-restart effective address still
		// resolves after this Start (§9 "Restart port capture").
		port = s.effective.Port
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return rmi.Wrap("listen", err)
	}

	// capture the system-assigned port before the Skeleton is exposed to
	// any Stub, so address identity is stable across a restart (§9).
	tcpAddr := ln.Addr().(*net.TCPAddr)
	s.effective = rmi.Addr{Host: host, Port: tcpAddr.Port}
	s.hasEffective = true
	s.ln = ln
	s.running = true

	go s.acceptLoop(ln)

	return nil
}

// Stop transitions running -> idle (§4.3). Idempotent when already idle.
// It closes the listening socket, unblocking accept in the listening task;
// it does not wait for in-flight workers to finish their invocations.
func (s *Skeleton[I]) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.ln
	s.mu.Unlock()

	ln.Close()
}

// acceptLoop is the listening task of §4.4: a single goroutine running for
// the lifetime of one running session, spawning one detached worker
// goroutine per accepted connection.
func (s *Skeleton[I]) acceptLoop(ln net.Listener) {
	var cause error

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stillRunning := s.running
			s.mu.Unlock()

			if !stillRunning {
				break // shutdown via Stop
			}
			if !s.hooks.listenError(err) {
				s.mu.Lock()
				s.running = false
				s.mu.Unlock()
				ln.Close()
				cause = err
				break
			}
			continue
		}

		go s.handle(conn)
	}

	s.mu.Lock()
	s.hooks.stopped(cause)
	s.mu.Unlock()
}
