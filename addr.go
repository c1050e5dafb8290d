package rmi

import (
	"net"
	"os"
	"strconv"
)

// An Addr is the (host, port) pair a Skeleton listens on and a Stub connects to.
type Addr struct {
	Host string
	Port int
}

// Wildcard reports whether a is the any-interface address, as produced by
// binding a Skeleton with an empty host.
func (a Addr) Wildcard() bool {
	return a.Host == "" || a.Host == "0.0.0.0" || a.Host == "::"
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Resolved returns a, with a wildcard host replaced by the local host name.
// Used when a Stub is created directly from a Skeleton: the Skeleton may be
// bound to any interface, but a remote caller needs an actual name or IP.
func (a Addr) Resolved() (Addr, error) {
	if !a.Wildcard() {
		return a, nil
	}
	host, err := os.Hostname()
	if err != nil {
		return Addr{}, Wrap("resolve local host name", err)
	}
	a.Host = host
	return a, nil
}
