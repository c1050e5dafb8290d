package stub

import (
	"errors"
	"fmt"
	"testing"

	"github.com/blitz-frost/rmi"
	"github.com/blitz-frost/rmi/skeleton"
)

type PingServer struct {
	Ping func(int) (string, error)
}

type pingImpl struct{}

func (pingImpl) Ping(n int) (string, error) {
	return fmt.Sprintf("Pong%d", n), nil
}

func startSkeleton[I any](t *testing.T, obj interface{}) *skeleton.Skeleton[I] {
	t.Helper()
	skel, err := skeleton.New[I](obj, nil, skeleton.Hooks{})
	if err != nil {
		t.Fatalf("skeleton.New: %v", err)
	}
	if err := skel.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(skel.Stop)
	return skel
}

func TestPingRoundTrip(t *testing.T) {
	skel := startSkeleton[PingServer](t, pingImpl{})

	sg, err := Create[PingServer](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := sg.Iface.Ping(3)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got != "Pong3" {
		t.Errorf("Ping(3) = %q, want %q", got, "Pong3")
	}
}

type boomImpl struct{}

func (boomImpl) Ping(n int) (string, error) {
	return "", errors.New("boom")
}

func TestUserExceptionTransparency(t *testing.T) {
	skel := startSkeleton[PingServer](t, boomImpl{})

	sg, err := Create[PingServer](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = sg.Iface.Ping(0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "boom" {
		t.Errorf("err = %q, want %q", err.Error(), "boom")
	}
	var rmiErr rmi.Error
	if errors.As(err, &rmiErr) {
		t.Fatal("a user exception must not surface as rmi.Error")
	}
}

func TestTransportError(t *testing.T) {
	sg, err := CreateAddr[PingServer](rmi.Addr{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("CreateAddr: %v", err)
	}

	_, err = sg.Iface.Ping(0)
	if err == nil {
		t.Fatal("expected a transport error when no Skeleton is listening")
	}
	var rmiErr rmi.Error
	if !errors.As(err, &rmiErr) {
		t.Fatalf("expected an rmi.Error, got %#v", err)
	}
}

func TestCreateHost(t *testing.T) {
	skel := startSkeleton[PingServer](t, pingImpl{})

	sg, err := CreateHost[PingServer](skel, "localhost")
	if err != nil {
		t.Fatalf("CreateHost: %v", err)
	}

	got, err := sg.Iface.Ping(5)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got != "Pong5" {
		t.Errorf("Ping(5) = %q, want %q", got, "Pong5")
	}
}

func TestCreateHostNoPortYet(t *testing.T) {
	// a Skeleton configured with a host but an unspecified (zero) port,
	// never started: Address() succeeds (it has a configured address),
	// but that address carries no real port yet.
	addr := rmi.Addr{Host: "0.0.0.0", Port: 0}
	skel, err := skeleton.New[PingServer](pingImpl{}, &addr, skeleton.Hooks{})
	if err != nil {
		t.Fatalf("skeleton.New: %v", err)
	}

	if _, err := CreateHost[PingServer](skel, "localhost"); err == nil {
		t.Fatal("expected CreateHost to fail before the skeleton has a port")
	}
}

type PingServerFactory struct {
	MakePingServer func() (*Surrogate[PingServer], error)
}

type factoryImpl struct{}

func (factoryImpl) MakePingServer() (*Surrogate[PingServer], error) {
	skel, err := skeleton.New[PingServer](pingImpl{}, nil, skeleton.Hooks{})
	if err != nil {
		return nil, err
	}
	if err := skel.Start(); err != nil {
		return nil, err
	}
	return Create[PingServer](skel)
}

func TestFactoryOfStubs(t *testing.T) {
	skel := startSkeleton[PingServerFactory](t, factoryImpl{})

	sg, err := Create[PingServerFactory](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	child, err := sg.Iface.MakePingServer()
	if err != nil {
		t.Fatalf("MakePingServer: %v", err)
	}

	got, err := child.Iface.Ping(0)
	if err != nil {
		t.Fatalf("Ping on nested surrogate: %v", err)
	}
	if got != "Pong0" {
		t.Errorf("Ping(0) = %q, want %q", got, "Pong0")
	}
}

type DivServer struct {
	Div func(int, int) (int, int, error)
}

type divImpl struct{}

func (divImpl) Div(a, b int) (int, int, error) {
	return a / b, a % b, nil
}

func TestMultiReturnRoundTrip(t *testing.T) {
	skel := startSkeleton[DivServer](t, divImpl{})

	sg, err := Create[DivServer](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	q, r, err := sg.Iface.Div(17, 5)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if q != 3 || r != 2 {
		t.Errorf("Div(17, 5) = %d, %d, want 3, 2", q, r)
	}
}

func TestSurrogateEqualHash(t *testing.T) {
	skel := startSkeleton[PingServer](t, pingImpl{})

	a, err := Create[PingServer](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := Create[PingServer](skel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !a.Equal(b) {
		t.Fatal("two surrogates built from the same (descriptor, address) should be equal")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("two equal surrogates should hash equally")
	}

	other, err := CreateAddr[PingServer](rmi.Addr{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("CreateAddr: %v", err)
	}
	if a.Equal(other) {
		t.Fatal("surrogates at different addresses must not be equal")
	}
}
