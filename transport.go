package rmi

import "reflect"

// Transportable is implemented by values that must cross the wire as a
// bare address rather than through the generic wire codec — namely
// stub.Surrogate, whose function fields are not serializable. A method
// whose argument or return type implements Transportable (the "factory of
// stubs" pattern, §8 scenario 2) is carried over the wire as its Addr and
// reconstructed on the receiving side.
type Transportable interface {
	Addr() Addr
}

// TransportableType is reflect.TypeOf((*Transportable)(nil)).Elem(), kept
// here so stub and skeleton don't each redeclare it.
var TransportableType = reflect.TypeOf((*Transportable)(nil)).Elem()

// Rehydratable is implemented by the same values as Transportable, adding
// the receiving half: reconstruct the value in place from the Addr it
// crossed the wire as. Declared here, rather than left private to stub, so
// that skeleton can decode a Transportable-typed argument without importing
// stub (which itself imports skeleton).
type Rehydratable interface {
	Transportable
	RehydrateAddr(Addr) error
}

var RehydratableType = reflect.TypeOf((*Rehydratable)(nil)).Elem()
