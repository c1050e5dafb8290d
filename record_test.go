package rmi

import (
	"bytes"
	"testing"

	"github.com/blitz-frost/rmi/wire"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	dec := wire.NewDecoder(&buf)

	req := Request{MethodName: "Ping", ArgumentTypes: []string{"int", "string"}}
	if err := req.Encode(enc); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := DecodeRequest(dec)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.MethodName != req.MethodName {
		t.Errorf("MethodName = %q, want %q", got.MethodName, req.MethodName)
	}
	if len(got.ArgumentTypes) != len(req.ArgumentTypes) {
		t.Fatalf("ArgumentTypes len = %d, want %d", len(got.ArgumentTypes), len(req.ArgumentTypes))
	}
	for i := range req.ArgumentTypes {
		if got.ArgumentTypes[i] != req.ArgumentTypes[i] {
			t.Errorf("ArgumentTypes[%d] = %q, want %q", i, got.ArgumentTypes[i], req.ArgumentTypes[i])
		}
	}
}

func TestRequestZeroArity(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	dec := wire.NewDecoder(&buf)

	req := Request{MethodName: "Ping", ArgumentTypes: nil}
	if err := req.Encode(enc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeRequest(dec)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if len(got.ArgumentTypes) != 0 {
		t.Fatalf("ArgumentTypes = %v, want empty", got.ArgumentTypes)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	for _, status := range []Status{StatusNormal, StatusException, StatusError} {
		var buf bytes.Buffer
		enc := wire.NewEncoder(&buf)
		dec := wire.NewDecoder(&buf)

		resp := Response{Status: status}
		if err := resp.Encode(enc); err != nil {
			t.Fatalf("Encode(%v): %v", status, err)
		}
		got, err := DecodeResponse(dec)
		if err != nil {
			t.Fatalf("DecodeResponse(%v): %v", status, err)
		}
		if got.Status != status {
			t.Errorf("Status = %v, want %v", got.Status, status)
		}
	}
}

func TestResponseInvalidStatus(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	dec := wire.NewDecoder(&buf)

	if err := enc.Encode(int8(99)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := DecodeResponse(dec); err == nil {
		t.Fatal("expected an error decoding an out-of-range status")
	}
}
