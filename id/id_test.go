package id_test

import (
	"testing"

	"github.com/kestrel-ev/evbus/id"
)

func TestNewHandlerID(t *testing.T) {
	got := id.NewHandlerID()
	if got.IsNil() {
		t.Fatal("expected non-nil id")
	}
	if got.Prefix() != id.PrefixHandler {
		t.Fatalf("expected prefix %q, got %q", id.PrefixHandler, got.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := id.NewShardID()

	parsed, err := id.Parse(original.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.String() != original.String() {
		t.Fatalf("round trip mismatch: %s != %s", parsed, original)
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	wkr := id.NewWorkerID()

	_, err := id.ParseWithPrefix(wkr.String(), id.PrefixHandler)
	if err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Fatal("expected id.Nil to be nil")
	}
	if id.Nil.String() != "" {
		t.Fatalf("expected empty string, got %q", id.Nil.String())
	}
}

func TestUnmarshalTextEmpty(t *testing.T) {
	var got id.ID
	if err := got.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !got.IsNil() {
		t.Fatal("expected nil id after unmarshaling empty text")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	original := id.NewEventID()

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got id.ID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got.String() != original.String() {
		t.Fatalf("round trip mismatch: %s != %s", got, original)
	}
}
