package relaypb

import (
	"reflect"
	"testing"
)

func TestOpenRequest_RoundTrip(t *testing.T) {
	want := &OpenRequest{
		Origin:            "https://example.com",
		EncryptedZeros:    []byte{1, 2, 3},
		Name:              "happy-turtle",
		WritePasswordHash: []byte{4, 5},
	}
	enc, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := new(OpenRequest)
	if err := got.Unmarshal(enc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestClientUpdate_OneofRoundTrip(t *testing.T) {
	want := &ClientUpdate{Data: &DataUpdate{ID: 3, Data: []byte("hi"), Seq: 7}}
	enc, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := new(ClientUpdate)
	if err := got.Unmarshal(enc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Data == nil || got.Data.ID != 3 || string(got.Data.Data) != "hi" || got.Data.Seq != 7 {
		t.Errorf("got %+v, want Data matching %+v", got, want.Data)
	}
	if got.Hello != nil || got.CreatedShell != nil || got.ClosedShell != nil || got.Pong != nil || got.Error != nil {
		t.Errorf("expected only Data set, got %+v", got)
	}
}

func TestServerUpdate_CloseShellOneof(t *testing.T) {
	id := uint32(42)
	want := &ServerUpdate{CloseShell: &id}
	enc, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := new(ServerUpdate)
	if err := got.Unmarshal(enc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.CloseShell == nil || *got.CloseShell != 42 {
		t.Errorf("CloseShell = %v, want 42", got.CloseShell)
	}
}

func TestSequenceNumbers_MapRoundTrip(t *testing.T) {
	want := &SequenceNumbers{Map: map[uint32]uint64{1: 100, 2: 200}}
	enc, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := new(SequenceNumbers)
	if err := got.Unmarshal(enc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(want.Map, got.Map) {
		t.Errorf("Map = %v, want %v", got.Map, want.Map)
	}
}

func TestNewShell_NegativeCoordinates(t *testing.T) {
	want := &NewShell{ID: 1, X: -10, Y: -20}
	enc, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := new(NewShell)
	if err := got.Unmarshal(enc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.X != -10 || got.Y != -20 {
		t.Errorf("got X=%d Y=%d, want X=-10 Y=-20", got.X, got.Y)
	}
}
