package wire

import (
	"bytes"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	buf := EncodeClientToServer(12345, -1, 7, "gopher")
	msg, err := DecodeClientToServer(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.SessionID != 12345 || msg.TurnDirection != -1 || msg.NextExpectedEvent != 7 || msg.Name != "gopher" {
		t.Fatalf("round-trip mismatch: %+v", msg)
	}
}

func TestClientRejectsBadTurnDirection(t *testing.T) {
	buf := EncodeClientToServer(1, 0, 0, "x")
	buf[8] = 2
	if _, err := DecodeClientToServer(buf); err == nil {
		t.Fatal("expected error for turn_direction=2")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != Malformed {
		t.Fatalf("expected Malformed, got %v", err)
	}
}

func TestClientRejectsOutOfRangeName(t *testing.T) {
	buf := EncodeClientToServer(1, 0, 0, "bad\x00name")
	if _, err := DecodeClientToServer(buf); err == nil {
		t.Fatal("expected error for out-of-range name byte")
	}
}

func TestClientRejectsTruncated(t *testing.T) {
	if _, err := DecodeClientToServer([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected truncated error")
	} else if de := err.(*DecodeError); de.Kind != Truncated {
		t.Fatalf("expected Truncated, got %v", de.Kind)
	}
}

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		{Number: 0, Type: NewGame, Data: EncodeNewGameData(800, 600, []string{"A", "B"})},
		{Number: 1, Type: Pixel, Data: EncodePixelData(0, 10, 20)},
		{Number: 2, Type: PlayerEliminated, Data: EncodePlayerEliminatedData(0)},
		{Number: 3, Type: GameOver, Data: nil},
	}

	datagram, consumed := EncodeServerToClient(42, events)
	if consumed != len(events) {
		t.Fatalf("expected all %d events to fit, consumed %d", len(events), consumed)
	}

	decoded, err := DecodeServerToClient(datagram)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.GameID != 42 {
		t.Fatalf("game id mismatch: %d", decoded.GameID)
	}
	if len(decoded.Events) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(decoded.Events))
	}
	for i, e := range decoded.Events {
		if e.Number != events[i].Number || e.Type != events[i].Type || !bytes.Equal(e.Data, events[i].Data) {
			t.Fatalf("event %d mismatch: got %+v want %+v", i, e, events[i])
		}
	}
}

func TestEventPacking(t *testing.T) {
	var events []Event
	for i := uint32(0); i < 40; i++ {
		events = append(events, Event{Number: i, Type: Pixel, Data: EncodePixelData(0, i, i)})
	}
	datagram, consumed := EncodeServerToClient(1, events)
	if len(datagram) > MaxDatagramSize {
		t.Fatalf("datagram exceeds MaxDatagramSize: %d", len(datagram))
	}
	if consumed >= len(events) {
		t.Fatalf("expected packing to stop short of all %d events, consumed %d", len(events), consumed)
	}

	// The unconsumed tail must fit in a fresh datagram (simulating the
	// "send then begin a fresh one" packing loop).
	rest, consumedRest := EncodeServerToClient(1, events[consumed:])
	if len(rest) > MaxDatagramSize {
		t.Fatalf("second datagram exceeds MaxDatagramSize: %d", len(rest))
	}
	if consumed+consumedRest != len(events) {
		t.Fatalf("two datagrams did not cover all events: %d + %d != %d", consumed, consumedRest, len(events))
	}
}

func TestCRCIsolation(t *testing.T) {
	events := []Event{
		{Number: 0, Type: Pixel, Data: EncodePixelData(0, 1, 1)},
		{Number: 1, Type: Pixel, Data: EncodePixelData(1, 2, 2)},
	}
	datagram, _ := EncodeServerToClient(7, events)

	// Flip a bit inside the first event's event_data.
	corrupt := append([]byte(nil), datagram...)
	corrupt[4+9] ^= 0x01 // first byte of first event's data region

	decoded, err := DecodeServerToClient(corrupt)
	if err == nil {
		t.Fatal("expected BadCRC error")
	}
	if de := err.(*DecodeError); de.Kind != BadCRC {
		t.Fatalf("expected BadCRC, got %v", de.Kind)
	}
	// Events parsed before the corrupt one are still returned.
	if len(decoded.Events) != 0 {
		t.Fatalf("expected zero events before the first (corrupted) one, got %d", len(decoded.Events))
	}
}

func TestCRCIsolationTrailingEventUnaffected(t *testing.T) {
	events := []Event{
		{Number: 0, Type: Pixel, Data: EncodePixelData(0, 1, 1)},
		{Number: 1, Type: Pixel, Data: EncodePixelData(1, 2, 2)},
		{Number: 2, Type: Pixel, Data: EncodePixelData(2, 3, 3)},
	}
	datagram, _ := EncodeServerToClient(7, events)

	corrupt := append([]byte(nil), datagram...)
	firstLen := int(bigEndianUint32(corrupt[4:8]))
	secondEventOffset := 4 + 4 + firstLen + 4
	corrupt[secondEventOffset+9] ^= 0x01 // inside second event's data

	decoded, err := DecodeServerToClient(corrupt)
	if err == nil {
		t.Fatal("expected BadCRC error")
	}
	if len(decoded.Events) != 1 {
		t.Fatalf("expected exactly the first event to have decoded, got %d", len(decoded.Events))
	}
}

func bigEndianUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func TestUnknownEventTypeSkipped(t *testing.T) {
	events := []Event{
		{Number: 0, Type: Pixel, Data: EncodePixelData(0, 1, 1)},
	}
	datagram, _ := EncodeServerToClient(1, events)

	// Append a bogus event with an unknown type but a valid CRC so decode
	// must tolerate it.
	bogus := EncodeEvent(nil, Event{Number: 1, Type: EventType(200), Data: []byte{9, 9}})
	full := append(datagram, bogus...)

	decoded, err := DecodeServerToClient(full)
	if err != nil {
		t.Fatalf("unexpected error decoding datagram with unknown event type: %v", err)
	}
	if len(decoded.Events) != 1 {
		t.Fatalf("expected unknown event type to be skipped, got %d events", len(decoded.Events))
	}
}

func TestNewGameDataRoundTrip(t *testing.T) {
	data := EncodeNewGameData(800, 600, []string{"Alice", "Bob", "C"})
	got, err := DecodeNewGameData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MaxX != 800 || got.MaxY != 600 {
		t.Fatalf("dims mismatch: %+v", got)
	}
	if len(got.Names) != 3 || got.Names[0] != "Alice" || got.Names[1] != "Bob" || got.Names[2] != "C" {
		t.Fatalf("names mismatch: %+v", got.Names)
	}
}

func TestPixelDataRoundTrip(t *testing.T) {
	data := EncodePixelData(3, 111, 222)
	got, err := DecodePixelData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PlayerNumber != 3 || got.X != 111 || got.Y != 222 {
		t.Fatalf("mismatch: %+v", got)
	}
}
