package syncwire

import (
	"testing"
	"time"
)

func TestDecode_Valid(t *testing.T) {
	data := []byte(`{"type":"play","roomId":"R1","clientId":"c1","currentTime":10.5,"paused":false,"sentAtMs":1700000000000,"videoUrl":"/media/a.mp4"}`)

	ev, ok := Decode(data)
	if !ok {
		t.Fatal("expected valid event")
	}
	if ev.Type != TypePlay || ev.RoomID != "R1" || ev.ClientID != "c1" {
		t.Errorf("unexpected fields: %+v", ev)
	}
	if ev.CurrentTime != 10.5 || ev.Paused || ev.VideoURL != "/media/a.mp4" {
		t.Errorf("unexpected payload: %+v", ev)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"not json":         []byte(`{{{`),
		"empty object":     []byte(`{}`),
		"missing clientId": []byte(`{"type":"play","roomId":"R1"}`),
		"missing roomId":   []byte(`{"type":"play","clientId":"c1"}`),
		"missing type":     []byte(`{"roomId":"R1","clientId":"c1"}`),
	}
	for name, data := range cases {
		if _, ok := Decode(data); ok {
			t.Errorf("%s: expected decode failure", name)
		}
	}
}

func TestDecode_UnknownTypeStillValid(t *testing.T) {
	// Chat and other non-sync messages ride the same socket; they must
	// parse but must not count as sync types.
	ev, ok := Decode([]byte(`{"type":"chat","roomId":"R1","clientId":"c1"}`))
	if !ok {
		t.Fatal("unknown type with required fields should decode")
	}
	if IsSyncType(ev.Type) {
		t.Error("chat must not be a sync type")
	}
}

func TestIsSyncType(t *testing.T) {
	for _, typ := range []string{TypeLoadVideo, TypePlay, TypePause, TypeSeek, TypeTimeSync} {
		if !IsSyncType(typ) {
			t.Errorf("%s should be a sync type", typ)
		}
	}
	for _, typ := range []string{"", "chat", "PLAY", "load_video"} {
		if IsSyncType(typ) {
			t.Errorf("%q should not be a sync type", typ)
		}
	}
}

func TestNew_StampsWallClock(t *testing.T) {
	before := time.Now().UnixMilli()
	ev := New(TypeSeek, "R1", "c1", 33.0, true, "")
	after := time.Now().UnixMilli()

	if ev.SentAtMs < before || ev.SentAtMs > after {
		t.Errorf("SentAtMs = %d, want within [%d, %d]", ev.SentAtMs, before, after)
	}
	if got := ev.SentAt().UnixMilli(); got != ev.SentAtMs {
		t.Errorf("SentAt() round trip = %d, want %d", got, ev.SentAtMs)
	}
}
