package messaging

import (
	"testing"
	"time"
)

func TestParticipantKey(t *testing.T) {
	if ParticipantKey("b", "a") != ParticipantKey("a", "b") {
		t.Error("ParticipantKey() is order dependent")
	}
	if got, want := ParticipantKey("u1", "u2"), "u1:u2"; got != want {
		t.Errorf("ParticipantKey() = %q, want %q", got, want)
	}

	conv := Conversation{ParticipantIDs: []string{"u2", "u1"}}
	if conv.Key() != "u1:u2" {
		t.Errorf("Key() = %q, want %q", conv.Key(), "u1:u2")
	}
	malformed := Conversation{ParticipantIDs: []string{"u1"}}
	if malformed.Key() != "" {
		t.Errorf("Key() = %q, want empty for a malformed pair", malformed.Key())
	}
}

func TestConversation_OtherParticipant(t *testing.T) {
	conv := Conversation{ParticipantIDs: []string{"u1", "u2"}}
	if got := conv.OtherParticipant("u1"); got != "u2" {
		t.Errorf("OtherParticipant() = %q, want %q", got, "u2")
	}
	if got := conv.OtherParticipant("u2"); got != "u1" {
		t.Errorf("OtherParticipant() = %q, want %q", got, "u1")
	}
}

func TestGroupByDay(t *testing.T) {
	at := func(day, hour int) time.Time {
		return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
	}
	msgs := []Message{
		{ID: "1", Content: "morning", CreatedAt: at(1, 8)},
		{ID: "2", Content: "evening", CreatedAt: at(1, 22)},
		{ID: "3", Content: "next day", CreatedAt: at(2, 0)}, // midnight starts a new bucket
		{ID: "4", Content: "later", CreatedAt: at(4, 12)},
	}

	groups := GroupByDay(msgs)
	if len(groups) != 3 {
		t.Fatalf("GroupByDay() returned %d groups, want 3", len(groups))
	}

	wantDays := []string{"2026-03-01", "2026-03-02", "2026-03-04"}
	wantSizes := []int{2, 1, 1}
	var total int
	for i, g := range groups {
		if g.Day != wantDays[i] {
			t.Errorf("group %d day = %q, want %q", i, g.Day, wantDays[i])
		}
		if len(g.Messages) != wantSizes[i] {
			t.Errorf("group %d has %d messages, want %d", i, len(g.Messages), wantSizes[i])
		}
		total += len(g.Messages)
	}
	if total != len(msgs) {
		t.Errorf("GroupByDay() kept %d messages, want %d", total, len(msgs))
	}

	// order within a day is preserved
	if groups[0].Messages[0].ID != "1" || groups[0].Messages[1].ID != "2" {
		t.Error("GroupByDay() reordered messages within a day")
	}

	if got := GroupByDay(nil); len(got) != 0 {
		t.Errorf("GroupByDay(nil) = %v, want empty", got)
	}
}
