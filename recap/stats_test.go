package recap

import (
	"strings"
	"testing"
)

func msg(sender string, ts int64, content string) ChatMessage {
	return ChatMessage{SenderName: sender, TimestampMS: ts, Content: content}
}

func TestParticipants(t *testing.T) {
	t.Parallel()

	msgs := []ChatMessage{msg("B", 1, ""), msg("A", 2, ""), msg("B", 3, ""), msg("C", 4, "")}
	if got := Participants(msgs, 2); len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Fatalf("got=%v", got)
	}
	if got := Participants(msgs, 0); len(got) != 3 || got[2] != "C" {
		t.Fatalf("got=%v", got)
	}
	if got := Participants(nil, 2); got == nil || len(got) != 0 {
		t.Fatalf("got=%v", got)
	}
}

func TestComputeMessageStats(t *testing.T) {
	t.Parallel()

	day := int64(msPerDay)
	msgs := []ChatMessage{msg("A", 3*day, "héllo"), msg("B", 0, "hi"), msg("A", day, "abcd")}
	st := ComputeMessageStats(msgs)
	if st.TotalMessages != 3 {
		t.Fatalf("total=%d", st.TotalMessages)
	}
	// (5 + 2 + 4) / 3 = 3.67 rounds to 4; "héllo" counts runes.
	if st.AvgMessageLength != 4 {
		t.Fatalf("avg=%d", st.AvgMessageLength)
	}
	if st.ConversationDuration != "3 days" {
		t.Fatalf("duration=%q", st.ConversationDuration)
	}

	same := ComputeMessageStats([]ChatMessage{msg("A", 0, "x"), msg("B", day/3, "y")})
	if same.ConversationDuration != "Same day" {
		t.Fatalf("duration=%q", same.ConversationDuration)
	}
	// Half a day rounds up.
	half := ComputeMessageStats([]ChatMessage{msg("A", 0, "x"), msg("B", day/2, "y")})
	if half.ConversationDuration != "1 days" {
		t.Fatalf("duration=%q", half.ConversationDuration)
	}
	empty := ComputeMessageStats(nil)
	if empty.TotalMessages != 0 || empty.AvgMessageLength != 0 || empty.ConversationDuration != "Same day" {
		t.Fatalf("empty=%+v", empty)
	}
}

func TestComputeParticipantStats(t *testing.T) {
	t.Parallel()

	msgs := []ChatMessage{msg("A", 0, "aaaa"), msg("B", 0, "bb"), msg("A", 0, "aa"), msg("C", 0, "ccc")}
	st := ComputeParticipantStats(msgs, []string{"A", "B", "Participant 3"})
	if st[0].MessageCount != 2 || st[0].AvgLength != 3 {
		t.Fatalf("A=%+v", st[0])
	}
	if st[1].MessageCount != 1 || st[1].AvgLength != 2 {
		t.Fatalf("B=%+v", st[1])
	}
	if st[2].MessageCount != 0 || st[2].AvgLength != 0 {
		t.Fatalf("missing=%+v", st[2])
	}
}

func TestComputeTotalStats(t *testing.T) {
	t.Parallel()

	day := int64(msPerDay)
	chats := []ChatFile{
		{Name: "message_1.json", Data: []ChatMessage{msg("A", 0, "x"), msg("B", day, "y"), msg("A", 2*day, "z")}},
		{Name: "message_2.json", Data: []ChatMessage{msg("C", 10*day, "w"), msg("A", 9*day, "v")}},
	}
	st := ComputeTotalStats(chats)
	if st.TotalMessages != 5 || st.TotalParticipants != 3 {
		t.Fatalf("st=%+v", st)
	}
	if st.ConversationSpan != "10 days" {
		t.Fatalf("span=%q", st.ConversationSpan)
	}
	// 5 / 2 = 2.5 rounds to 3.
	if st.AvgDailyMessages != 3 {
		t.Fatalf("avg=%d", st.AvgDailyMessages)
	}
	if z := ComputeTotalStats(nil); z.AvgDailyMessages != 0 || z.TotalMessages != 0 {
		t.Fatalf("z=%+v", z)
	}
}

func TestBuildTranscript(t *testing.T) {
	t.Parallel()

	msgs := []ChatMessage{msg("A", 0, "hi"), msg("B", 0, "yo")}
	if got := BuildTranscript(msgs, 0, ""); got != "A: hi\nB: yo" {
		t.Fatalf("got=%q", got)
	}
	if got := BuildTranscript(msgs, 100, "[more]"); got != "A: hi\nB: yo" {
		t.Fatalf("got=%q", got)
	}
	if got := BuildTranscript(msgs, 4, "[more]"); got != "A: h[more]" {
		t.Fatalf("got=%q", got)
	}
	// Truncation never splits a multi-byte rune.
	got := BuildTranscript([]ChatMessage{msg("Zoë", 0, "ñññ")}, 3, "")
	if got != "Zoë" {
		t.Fatalf("got=%q", got)
	}
	long := BuildTranscript([]ChatMessage{msg("A", 0, strings.Repeat("x", chatTranscriptLimit))}, chatTranscriptLimit, transcriptMarker)
	if !strings.HasSuffix(long, transcriptMarker) {
		t.Fatalf("expected marker suffix")
	}
}
