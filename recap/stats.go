package recap

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const msPerDay = 1000 * 60 * 60 * 24

// MessageStats are computed locally for one conversation and never sent to the backend.
type MessageStats struct {
	TotalMessages        int    `json:"total_messages"`
	AvgMessageLength     int    `json:"avg_message_length"`
	ConversationDuration string `json:"conversation_duration"`
}

// TotalStats are computed locally across every conversation.
type TotalStats struct {
	TotalMessages     int    `json:"total_messages"`
	TotalParticipants int    `json:"total_participants"`
	ConversationSpan  string `json:"conversation_span"`
	AvgDailyMessages  int    `json:"avg_daily_messages"`
}

// ParticipantStats feed fallback synthesis.
type ParticipantStats struct {
	Name         string
	MessageCount int
	AvgLength    float64
}

// Participants returns distinct sender names in first-seen order, capped at limit when limit > 0.
func Participants(messages []ChatMessage, limit int) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range messages {
		if _, ok := seen[m.SenderName]; ok {
			continue
		}
		seen[m.SenderName] = struct{}{}
		out = append(out, m.SenderName)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ComputeMessageStats returns message count, rounded average content length in runes, and duration.
func ComputeMessageStats(messages []ChatMessage) MessageStats {
	st := MessageStats{TotalMessages: len(messages), ConversationDuration: formatSpan(messages)}
	if len(messages) == 0 {
		return st
	}
	total := 0
	for _, m := range messages {
		total += utf8.RuneCountInString(m.Content)
	}
	st.AvgMessageLength = roundHalfUp(float64(total) / float64(len(messages)))
	return st
}

// ComputeParticipantStats returns per-participant counts and average lengths, in participant order.
// A participant with no messages has an average length of 0.
func ComputeParticipantStats(messages []ChatMessage, participants []string) []ParticipantStats {
	out := make([]ParticipantStats, len(participants))
	lengths := make([]int, len(participants))
	index := make(map[string]int, len(participants))
	for i, p := range participants {
		out[i].Name = p
		if _, dup := index[p]; !dup {
			index[p] = i
		}
	}
	for _, m := range messages {
		i, ok := index[m.SenderName]
		if !ok {
			continue
		}
		out[i].MessageCount++
		lengths[i] += utf8.RuneCountInString(m.Content)
	}
	for i := range out {
		if out[i].MessageCount > 0 {
			out[i].AvgLength = float64(lengths[i]) / float64(out[i].MessageCount)
		}
	}
	return out
}

// ComputeTotalStats aggregates every conversation. The average is messages per conversation.
func ComputeTotalStats(chats []ChatFile) TotalStats {
	all := AllMessages(chats)
	return TotalStats{
		TotalMessages:     len(all),
		TotalParticipants: len(Participants(all, 0)),
		ConversationSpan:  formatSpan(all),
		AvgDailyMessages:  roundHalfUp(float64(len(all)) / float64(max(len(chats), 1))),
	}
}

// AllMessages concatenates the messages of every file in order.
func AllMessages(chats []ChatFile) []ChatMessage {
	n := 0
	for _, c := range chats {
		n += len(c.Data)
	}
	out := make([]ChatMessage, 0, n)
	for _, c := range chats {
		out = append(out, c.Data...)
	}
	return out
}

func formatSpan(messages []ChatMessage) string {
	if len(messages) == 0 {
		return "Same day"
	}
	lo, hi := messages[0].TimestampMS, messages[0].TimestampMS
	for _, m := range messages[1:] {
		lo = min(lo, m.TimestampMS)
		hi = max(hi, m.TimestampMS)
	}
	days := roundHalfUp(float64(hi-lo) / msPerDay)
	if days > 0 {
		return fmt.Sprintf("%d days", days)
	}
	return "Same day"
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// BuildTranscript renders "sender: content" lines. When the transcript exceeds maxChars runes it is cut
// at maxChars and marker is appended.
func BuildTranscript(messages []ChatMessage, maxChars int, marker string) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.SenderName)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	s := b.String()
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + marker
		}
		n++
	}
	return s
}
