package recap

import (
	"encoding/json"
	"testing"
)

func TestChatInsightsUnmarshal_OptionalFieldsTolerated(t *testing.T) {
	t.Parallel()

	in := `{
		"participants": ["Ana", "Ben"],
		"sentiments": {"Ana": "negative", "Ben": "negative"},
		"responsiveness": "High",
		"emotional_shift": {"from": "calm", "to": "tense"},
		"trust_score": {"Ana": 40, "Ben": "55"},
		"tones": {"Ana": "dry", "Ben": ["curt", "tired"]},
		"message_balance": {"user1_msg_count": "3", "user2_msg_count": 2},
		"relationship_summary": "Short and strained."
	}`
	var got ChatInsights
	if err := json.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Sentiments["Ana"] != "negative" || got.Sentiments["Ben"] != "negative" {
		t.Fatalf("sentiments=%v", got.Sentiments)
	}
	if got.Responsiveness != (Responsiveness{}) || got.EmotionalShift != "" {
		t.Fatalf("mis-shaped fields not zeroed: responsiveness=%+v shift=%q", got.Responsiveness, got.EmotionalShift)
	}
	if got.TrustScore["Ana"] != "40" || got.TrustScore["Ben"] != "55" {
		t.Fatalf("trust_score=%v", got.TrustScore)
	}
	if len(got.Tones["Ana"]) != 1 || len(got.Tones["Ben"]) != 2 {
		t.Fatalf("tones=%v", got.Tones)
	}
	if got.MessageBalance.User1MsgCount != 3 || got.RelationshipSummary != "Short and strained." {
		t.Fatalf("balance=%+v summary=%q", got.MessageBalance, got.RelationshipSummary)
	}
}

func TestChatInsightsUnmarshal_RequiredFieldMustFit(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`{"participants": "Ana", "sentiments": {"Ana": "positive"}}`,
		`{"participants": ["Ana"], "sentiments": "positive"}`,
		`{"participants": ["Ana"], "sentiments": {"Ana": {"label": "positive"}}}`,
		`[]`,
	} {
		var got ChatInsights
		if err := json.Unmarshal([]byte(in), &got); err == nil {
			t.Fatalf("expected error for %s, got %+v", in, got)
		}
	}
}

func TestRelationshipInsightsUnmarshal_OptionalFieldsTolerated(t *testing.T) {
	t.Parallel()

	in := `{
		"relationship_type": "friendship",
		"compatibility_score": 81,
		"trust_and_intimacy": "deep",
		"timeline_analysis": {"early": 70},
		"key_strengths": "humor",
		"future_outlook": 9
	}`
	var got RelationshipInsights
	if err := json.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.RelationshipType != "friendship" || got.CompatibilityScore != 81 {
		t.Fatalf("type=%q score=%d", got.RelationshipType, got.CompatibilityScore)
	}
	if got.TrustAndIntimacy != (TrustAndIntimacy{}) || got.TimelineAnalysis != nil {
		t.Fatalf("mis-shaped fields not zeroed: %+v %v", got.TrustAndIntimacy, got.TimelineAnalysis)
	}
	if len(got.KeyStrengths) != 1 || got.FutureOutlook != "9" {
		t.Fatalf("strengths=%v outlook=%q", got.KeyStrengths, got.FutureOutlook)
	}

	var bad RelationshipInsights
	if err := json.Unmarshal([]byte(`{"relationship_type": "friendship", "compatibility_score": "high"}`), &bad); err == nil {
		t.Fatalf("expected error for non-numeric compatibility_score")
	}
}

func TestAnalysisUnmarshal_KeepsLocalStats(t *testing.T) {
	t.Parallel()

	var chat ChatAnalysis
	in := `{"participants":["A"],"sentiments":{"A":"positive"},"responsiveness":1,
		"message_stats":{"total_messages":4,"avg_message_length":9,"conversation_duration":"Same day"},"fileName":"message_3.json"}`
	if err := json.Unmarshal([]byte(in), &chat); err != nil {
		t.Fatalf("Unmarshal chat: %v", err)
	}
	if chat.MessageStats.TotalMessages != 4 || chat.FileName != "message_3.json" || chat.Sentiments["A"] != "positive" {
		t.Fatalf("chat=%+v", chat)
	}

	var overall OverallAnalysis
	in = `{"relationship_type":"family","compatibility_score":"70","total_stats":{"total_messages":12,"total_participants":2}}`
	if err := json.Unmarshal([]byte(in), &overall); err != nil {
		t.Fatalf("Unmarshal overall: %v", err)
	}
	if overall.TotalStats.TotalMessages != 12 || overall.RelationshipType != "family" || overall.CompatibilityScore != 70 {
		t.Fatalf("overall=%+v", overall)
	}
}
