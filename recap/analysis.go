package recap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is a whole number that also decodes from a quoted number, since repaired output quotes bare scalars.
type Score int

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("score: %q is not a number", raw)
	}
	*s = Score(math.Round(f))
	return nil
}

// Labels is a list of short labels. A single string decodes as a one-element list.
type Labels []string

func (l *Labels) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = Labels{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// ChatInsights is the shape the backend is asked to produce for one conversation.
// Per-participant maps are keyed by sender name.
type ChatInsights struct {
	Participants            []string          `json:"participants"`
	Sentiments              map[string]string `json:"sentiments"`
	Tones                   map[string]Labels `json:"tones"`
	EmotionsDetected        map[string]Labels `json:"emotions_detected"`
	Intents                 map[string]Labels `json:"intents"`
	ToxicityIndex           map[string]string `json:"toxicity_index"`
	OpennessScore           map[string]string `json:"openness_score"`
	TrustScore              map[string]string `json:"trust_score"`
	LoveIndex               map[string]string `json:"love_index"`
	SarcasmUsage            map[string]string `json:"sarcasm_usage"`
	CuriosityLevel          map[string]string `json:"curiosity_level"`
	CommunicationStyle      map[string]string `json:"communication_style"`
	EmotionalExpressiveness map[string]string `json:"emotional_expressiveness"`
	ConflictApproach        map[string]string `json:"conflict_approach"`
	HumorStyle              map[string]string `json:"humor_style"`
	Responsiveness          Responsiveness    `json:"responsiveness"`
	MessageBalance          MessageBalance    `json:"message_balance"`
	EmotionalShift          string            `json:"emotional_shift"`
	RelationshipSummary     string            `json:"relationship_summary"`
}

type Responsiveness struct {
	User1ResponseRate string `json:"user1_response_rate"`
	User2ResponseRate string `json:"user2_response_rate"`
	MostEngaged       string `json:"most_engaged"`
}

type MessageBalance struct {
	User1MsgCount Score `json:"user1_msg_count"`
	User2MsgCount Score `json:"user2_msg_count"`
}

// ChatAnalysis is the per-conversation result returned to callers: the backend's insights plus locally
// computed statistics.
type ChatAnalysis struct {
	ChatInsights
	MessageStats MessageStats `json:"message_stats"`
	FileName     string       `json:"fileName,omitempty"`
}

// RelationshipInsights is the shape the backend is asked to produce across every conversation.
type RelationshipInsights struct {
	RelationshipType          string                       `json:"relationship_type"`
	RelationshipStage         string                       `json:"relationship_stage"`
	CompatibilityScore        Score                        `json:"compatibility_score"`
	CommunicationHealth       string                       `json:"communication_health"`
	OverallSentiment          string                       `json:"overall_sentiment"`
	DominantEmotions          Labels                       `json:"dominant_emotions"`
	RelationshipTrajectory    string                       `json:"relationship_trajectory"`
	RelationshipCompatibility string                       `json:"relationship_compatibility"`
	FuturePredictions         string                       `json:"future_predictions"`
	CommunicationAnalysis     string                       `json:"communication_analysis"`
	EmotionalDynamics         string                       `json:"emotional_dynamics"`
	KeyStrengths              Labels                       `json:"key_strengths"`
	AreasForImprovement       Labels                       `json:"areas_for_improvement"`
	ConversationPatterns      ConversationPatterns         `json:"conversation_patterns"`
	EmotionalIntelligence     EmotionalIntelligence        `json:"emotional_intelligence"`
	TrustAndIntimacy          TrustAndIntimacy             `json:"trust_and_intimacy"`
	FutureOutlook             string                       `json:"future_outlook"`
	DetailedSummary           string                       `json:"detailed_summary"`
	IndividualAnalysis        map[string]IndividualProfile `json:"individual_analysis"`
	CompatibilityFactors      string                       `json:"compatibility_factors"`
	TimelineAnalysis          []TimelinePhase              `json:"timeline_analysis"`
}

type ConversationPatterns struct {
	MostActivePeriods      Labels `json:"most_active_periods"`
	CommunicationFrequency string `json:"communication_frequency"`
	ResponsePatterns       string `json:"response_patterns"`
}

type EmotionalIntelligence struct {
	EmpathyLevel       string `json:"empathy_level"`
	ConflictResolution string `json:"conflict_resolution"`
	EmotionalSupport   string `json:"emotional_support"`
}

type TrustAndIntimacy struct {
	TrustLevel           string `json:"trust_level"`
	IntimacyLevel        string `json:"intimacy_level"`
	VulnerabilitySharing string `json:"vulnerability_sharing"`
}

// IndividualProfile describes one participant across every conversation.
type IndividualProfile struct {
	CommunicationStyle string `json:"communication_style"`
	PersonalityTraits  Labels `json:"personality_traits"`
	EmotionalPatterns  string `json:"emotional_patterns"`
	Strengths          Labels `json:"strengths"`
	DetailedProfile    string `json:"detailed_profile"`
}

// TimelinePhase scores one period of the relationship on a 0-100 scale.
type TimelinePhase struct {
	Period     string `json:"period"`
	Sentiment  Score  `json:"sentiment"`
	Engagement Score  `json:"engagement"`
	Trust      Score  `json:"trust"`
}

// OverallAnalysis is the aggregate result returned to callers.
type OverallAnalysis struct {
	RelationshipInsights
	TotalStats TotalStats `json:"total_stats"`
}
