package recap

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// decodeFields decodes the object in b one field at a time. A required field that is present but does not fit
// its Go type is an error; any other such field is coerced when it holds scalars and left zero otherwise.
func decodeFields(b []byte, fields map[string]any, required ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, dst := range fields {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		err := json.Unmarshal(msg, dst)
		if err == nil {
			continue
		}
		if coerceScalars(msg, dst) {
			continue
		}
		if slices.Contains(required, key) {
			return fmt.Errorf("field %s: %w", key, err)
		}
		reflect.ValueOf(dst).Elem().SetZero()
	}
	return nil
}

// coerceScalars fills string-shaped destinations from numbers and booleans, which models emit for
// fields like trust_score.
func coerceScalars(msg json.RawMessage, dst any) bool {
	switch d := dst.(type) {
	case *string:
		s, ok := scalarText(msg)
		if ok {
			*d = s
		}
		return ok
	case *map[string]string:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			return false
		}
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := scalarText(v)
			if !ok {
				return false
			}
			out[k] = s
		}
		*d = out
		return true
	}
	return false
}

func scalarText(msg json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", true
	}
	return "", false
}

// UnmarshalJSON keeps a reply whose optional fields have unexpected shapes; only participants and sentiments
// must decode.
func (c *ChatInsights) UnmarshalJSON(b []byte) error {
	var v ChatInsights
	err := decodeFields(b, map[string]any{
		"participants":             &v.Participants,
		"sentiments":               &v.Sentiments,
		"tones":                    &v.Tones,
		"emotions_detected":        &v.EmotionsDetected,
		"intents":                  &v.Intents,
		"toxicity_index":           &v.ToxicityIndex,
		"openness_score":           &v.OpennessScore,
		"trust_score":              &v.TrustScore,
		"love_index":               &v.LoveIndex,
		"sarcasm_usage":            &v.SarcasmUsage,
		"curiosity_level":          &v.CuriosityLevel,
		"communication_style":      &v.CommunicationStyle,
		"emotional_expressiveness": &v.EmotionalExpressiveness,
		"conflict_approach":        &v.ConflictApproach,
		"humor_style":              &v.HumorStyle,
		"responsiveness":           &v.Responsiveness,
		"message_balance":          &v.MessageBalance,
		"emotional_shift":          &v.EmotionalShift,
		"relationship_summary":     &v.RelationshipSummary,
	}, "participants", "sentiments")
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// UnmarshalJSON is declared so the embedded ChatInsights decoder does not swallow the local fields.
func (c *ChatAnalysis) UnmarshalJSON(b []byte) error {
	var insights ChatInsights
	if err := insights.UnmarshalJSON(b); err != nil {
		return err
	}
	var local struct {
		MessageStats MessageStats `json:"message_stats"`
		FileName     string       `json:"fileName"`
	}
	if err := json.Unmarshal(b, &local); err != nil {
		return err
	}
	*c = ChatAnalysis{ChatInsights: insights, MessageStats: local.MessageStats, FileName: local.FileName}
	return nil
}

// UnmarshalJSON keeps a reply whose optional fields have unexpected shapes; only relationship_type and
// compatibility_score must decode.
func (r *RelationshipInsights) UnmarshalJSON(b []byte) error {
	var v RelationshipInsights
	err := decodeFields(b, map[string]any{
		"relationship_type":          &v.RelationshipType,
		"relationship_stage":         &v.RelationshipStage,
		"compatibility_score":        &v.CompatibilityScore,
		"communication_health":       &v.CommunicationHealth,
		"overall_sentiment":          &v.OverallSentiment,
		"dominant_emotions":          &v.DominantEmotions,
		"relationship_trajectory":    &v.RelationshipTrajectory,
		"relationship_compatibility": &v.RelationshipCompatibility,
		"future_predictions":         &v.FuturePredictions,
		"communication_analysis":     &v.CommunicationAnalysis,
		"emotional_dynamics":         &v.EmotionalDynamics,
		"key_strengths":              &v.KeyStrengths,
		"areas_for_improvement":      &v.AreasForImprovement,
		"conversation_patterns":      &v.ConversationPatterns,
		"emotional_intelligence":     &v.EmotionalIntelligence,
		"trust_and_intimacy":         &v.TrustAndIntimacy,
		"future_outlook":             &v.FutureOutlook,
		"detailed_summary":           &v.DetailedSummary,
		"individual_analysis":        &v.IndividualAnalysis,
		"compatibility_factors":      &v.CompatibilityFactors,
		"timeline_analysis":          &v.TimelineAnalysis,
	}, "relationship_type", "compatibility_score")
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (o *OverallAnalysis) UnmarshalJSON(b []byte) error {
	var insights RelationshipInsights
	if err := insights.UnmarshalJSON(b); err != nil {
		return err
	}
	var local struct {
		TotalStats TotalStats `json:"total_stats"`
	}
	if err := json.Unmarshal(b, &local); err != nil {
		return err
	}
	*o = OverallAnalysis{RelationshipInsights: insights, TotalStats: local.TotalStats}
	return nil
}
