package recap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	chatTranscriptLimit    = 30000
	overallTranscriptLimit = 50000
	transcriptMarker       = "\n[... conversation continues ...]"

	credentialProbePrompt = "Say 'API key is working' if you can read this."
)

const chatRules = `CRITICAL RULES:
1. Return ONLY the JSON object, no other text
2. Use only single values from options (Low/Medium/High, positive/negative/neutral/mixed)
3. Arrays must contain 2-4 items maximum
4. No comma-separated values in string fields
5. All strings must be in quotes
6. No trailing commas
7. Make emotional_shift and relationship_summary very detailed and elaborate`

const overallRules = `CRITICAL RULES:
1. Return ONLY the JSON object, no other text
2. All text fields should be very detailed, elaborate, and descriptive
3. Use only single values from specified options
4. Make all analysis very specific and insightful
5. Ensure all JSON syntax is valid`

// BuildChatPrompt asks for a ChatInsights object about one conversation. The expected shape is rendered
// with the real participant names and message counts.
func BuildChatPrompt(messages []ChatMessage, participants []string) string {
	names := padParticipants(participants, 2)
	stats := ComputeParticipantStats(messages, names)

	var b strings.Builder
	fmt.Fprintf(&b, "You are ChatRecapAI. Analyze the conversation between %s and return ONLY valid JSON.\n\n", strings.Join(names, " and "))
	b.WriteString("STRICT JSON FORMAT REQUIRED:\n")
	b.WriteString(mustIndent(chatExample(names, stats)))
	b.WriteString("\n\n")
	b.WriteString(chatRules)
	b.WriteString("\n\nAnalyze based on actual message content and provide different assessments for each participant.\n\n")
	b.WriteString("Chat: ")
	b.WriteString(BuildTranscript(messages, chatTranscriptLimit, transcriptMarker))
	b.WriteString("\n")
	return b.String()
}

// BuildOverallPrompt asks for a RelationshipInsights object across every conversation. Prior
// per-conversation results are summarized so the backend can build on them.
func BuildOverallPrompt(chats []ChatFile, prior []ChatAnalysis) string {
	all := AllMessages(chats)
	participants := Participants(all, 0)
	names := padParticipants(participants, 2)

	var b strings.Builder
	fmt.Fprintf(&b, "You are ChatRecapAI, an advanced relationship analyst. Analyze the complete conversation between %s and provide comprehensive relationship insights.\n\n", strings.Join(names, " and "))
	b.WriteString("Return ONLY valid JSON with this exact structure:\n\n")
	b.WriteString(mustIndent(overallExample(names)))
	b.WriteString("\n\n")
	b.WriteString(overallRules)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Analyze %d messages across %d conversations.\n\n", len(all), len(chats))
	if digest := priorDigest(prior); digest != "" {
		b.WriteString("Earlier per-conversation findings:\n")
		b.WriteString(digest)
		b.WriteString("\n")
	}
	b.WriteString("Chat data: ")
	b.WriteString(BuildTranscript(all, overallTranscriptLimit, ""))
	b.WriteString("\n")
	return b.String()
}

func priorDigest(prior []ChatAnalysis) string {
	var b strings.Builder
	for i, a := range prior {
		name := a.FileName
		if name == "" {
			name = fmt.Sprintf("conversation %d", i+1)
		}
		fmt.Fprintf(&b, "- %s: %d messages, %s", name, a.MessageStats.TotalMessages, strings.ToLower(a.MessageStats.ConversationDuration))
		if s := formatLabelMap(a.Sentiments); s != "" {
			b.WriteString("; sentiments " + s)
		}
		if s := formatLabelMap(a.CommunicationStyle); s != "" {
			b.WriteString("; styles " + s)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLabelMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ", ")
}

func mustIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}

func chatExample(names []string, stats []ParticipantStats) ChatInsights {
	p0, p1 := names[0], names[1]
	pair := func(a, b string) map[string]string { return map[string]string{p0: a, p1: b} }
	lists := func(a, b Labels) map[string]Labels { return map[string]Labels{p0: a, p1: b} }
	return ChatInsights{
		Participants:            []string{p0, p1},
		Sentiments:              pair("positive", "neutral"),
		Tones:                   lists(Labels{"casual", "friendly", "supportive"}, Labels{"thoughtful", "direct", "caring"}),
		EmotionsDetected:        lists(Labels{"curiosity", "warmth", "engagement"}, Labels{"trust", "openness", "appreciation"}),
		Intents:                 lists(Labels{"connecting", "sharing", "supporting"}, Labels{"responding", "engaging", "bonding"}),
		ToxicityIndex:           pair("Low", "Low"),
		OpennessScore:           pair("High", "Medium"),
		TrustScore:              pair("Medium", "High"),
		LoveIndex:               pair("Medium", "Medium"),
		SarcasmUsage:            pair("Occasional", "None"),
		CuriosityLevel:          pair("High", "Medium"),
		CommunicationStyle:      pair("casual", "supportive"),
		EmotionalExpressiveness: pair("expressive", "moderate"),
		ConflictApproach:        pair("diplomatic", "direct"),
		HumorStyle:              pair("playful", "witty"),
		Responsiveness: Responsiveness{
			User1ResponseRate: "High",
			User2ResponseRate: "Medium",
			MostEngaged:       p0,
		},
		MessageBalance: MessageBalance{
			User1MsgCount: Score(stats[0].MessageCount),
			User2MsgCount: Score(stats[1].MessageCount),
		},
		EmotionalShift: "Describe in depth how the emotional tone moved through this conversation: where the mood " +
			"changed, what prompted each change, and how closeness between the participants grew or cooled. " +
			"Be concrete and specific to these messages. At least 150 words.",
		RelationshipSummary: "Give a thorough reading of the relationship as it appears here: how the two " +
			"communicate, how emotionally connected they seem, signs of compatibility or friction, and the " +
			"overall health of the relationship. At least 200 words.",
	}
}

func overallExample(names []string) RelationshipInsights {
	profile := func(traits, strengths Labels) IndividualProfile {
		return IndividualProfile{
			CommunicationStyle: "A detailed paragraph on this person's communication style: tone, responsiveness and how they express themselves.",
			PersonalityTraits:  traits,
			EmotionalPatterns:  "How this person shows and works through emotions over the conversations, in detail.",
			Strengths:          strengths,
			DetailedProfile:    "A profile of at least 150 words built from this person's communication habits, emotional expression and relationship behavior.",
		}
	}
	return RelationshipInsights{
		RelationshipType:    "romantic",
		RelationshipStage:   "established",
		CompatibilityScore:  85,
		CommunicationHealth: "excellent",
		OverallSentiment:    "very positive",
		DominantEmotions:    Labels{"love", "trust", "excitement", "curiosity", "support"},
		RelationshipTrajectory: "A detailed account of how the relationship changed over time, covering communication " +
			"habits, emotional growth, how trust was built and the moments that shaped it. At least 200 words.",
		RelationshipCompatibility: "A detailed assessment of how compatible these two people are: communication " +
			"styles, emotional needs, how they handle conflict, shared values and long-term potential, naming " +
			"both what works and what could strain them. At least 250 words.",
		FuturePredictions: "A detailed forecast for the relationship over the next one to two years: likely " +
			"milestones, probable challenges and how the bond may deepen. At least 200 words.",
		CommunicationAnalysis: "An in-depth look at how they talk to each other: expressing emotion, disagreeing, " +
			"showing affection and offering support. At least 200 words.",
		EmotionalDynamics: "A detailed look at their emotional connection: how well they read each other, how they " +
			"support each other and how closeness shows up in their messages. At least 200 words.",
		KeyStrengths: Labels{
			"Strong empathy in how they respond to each other",
			"Visible trust and mutual respect",
			"Attentive listening and considered replies",
		},
		AreasForImprovement: Labels{
			"More direct communication during disagreements",
			"Room for deeper emotional openness",
		},
		ConversationPatterns: ConversationPatterns{
			MostActivePeriods:      Labels{"evening conversations", "weekend check-ins"},
			CommunicationFrequency: "very high",
			ResponsePatterns:       "immediate",
		},
		EmotionalIntelligence: EmotionalIntelligence{
			EmpathyLevel:       "very high",
			ConflictResolution: "excellent",
			EmotionalSupport:   "very strong",
		},
		TrustAndIntimacy: TrustAndIntimacy{
			TrustLevel:           "very high",
			IntimacyLevel:        "high",
			VulnerabilitySharing: "very open",
		},
		FutureOutlook: "A detailed, hopeful but realistic view of where the relationship is heading, with specific " +
			"expectations for growth, challenges and long-term fit. At least 200 words.",
		DetailedSummary: "A comprehensive report covering every aspect of the relationship: dynamics, communication, " +
			"emotional connection and compatibility, written like a professional assessment. At least 300 words.",
		IndividualAnalysis: map[string]IndividualProfile{
			names[0]: profile(Labels{"empathetic", "analytical", "supportive", "thoughtful"}, Labels{"excellent listener", "articulate communicator", "emotionally intelligent"}),
			names[1]: profile(Labels{"warm", "direct", "playful", "loyal"}, Labels{"authentic expression", "emotional availability", "humor"}),
		},
		CompatibilityFactors: "At least 200 words on why these two work well together: complementary traits, shared " +
			"values and how their differences strengthen the relationship.",
		TimelineAnalysis: []TimelinePhase{
			{Period: "Early Phase", Sentiment: 75, Engagement: 80, Trust: 60},
			{Period: "Development", Sentiment: 85, Engagement: 90, Trust: 80},
			{Period: "Current", Sentiment: 90, Engagement: 85, Trust: 95},
		},
	}
}
