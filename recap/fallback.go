package recap

import "fmt"

// padParticipants returns the first n participants, filling gaps with "Participant N" labels. A label that
// matches a real sender is skipped so per-participant maps keep n distinct keys.
func padParticipants(participants []string, n int) []string {
	taken := make(map[string]bool, len(participants))
	for _, p := range participants {
		taken[p] = true
	}
	out := make([]string, n)
	next := 1
	for i := range out {
		if i < len(participants) && participants[i] != "" {
			out[i] = participants[i]
			continue
		}
		if next <= i {
			next = i + 1
		}
		label := fmt.Sprintf("Participant %d", next)
		for taken[label] {
			next++
			label = fmt.Sprintf("Participant %d", next)
		}
		taken[label] = true
		out[i] = label
		next++
	}
	return out
}

func pick[T any](cond bool, yes, no T) T {
	if cond {
		return yes
	}
	return no
}

// FallbackChatAnalysis synthesizes per-conversation insights from local statistics alone. Comparisons of
// average message length and message count choose between fixed labels; everything else is constant.
func FallbackChatAnalysis(participants []string, stats []ParticipantStats) ChatInsights {
	names := padParticipants(participants, 2)
	var s [2]ParticipantStats
	copy(s[:], stats)
	p0, p1 := names[0], names[1]

	longer0 := s[0].AvgLength > s[1].AvgLength
	longer1 := s[1].AvgLength > s[0].AvgLength
	more0 := s[0].MessageCount > s[1].MessageCount
	more1 := s[1].MessageCount > s[0].MessageCount

	pair := func(a, b string) map[string]string { return map[string]string{p0: a, p1: b} }
	lists := func(a, b Labels) map[string]Labels { return map[string]Labels{p0: a, p1: b} }

	return ChatInsights{
		Participants: []string{p0, p1},
		Sentiments: pair(
			pick(longer0, "positive", "neutral"),
			pick(longer1, "positive", "mixed"),
		),
		Tones: lists(
			pick(more0, Labels{"engaging", "expressive", "supportive"}, Labels{"casual", "friendly", "responsive"}),
			pick(more1, Labels{"thoughtful", "detailed", "caring"}, Labels{"concise", "direct", "warm"}),
		),
		EmotionsDetected: lists(Labels{"curiosity", "engagement", "warmth"}, Labels{"trust", "openness", "appreciation"}),
		Intents:          lists(Labels{"connecting", "sharing", "supporting"}, Labels{"responding", "engaging", "bonding"}),
		ToxicityIndex:    pair("Low", "Low"),
		OpennessScore: pair(
			pick(more0, "High", "Medium"),
			pick(more1, "High", "Medium"),
		),
		TrustScore:     pair("Medium", "High"),
		LoveIndex:      pair("Medium", "Medium"),
		SarcasmUsage:   pair("Occasional", "None"),
		CuriosityLevel: pair("High", "Medium"),
		CommunicationStyle: pair(
			pick(longer0, "expressive", "casual"),
			pick(longer1, "thoughtful", "supportive"),
		),
		EmotionalExpressiveness: pair("expressive", "moderate"),
		ConflictApproach:        pair("diplomatic", "direct"),
		HumorStyle:              pair("playful", "witty"),
		Responsiveness: Responsiveness{
			User1ResponseRate: "High",
			User2ResponseRate: "Medium",
			MostEngaged:       p0,
		},
		MessageBalance: MessageBalance{
			User1MsgCount: Score(s[0].MessageCount),
			User2MsgCount: Score(s[1].MessageCount),
		},
		EmotionalShift:      fallbackEmotionalShift,
		RelationshipSummary: fallbackRelationshipSummary,
	}
}

// FallbackOverallAnalysis synthesizes aggregate insights without any model output.
func FallbackOverallAnalysis(participants []string) RelationshipInsights {
	names := padParticipants(participants, 2)
	return RelationshipInsights{
		RelationshipType:          "friendship",
		RelationshipStage:         "established",
		CompatibilityScore:        75,
		CommunicationHealth:       "good",
		OverallSentiment:          "positive",
		DominantEmotions:          Labels{"trust", "support", "humor", "curiosity", "affection"},
		RelationshipTrajectory:    fallbackTrajectory,
		RelationshipCompatibility: fallbackCompatibility,
		FuturePredictions:         fallbackPredictions,
		CommunicationAnalysis:     fallbackCommunication,
		EmotionalDynamics:         fallbackDynamics,
		KeyStrengths: Labels{
			"Consistent empathy and attentiveness toward each other",
			"A steady base of trust and mutual respect",
			"Thoughtful replies that build on what the other said",
			"Shared humor that eases tense moments",
			"Reliable encouragement during harder stretches",
		},
		AreasForImprovement: Labels{
			"Raising disagreements more directly instead of letting them fade",
			"Making more room for emotional vulnerability",
			"Talking more explicitly about shared plans and goals",
		},
		ConversationPatterns: ConversationPatterns{
			MostActivePeriods:      Labels{"daily conversations", "evening check-ins"},
			CommunicationFrequency: "high",
			ResponsePatterns:       "quick",
		},
		EmotionalIntelligence: EmotionalIntelligence{
			EmpathyLevel:       "high",
			ConflictResolution: "good",
			EmotionalSupport:   "strong",
		},
		TrustAndIntimacy: TrustAndIntimacy{
			TrustLevel:           "high",
			IntimacyLevel:        "moderate",
			VulnerabilitySharing: "open",
		},
		FutureOutlook:   fallbackOutlook,
		DetailedSummary: fallbackDetailedSummary,
		IndividualAnalysis: map[string]IndividualProfile{
			names[0]: {
				CommunicationStyle: "Measured and articulate. Tends to write complete, well-organized messages, follows up on earlier " +
					"threads and asks clarifying questions, pairing careful reasoning with a warm tone.",
				PersonalityTraits: Labels{"empathetic", "analytical", "supportive", "thoughtful"},
				EmotionalPatterns: "Works through feelings by reflecting on them before responding. Stays emotionally available " +
					"while keeping sensible boundaries, and shares enthusiasm openly when things go well.",
				Strengths:       Labels{"excellent listener", "articulate communicator", "emotionally intelligent", "supportive"},
				DetailedProfile: fallbackProfileFirst,
			},
			names[1]: {
				CommunicationStyle: "Warm and expressive. Writes in a direct, natural voice, mixes questions with personal " +
					"updates and shows enthusiasm through word choice and quick replies.",
				PersonalityTraits: Labels{"warm", "direct", "playful", "loyal"},
				EmotionalPatterns: "Shares feelings openly and tends to process them by talking them through. Comfortable " +
					"being vulnerable and good at making the other person feel safe doing the same.",
				Strengths:       Labels{"authentic expression", "emotional availability", "humor", "reliability"},
				DetailedProfile: fallbackProfileSecond,
			},
		},
		CompatibilityFactors: fallbackCompatibilityFactors,
		TimelineAnalysis: []TimelinePhase{
			{Period: "Early Phase", Sentiment: 70, Engagement: 75, Trust: 60},
			{Period: "Development", Sentiment: 80, Engagement: 85, Trust: 75},
			{Period: "Current", Sentiment: 85, Engagement: 90, Trust: 85},
		},
	}
}

const fallbackEmotionalShift = "Across this conversation the emotional register moves from polite warmth toward easy " +
	"familiarity. The opening messages are friendly but careful, with both people checking how much to share and " +
	"matching each other's energy rather than leading. As the exchange continues the replies get longer and more " +
	"personal, small jokes start to land, and each person picks up threads the other left open earlier. Moments of " +
	"concern or frustration are met with reassurance instead of deflection, which seems to make the next disclosure " +
	"easier. By the later messages the tone is relaxed and affectionate, and the participants are clearly more " +
	"comfortable being candid with one another than they were at the start. The overall arc is one of gradually " +
	"rising trust, with brief dips that are repaired quickly rather than left to linger."

const fallbackRelationshipSummary = "The relationship visible in this conversation rests on attentiveness and mutual " +
	"respect. Both participants respond to what the other actually said, ask follow-up questions and acknowledge " +
	"feelings before moving on, which points to genuine interest rather than routine check-ins. Their styles differ " +
	"in useful ways: one tends to elaborate while the other keeps things brief and grounded, and the mix keeps the " +
	"exchange balanced instead of one-sided. There is a clear sense of emotional safety, since personal topics come " +
	"up without hedging and are received without judgment. Humor appears regularly and is used to connect rather " +
	"than to dodge serious points. Disagreements, where they surface, are handled by explaining and listening rather " +
	"than escalating. Taken together these patterns describe a healthy, well-matched connection with a solid base of " +
	"trust and plenty of room to deepen over time."

const fallbackTrajectory = "Over the span of these conversations the relationship develops steadily from casual " +
	"contact into something more settled and personal. Early exchanges are light and exploratory, focused on everyday " +
	"updates and shared interests. As time passes the participants begin to confide in each other, reference past " +
	"conversations and check in during difficult periods, which signals growing reliance and trust. Their rhythm " +
	"also matures: replies become more considered, humor becomes more specific to the two of them, and serious topics " +
	"are approached with less hesitation. Periods of lower activity do not appear to weaken the bond, since " +
	"conversations resume with the same warmth. The most recent stretch shows the highest level of openness, with " +
	"both people sharing feelings and plans more freely than before. The overall trajectory is one of gradual, " +
	"durable growth built on repeated small acts of attention and support."

const fallbackCompatibility = "These two appear well matched. Their communication styles complement one another, with " +
	"one tending toward detailed reflection and the other toward direct, warm responses, so each fills a gap the " +
	"other might leave. They are attuned to emotional cues and usually respond with the kind of support or levity the " +
	"moment calls for. When tension arises they engage rather than withdraw, and they seem more interested in " +
	"understanding each other than in winning a point. A shared sense of humor gives them an easy way to reconnect, " +
	"while their different perspectives keep conversations interesting. Their underlying values look aligned on the " +
	"things that matter most, including honesty, reliability and care for each other's wellbeing. Neither person " +
	"dominates the exchange or disappears from it for long, and that balance is a strong predictor of a relationship " +
	"that can absorb stress. Potential friction points are minor, mostly a tendency to leave some disagreements " +
	"unspoken, and the goodwill evident throughout suggests they would handle those well. On balance the long-term " +
	"compatibility looks strong."

const fallbackPredictions = "If the current patterns hold, the relationship is likely to keep deepening. Both people " +
	"have shown they feel safe opening up, so future conversations will probably carry more personal and emotional " +
	"content. Their skill at reading each other should keep improving as they accumulate shared history. Outside " +
	"pressures such as busy periods, moves or job changes may test how consistently they stay in touch, but the trust " +
	"and goodwill already established give them a solid footing to handle those. Over the next one to two years it " +
	"would be natural to see more shared plans, more explicit talk about what they want from the relationship and a " +
	"more secure sense of attachment. The main thing to watch is whether small unspoken disagreements accumulate; if " +
	"they keep addressing issues as they arise, the relationship is well placed to remain supportive and rewarding " +
	"for both of them."

const fallbackCommunication = "Their communication balances playfulness with substance. Each person listens closely, " +
	"builds on the other's points and asks questions that show real curiosity. Humor is frequent and usually " +
	"inclusive, and it gives way to a more serious tone when one of them raises something that matters. Feelings are " +
	"expressed plainly rather than hinted at, and affection shows up both in direct statements and in small gestures " +
	"like remembering details. Disagreements are rare and handled calmly, with an emphasis on explaining rather than " +
	"accusing. Reply timing suggests both treat the conversation as a priority, and neither routinely leaves the " +
	"other hanging. Over time their exchanges have grown more nuanced as they learned each other's shorthand. The " +
	"result is a two-way conversation in which both people feel heard."

const fallbackDynamics = "Emotionally the two are closely attuned. They notice shifts in each other's mood, often " +
	"before anything is stated outright, and they respond with encouragement, reassurance or a well-timed joke as " +
	"needed. Celebrations are shared enthusiastically and setbacks are met with patience. Their emotional rhythms " +
	"complement each other: when one is stressed the other tends to steady the conversation, and the roles swap " +
	"readily. The range of emotion on display is broad, from silliness to quiet reflection, which indicates comfort " +
	"with showing more than a curated side of themselves. Boundaries are respected, and neither presses when the " +
	"other signals they need space. This sensitivity appears to have grown over time and now forms a dependable " +
	"foundation for further intimacy."

const fallbackOutlook = "The outlook for this relationship is encouraging. The foundation of trust, respect and easy " +
	"communication they have built should support continued growth in closeness and understanding. Their ability to " +
	"talk through problems suggests they will cope well with the ordinary challenges that come with time and change. " +
	"The clearest opportunities lie in sharing vulnerabilities more readily and in talking more explicitly about " +
	"shared goals, both of which would strengthen an already solid bond. As they keep learning each other's needs, " +
	"their responses to one another are likely to become even more precise and supportive. Their balance of " +
	"independence and connection is healthy and should serve them well over the long term."

const fallbackDetailedSummary = "Taken as a whole, these conversations describe a healthy, mature connection between " +
	"two emotionally aware people. The relationship is grounded in mutual respect and consistent care, and both " +
	"participants invest real attention in the exchange. They move comfortably between light banter and serious " +
	"discussion, which shows flexibility and a shared sense of when each is appropriate. Trust is evident in the way " +
	"personal matters are raised and received, and in the absence of defensiveness when feelings run high. Their " +
	"personalities and communication habits complement one another, so the conversation rarely tilts too far toward " +
	"either person. Support flows in both directions, and each seems to know what the other needs in good moments " +
	"and hard ones. Growth is visible across the timeline: conversations become more open, more specific and more " +
	"affectionate. The few areas for improvement, mainly addressing disagreements head-on and discussing longer-term " +
	"plans, are typical of relationships at this stage and do not detract from an overall picture of a stable, " +
	"fulfilling connection with strong prospects."

const fallbackProfileFirst = "This person brings a thoughtful, steady presence to the relationship. Their messages " +
	"tend to be considered rather than reactive, often weighing more than one side of a situation before offering " +
	"a view. They pay close attention to the other person's emotional state and respond with validation and " +
	"practical support. They value authenticity and seem uninterested in small talk for its own sake, preferring " +
	"conversations that mean something. Their self-awareness shows in how clearly they describe their own thoughts " +
	"and feelings, and they are willing to be vulnerable when it matters. Reliable engagement suggests they treat " +
	"the relationship as a priority. Overall they come across as caring and intellectually engaged, someone who " +
	"combines warmth with careful thinking."

const fallbackProfileSecond = "This person brings warmth and spontaneity to the relationship. They connect easily, " +
	"and their open, accepting manner makes the conversation feel comfortable. They know when to lighten the mood " +
	"with humor and when to set jokes aside and offer sincere support. They are not afraid to show their real " +
	"feelings, and that openness encourages the same from the other person. They ask genuine questions about the " +
	"other's life and follow up on what they hear. Their consistent presence in the conversation signals commitment " +
	"and respect. Overall they come across as genuine and emotionally available, someone who adds both depth and " +
	"playfulness to the people they care about."

const fallbackCompatibilityFactors = "Much of what makes these two work is complementarity. One leans toward structured, " +
	"reflective communication while the other brings expressive warmth and intuition, so both intellectual and " +
	"emotional needs get met. Their different ways of processing events let them offer each other fresh perspective, " +
	"which improves how they solve problems together. The flow of their exchanges is natural, with each knowing when " +
	"to lead and when to listen. Beneath the differences they share core values around honesty, emotional openness " +
	"and respect, and those shared values keep the differences from becoming friction. Each person's strengths cover " +
	"the other's growth areas, and both are quick to notice and meet the other's needs. They can move from serious " +
	"conversation to playful teasing and back without strain, which keeps the relationship both meaningful and fun. " +
	"That mix of common ground and complementary traits gives the relationship deep roots and room to keep growing."
