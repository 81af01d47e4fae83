package grace

import "strings"

// DiscoveryState is the lightweight per-conversation signal summary folded
// from message history. It complements the merged ConversationRecord: the
// record holds structured Q&A, the discovery state holds soft signals
// (needs, concerns, visit readiness) picked up opportunistically along the
// way.
type DiscoveryState struct {
	CurrentStage    Stage
	QuestionsAsked  []string
	IdentifiedNeeds []string
	ConcernsShared  []string
	ReadyForVisit   bool
	VisitScheduled  bool
	UserStatus      string
}

// needKeywords maps a need label to the substrings that signal it.
var needKeywords = []struct {
	need     string
	keywords []string
}{
	{"nutrition", []string{"eat", "meal", "food", "nutrition"}},
	{"activities", []string{"activity", "hobby", "garden"}},
	{"safety", []string{"safe", "fall", "emergency"}},
	{"social", []string{"social", "lonely", "friend"}},
	{"independence", []string{"independent", "freedom"}},
}

// FoldDiscoveryState builds the discovery state from history, oldest first,
// so later stage transitions and status changes win.
func FoldDiscoveryState(history []Record) DiscoveryState {
	state := DiscoveryState{CurrentStage: StageTrustBuilding}

	for _, rec := range history {
		text := strings.ToLower(rec.Text)
		meta := rec.Metadata

		if meta.Stage.Valid() {
			state.CurrentStage = meta.Stage
			continue
		}
		if meta.Status != "" {
			state.UserStatus = meta.Status
		}
		if meta.AskedQuestion != "" {
			state.QuestionsAsked = append(state.QuestionsAsked, meta.AskedQuestion)
		}

		for _, nk := range needKeywords {
			if containsAny(text, nk.keywords) {
				state.IdentifiedNeeds = append(state.IdentifiedNeeds, nk.need)
			}
		}

		if concern := concernAfterKeyword(text); concern != "" {
			state.ConcernsShared = append(state.ConcernsShared, concern)
		}

		if containsAny(text, []string{"visit", "tour", "come by"}) {
			state.ReadyForVisit = true
		}
		if containsAny(text, []string{"wednesday", "friday", "schedule"}) {
			state.VisitScheduled = true
		}
	}
	return state
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// concernAfterKeyword returns the text following the earliest concern
// keyword, or empty if none matches or nothing follows it.
func concernAfterKeyword(text string) string {
	best, bestEnd := -1, 0
	for _, k := range []string{"worried", "concern", "afraid"} {
		if i := strings.Index(text, k); i >= 0 && (best == -1 || i < best) {
			best, bestEnd = i, i+len(k)
		}
	}
	if best == -1 {
		return ""
	}
	return strings.TrimSpace(text[bestEnd:])
}
