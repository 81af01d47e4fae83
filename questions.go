package grace

import "strings"

// lovedOnePlaceholder is substituted into question templates until the loved
// one's name is known.
const lovedOnePlaceholder = "your loved one"

// lovedOneToken marks where the loved one's name goes in a template.
const lovedOneToken = "{loved_one}"

// questionTemplates holds the fixed ordered question list per discovery
// stage. Only situation_discovery is exercised by an implemented handler;
// the later lists exist so the stages remain valid extension points.
var questionTemplates = map[Stage][]string{
	StageSituationDiscovery: {
		"What made you decide to reach out about senior living today?",
		"What's your biggest concern about {loved_one} right now?",
		"How is this situation impacting your family?",
		"Where does {loved_one} currently live?",
	},
	StageLifestyleDiscovery: {
		"What does a typical day look like for {loved_one}?",
		"What activities or hobbies bring {loved_one} joy?",
		"How would you describe {loved_one}'s social life?",
	},
	StageReadinessDiscovery: {
		"How does {loved_one} feel about the idea of a move?",
		"What has been discussed as a family so far?",
	},
	StagePrioritiesDiscovery: {
		"What matters most to you in a community?",
		"What would make you feel confident this is the right fit?",
	},
}

// Questions returns the question list for a stage with the loved one's name
// substituted in, or the "your loved one" placeholder when it is unknown.
//
// The returned strings are also the dedup keys used against the merged
// record, so the same logical question can carry two distinct keys before
// and after the name becomes known.
func Questions(stage Stage, lovedOneName string) []string {
	templates := questionTemplates[stage]
	if len(templates) == 0 {
		return nil
	}
	name := strings.TrimSpace(lovedOneName)
	if name == "" {
		name = lovedOnePlaceholder
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = strings.ReplaceAll(t, lovedOneToken, name)
	}
	return out
}

// Unanswered returns the subset of questions not present in answered,
// preserving question order.
func Unanswered(questions []string, answered []string) []string {
	var out []string
	for _, q := range questions {
		if !containsString(answered, q) {
			out = append(out, q)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
