package grace

// Stage is one step of the fixed discovery script.
type Stage string

const (
	StageTrustBuilding       Stage = "trust_building"
	StageSituationDiscovery  Stage = "situation_discovery"
	StageLifestyleDiscovery  Stage = "lifestyle_discovery"
	StageReadinessDiscovery  Stage = "readiness_discovery"
	StagePrioritiesDiscovery Stage = "priorities_discovery"
	StageNeedsMatching       Stage = "needs_matching"
	StageInfoSharing         Stage = "info_sharing"
	StageScheduleVisit       Stage = "schedule_visit"
	StageVisitTransition     Stage = "visit_transition"
)

// ValidStages lists every stage in script order, initial first.
var ValidStages = []Stage{
	StageTrustBuilding,
	StageSituationDiscovery,
	StageLifestyleDiscovery,
	StageReadinessDiscovery,
	StagePrioritiesDiscovery,
	StageNeedsMatching,
	StageInfoSharing,
	StageScheduleVisit,
	StageVisitTransition,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, v := range ValidStages {
		if s == v {
			return true
		}
	}
	return false
}

// ResolveStage decides the current conversation stage from room history and
// the merged record. Resolution never fails:
//
//  1. Complete contact info forces situation_discovery regardless of any
//     stored stage tag.
//  2. Otherwise the stage tag of the most recent agent-authored record is
//     authoritative.
//  3. Otherwise the initial trust_building stage.
//
// history must be in chronological order (oldest first), as returned by
// Store.QueryRecords.
func ResolveStage(history []Record, rec ConversationRecord) Stage {
	if rec.Contact.Complete() {
		return StageSituationDiscovery
	}
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if !r.AgentAuthored() {
			continue
		}
		if r.Metadata.Stage.Valid() {
			return r.Metadata.Stage
		}
		// Keep scanning: an agent record without a stage tag (e.g. a
		// snapshot write) does not reset the conversation.
	}
	return StageTrustBuilding
}
