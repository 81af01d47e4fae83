package grace

import (
	"reflect"
	"testing"
)

func TestFoldDiscoveryState_StageAndStatus(t *testing.T) {
	history := []Record{
		agentRecord(StageTrustBuilding),
		userRecord("hi"),
		agentRecord(StageSituationDiscovery),
		{EntityID: testUserID, Metadata: Metadata{Kind: MetaStatusChanged, Status: "ready_for_visit"}},
	}

	state := FoldDiscoveryState(history)
	if state.CurrentStage != StageSituationDiscovery {
		t.Errorf("got stage %q, want %q", state.CurrentStage, StageSituationDiscovery)
	}
	if state.UserStatus != "ready_for_visit" {
		t.Errorf("got status %q, want %q", state.UserStatus, "ready_for_visit")
	}
}

func TestFoldDiscoveryState_EmptyHistory(t *testing.T) {
	state := FoldDiscoveryState(nil)
	if state.CurrentStage != StageTrustBuilding {
		t.Errorf("got stage %q, want %q", state.CurrentStage, StageTrustBuilding)
	}
}

func TestFoldDiscoveryState_NeedKeywords(t *testing.T) {
	history := []Record{
		userRecord("Mom barely eats and she's so lonely since Dad passed"),
	}

	state := FoldDiscoveryState(history)
	if !reflect.DeepEqual(state.IdentifiedNeeds, []string{"nutrition", "social"}) {
		t.Errorf("got needs %v, want [nutrition social]", state.IdentifiedNeeds)
	}
}

func TestFoldDiscoveryState_ConcernCapturesTrailingText(t *testing.T) {
	history := []Record{
		userRecord("I'm worried she might fall again"),
	}

	state := FoldDiscoveryState(history)
	if len(state.ConcernsShared) != 1 {
		t.Fatalf("got %d concerns, want 1", len(state.ConcernsShared))
	}
	if state.ConcernsShared[0] != "she might fall again" {
		t.Errorf("got concern %q", state.ConcernsShared[0])
	}
}

func TestFoldDiscoveryState_EarliestConcernKeywordWins(t *testing.T) {
	history := []Record{
		userRecord("I'm afraid, honestly, it's my biggest concern"),
	}

	state := FoldDiscoveryState(history)
	if len(state.ConcernsShared) != 1 {
		t.Fatalf("got %d concerns, want 1", len(state.ConcernsShared))
	}
	if state.ConcernsShared[0] != ", honestly, it's my biggest concern" {
		t.Errorf("got concern %q", state.ConcernsShared[0])
	}
}

func TestFoldDiscoveryState_VisitSignals(t *testing.T) {
	state := FoldDiscoveryState([]Record{userRecord("Could we come by for a tour?")})
	if !state.ReadyForVisit {
		t.Error("tour mention should set ReadyForVisit")
	}
	if state.VisitScheduled {
		t.Error("no scheduling words, VisitScheduled should stay false")
	}

	state = FoldDiscoveryState([]Record{userRecord("Wednesday works for us")})
	if !state.VisitScheduled {
		t.Error("weekday mention should set VisitScheduled")
	}
}

func TestFoldDiscoveryState_StageRecordsSkipKeywordScan(t *testing.T) {
	rec := agentRecord(StageSituationDiscovery)
	rec.Text = "Let's schedule a visit to tour the community"

	state := FoldDiscoveryState([]Record{rec})
	if state.ReadyForVisit || state.VisitScheduled {
		t.Error("stage-tagged records should not feed the keyword scan")
	}
}

func TestFoldDiscoveryState_AskedQuestions(t *testing.T) {
	history := []Record{
		{EntityID: testAgentID, AgentID: testAgentID, Metadata: Metadata{AskedQuestion: "q1"}},
		{EntityID: testAgentID, AgentID: testAgentID, Metadata: Metadata{AskedQuestion: "q2"}},
	}

	state := FoldDiscoveryState(history)
	if !reflect.DeepEqual(state.QuestionsAsked, []string{"q1", "q2"}) {
		t.Errorf("got %v, want [q1 q2]", state.QuestionsAsked)
	}
}
