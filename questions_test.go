package grace

import (
	"reflect"
	"testing"
)

func TestQuestions_PlaceholderWhenNameUnknown(t *testing.T) {
	got := Questions(StageSituationDiscovery, "")
	if len(got) != 4 {
		t.Fatalf("got %d questions, want 4", len(got))
	}
	if got[0] != "What made you decide to reach out about senior living today?" {
		t.Errorf("unexpected first question: %q", got[0])
	}
	if got[1] != "What's your biggest concern about your loved one right now?" {
		t.Errorf("placeholder not substituted: %q", got[1])
	}
	if got[3] != "Where does your loved one currently live?" {
		t.Errorf("placeholder not substituted: %q", got[3])
	}
}

func TestQuestions_SubstitutesLovedOneName(t *testing.T) {
	got := Questions(StageSituationDiscovery, "Mary")
	if got[1] != "What's your biggest concern about Mary right now?" {
		t.Errorf("name not substituted: %q", got[1])
	}
	if got[3] != "Where does Mary currently live?" {
		t.Errorf("name not substituted: %q", got[3])
	}
}

func TestQuestions_UnknownStage(t *testing.T) {
	if got := Questions(StageTrustBuilding, "Mary"); got != nil {
		t.Errorf("stages without a question list should return nil, got %v", got)
	}
}

func TestUnanswered(t *testing.T) {
	questions := []string{"q1", "q2", "q3", "q4"}

	got := Unanswered(questions, []string{"q2", "q4"})
	if !reflect.DeepEqual(got, []string{"q1", "q3"}) {
		t.Errorf("got %v, want [q1 q3]", got)
	}

	if got := Unanswered(questions, questions); got != nil {
		t.Errorf("all answered should return nil, got %v", got)
	}

	if got := Unanswered(questions, nil); !reflect.DeepEqual(got, questions) {
		t.Errorf("none answered should return all, got %v", got)
	}
}
