package grace

import (
	"context"
	"strings"
)

// handleTrustBuilding gathers the user's name, phone number, and loved one's
// name. It re-extracts from the user's accumulated trust-building messages
// every turn, so details given across several messages add up. Returns the
// response plus the stage to tag it with: situation_discovery once contact
// info is complete, trust_building otherwise.
func (e *Engine) handleTrustBuilding(ctx context.Context, msg IncomingMessage, history []Record, record ConversationRecord) (string, Stage) {
	if strings.TrimSpace(msg.Text) == "" || msg.EntityID == msg.AgentID {
		return greetingResponse, StageTrustBuilding
	}

	responses := userAnswersFromStage(history, StageTrustBuilding, msg)
	if len(responses) == 0 {
		// Stage boundaries not found, fall back to every message this user
		// has sent in the room.
		e.logger.Info("stage scan empty, falling back to all user messages")
		for _, r := range history {
			if r.EntityID == msg.EntityID && !r.AgentAuthored() &&
				r.Metadata.IsZero() && strings.TrimSpace(r.Text) != "" {
				responses = append(responses, r.Text)
			}
		}
	}
	combined := strings.Join(responses, " ")
	if combined == "" {
		combined = msg.Text
	}

	existing := record.Contact
	extracted := e.extractor.ExtractContact(ctx, combined, existing)

	final := existing
	if extracted.FoundName {
		final.Name = extracted.Name
	}
	if extracted.FoundPhone {
		final.Phone = extracted.Phone
	}
	if extracted.FoundLovedOneName {
		final.LovedOneName = extracted.LovedOneName
	}

	e.logger.Info("contact info extraction",
		"name", final.Name != "", "phone", final.Phone != "", "loved_one", final.LovedOneName != "")

	if final.Complete() {
		final.CollectedAt = NowISO()
		record.overlayContact(final)
		e.saveSnapshot(ctx, msg, record)
		return "Thank you, " + final.Name + "! " + primaryFallbackResponse, StageSituationDiscovery
	}

	if !final.Empty() && final != existing {
		record.overlayContact(final)
		e.saveSnapshot(ctx, msg, record)
	}

	var missing []string
	if final.Name == "" {
		missing = append(missing, "your name")
	}
	if final.Phone == "" {
		missing = append(missing, "your phone number")
	}
	if final.LovedOneName == "" {
		missing = append(missing, "your loved one's name")
	}

	switch len(missing) {
	case 3:
		return askAllContactResponse, StageTrustBuilding
	case 2:
		return "Thanks for sharing! Could I also get " + missing[0] + " and " + missing[1] + "?", StageTrustBuilding
	case 1:
		thanks := "Thanks!"
		if final.Name != "" {
			thanks = "Thanks, " + final.Name + "!"
		}
		return thanks + " Could I also get " + missing[0] + "?", StageTrustBuilding
	default:
		return askAllContactResponse, StageTrustBuilding
	}
}

// handleSituationQuestions works through the four situation questions. A
// single user response may answer several questions at once; newly answered
// questions are tracked locally for the rest of the turn so the snapshot
// write's latency cannot cause a question to be asked twice.
func (e *Engine) handleSituationQuestions(ctx context.Context, msg IncomingMessage, record ConversationRecord) (string, Stage) {
	hasUserText := strings.TrimSpace(msg.Text) != "" && msg.EntityID != msg.AgentID
	if hasUserText {
		e.saveUserResponse(ctx, msg, "situation")
	}

	lovedOne := record.Contact.LovedOneName
	questions := Questions(StageSituationDiscovery, lovedOne)
	entries := record.Answers(StageSituationDiscovery)

	answered := make([]string, 0, len(entries))
	for _, qa := range entries {
		answered = append(answered, qa.Question)
	}
	local := append([]string(nil), answered...)

	if hasUserText {
		analysis, err := e.extractor.AnalyzeAnswers(ctx, questions, msg.Text)
		if err != nil {
			e.logger.Error("failed to analyze user response", "error", err)
			// Assume the response answers the first open question.
			if open := Unanswered(questions, local); len(open) > 0 {
				entry := QAEntry{Question: open[0], Answer: msg.Text, Timestamp: NowISO()}
				record.appendAnswers(StageSituationDiscovery, []QAEntry{entry})
				e.saveSnapshot(ctx, msg, record)
				local = append(local, open[0])
			}
		} else {
			var fresh []QAEntry
			for i, q := range questions {
				if i >= len(analysis.Answered) || !analysis.Answered[i] {
					continue
				}
				if containsString(local, q) {
					continue
				}
				fresh = append(fresh, QAEntry{Question: q, Answer: analysis.Answers[i], Timestamp: NowISO()})
				local = append(local, q)
			}
			if len(fresh) > 0 {
				record.appendAnswers(StageSituationDiscovery, fresh)
				e.saveSnapshot(ctx, msg, record)
				e.logger.Info("saved new situation answers", "count", len(fresh))
			}
		}
	}

	remaining := Unanswered(questions, local)
	e.logger.Info("situation progress",
		"answered", len(questions)-len(remaining), "total", len(questions))

	if len(remaining) == 0 {
		return transitionResponse, StageLifestyleDiscovery
	}

	next := remaining[0]
	userName := firstName(record.Contact.Name)
	reply, err := e.extractor.ComposeReply(ctx, ComposeRequest{
		UserName:        userName,
		LovedOneName:    orPlaceholder(lovedOne),
		LastResponse:    msg.Text,
		NextQuestion:    next,
		AnsweredCount:   len(questions) - len(remaining),
		TotalQuestions:  len(questions),
		PreviousAnswers: entries,
		Character:       e.character,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			e.logger.Error("failed to compose reply, using raw question", "error", err)
		}
		if userName != "" {
			return userName + ", " + next, StageSituationDiscovery
		}
		return next, StageSituationDiscovery
	}
	return reply, StageSituationDiscovery
}

// handleGeneralInquiry covers every stage without a dedicated handler yet.
func (e *Engine) handleGeneralInquiry(_ context.Context, _ IncomingMessage) string {
	return generalInquiryResponse
}

// userAnswersFromStage collects the user's messages sent while the
// conversation was in stage: from the first agent record tagged with that
// stage up to the next agent record tagged with a different one. The current
// message counts even when boundaries are missing entirely.
func userAnswersFromStage(history []Record, stage Stage, msg IncomingMessage) []string {
	start, end := -1, -1
	for i, r := range history {
		if !r.AgentAuthored() {
			continue
		}
		tag := r.Metadata.Stage
		if start == -1 && tag == stage {
			start = i
			continue
		}
		if start != -1 && tag.Valid() && tag != stage {
			end = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	if end == -1 {
		end = len(history)
	}

	var answers []string
	for i := start + 1; i < end; i++ {
		r := history[i]
		if r.EntityID == msg.EntityID && !r.AgentAuthored() &&
			r.Metadata.IsZero() && strings.TrimSpace(r.Text) != "" {
			answers = append(answers, r.Text)
		}
	}
	return answers
}

// firstName returns the first whitespace-separated token of a full name.
func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func orPlaceholder(lovedOne string) string {
	if strings.TrimSpace(lovedOne) == "" {
		return lovedOnePlaceholder
	}
	return lovedOne
}
