package grace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ContactExtraction is the result of scanning user text for contact details.
// Found flags gate the values: a value with its flag false is discarded.
type ContactExtraction struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	LovedOneName      string `json:"loved_one_name"`
	FoundName         bool   `json:"foundName"`
	FoundPhone        bool   `json:"foundPhone"`
	FoundLovedOneName bool   `json:"foundLovedOneName"`
}

// AnswerAnalysis reports which situation questions a user response answered.
// Index i corresponds to the i'th question passed to AnalyzeAnswers.
type AnswerAnalysis struct {
	Answered []bool
	Answers  []string
}

// Extractor is the LLM capability surface the stage handlers depend on.
//
// ExtractContact never returns an error: extraction failures degrade to
// all-false found flags so the conversation keeps moving. AnalyzeAnswers and
// ComposeReply do return errors because their callers have cheaper fallbacks
// of their own.
type Extractor interface {
	ExtractContact(ctx context.Context, combinedText string, existing ContactInfo) ContactExtraction
	AnalyzeAnswers(ctx context.Context, questions []string, response string) (AnswerAnalysis, error)
	ComposeReply(ctx context.Context, req ComposeRequest) (string, error)
}

// ComposeRequest carries everything the reply composer needs for one turn.
type ComposeRequest struct {
	UserName        string
	LovedOneName    string
	LastResponse    string
	NextQuestion    string
	AnsweredCount   int
	TotalQuestions  int
	PreviousAnswers []QAEntry
	Character       Character
}

// LLMExtractor implements Extractor on top of any chat Provider.
type LLMExtractor struct {
	provider Provider
	logger   *slog.Logger
}

// NewExtractor builds an LLMExtractor backed by p.
func NewExtractor(p Provider, opts ...ExtractorOption) *LLMExtractor {
	e := &LLMExtractor{provider: p, logger: nopLogger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractorOption configures an LLMExtractor.
type ExtractorOption func(*LLMExtractor)

// ExtractorLogger sets the logger used for extraction failures.
func ExtractorLogger(l *slog.Logger) ExtractorOption {
	return func(e *LLMExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

var _ Extractor = (*LLMExtractor)(nil)

func (e *LLMExtractor) ExtractContact(ctx context.Context, combinedText string, existing ContactInfo) ContactExtraction {
	prompt := contactPrompt(combinedText, existing)
	resp, err := e.provider.Chat(ctx, ChatRequest{Messages: []ChatMessage{UserMessage(prompt)}})
	if err != nil {
		e.logger.Error("contact extraction failed", "provider", e.provider.Name(), "error", err)
		return ContactExtraction{}
	}

	var parsed ContactExtraction
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); err != nil {
		e.logger.Error("contact extraction returned invalid JSON", "error", err)
		return ContactExtraction{}
	}

	// Found flags gate the values both ways: a flag without a value is as
	// useless as a value without its flag.
	if !parsed.FoundName || cleanField(parsed.Name) == "" {
		parsed.Name, parsed.FoundName = "", false
	} else {
		parsed.Name = cleanField(parsed.Name)
	}
	if !parsed.FoundPhone || cleanField(parsed.Phone) == "" {
		parsed.Phone, parsed.FoundPhone = "", false
	} else {
		parsed.Phone = cleanField(parsed.Phone)
	}
	if !parsed.FoundLovedOneName || cleanField(parsed.LovedOneName) == "" {
		parsed.LovedOneName, parsed.FoundLovedOneName = "", false
	} else {
		parsed.LovedOneName = cleanField(parsed.LovedOneName)
	}
	return parsed
}

func (e *LLMExtractor) AnalyzeAnswers(ctx context.Context, questions []string, response string) (AnswerAnalysis, error) {
	if len(questions) == 0 {
		return AnswerAnalysis{}, nil
	}
	prompt := analysisPrompt(questions, response)
	resp, err := e.provider.Chat(ctx, ChatRequest{Messages: []ChatMessage{UserMessage(prompt)}})
	if err != nil {
		return AnswerAnalysis{}, fmt.Errorf("analyze answers: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &raw); err != nil {
		return AnswerAnalysis{}, fmt.Errorf("analyze answers: invalid JSON: %w", err)
	}

	out := AnswerAnalysis{
		Answered: make([]bool, len(questions)),
		Answers:  make([]string, len(questions)),
	}
	for i := range questions {
		var answered bool
		if v, ok := raw[fmt.Sprintf("question%d_answered", i+1)]; ok {
			_ = json.Unmarshal(v, &answered)
		}
		var answer string
		if v, ok := raw[fmt.Sprintf("question%d_answer", i+1)]; ok {
			_ = json.Unmarshal(v, &answer)
		}
		// An answered flag only counts with a non-null answer attached.
		if answered && strings.TrimSpace(answer) != "" {
			out.Answered[i] = true
			out.Answers[i] = strings.TrimSpace(answer)
		}
	}
	return out, nil
}

func (e *LLMExtractor) ComposeReply(ctx context.Context, req ComposeRequest) (string, error) {
	prompt := composePrompt(req)
	messages := []ChatMessage{UserMessage(prompt)}
	if req.Character.System != "" {
		messages = []ChatMessage{SystemMessage(req.Character.System), UserMessage(prompt)}
	}
	resp, err := e.provider.Chat(ctx, ChatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("compose reply: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("compose reply: empty completion")
	}
	return text, nil
}

func contactPrompt(combinedText string, existing ContactInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Please extract the user's information from these responses: %q

Look for:
- User's full name (first and last name)
- Phone number (any format: xxx-xxx-xxxx, (xxx) xxx-xxxx, xxx.xxx.xxxx, xxxxxxxxxx)
- Name of their loved one/family member (the person they're seeking senior living for - could be "my mom", "my father", "John", "Mary", etc.)
`, combinedText)

	if !existing.Empty() {
		fmt.Fprintf(&sb, "\nNote: We may already have some info - Name: %s, Phone: %s, Loved One: %s\n",
			orNone(existing.Name), orNone(existing.Phone), orNone(existing.LovedOneName))
	}

	sb.WriteString(`
Return your response in this exact JSON format:
{
    "name": "extracted user's full name or null if not found",
    "phone": "extracted phone number in clean format (xxx-xxx-xxxx) or null if not found",
    "loved_one_name": "extracted loved one's name or null if not found",
    "foundName": true/false,
    "foundPhone": true/false,
    "foundLovedOneName": true/false
}

Make sure to return ONLY valid JSON, no additional text.`)
	return sb.String()
}

func analysisPrompt(questions []string, response string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this user response to see which of these %d questions they answered:\n\n", len(questions))
	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. %q\n", i+1, q)
	}
	fmt.Fprintf(&sb, "\nUser response: %q\n\n", response)
	sb.WriteString("Look for clear answers. A user might answer multiple questions in one response. Be generous in detecting answers - if they mention why they're calling, that answers question 1. If they mention worries/fears about their loved one, that answers question 2. If they mention family stress/impact, that answers question 3. If they mention living arrangements/current residence, that answers question 4.\n")
	sb.WriteString("\nReturn this JSON format:\n{\n")
	for i := range questions {
		fmt.Fprintf(&sb, "    \"question%d_answered\": true/false,\n", i+1)
		fmt.Fprintf(&sb, "    \"question%d_answer\": \"their answer or null\"", i+1)
		if i < len(questions)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\nReturn ONLY valid JSON, no additional text.")
	return sb.String()
}

func composePrompt(req ComposeRequest) string {
	var sb strings.Builder
	if req.UserName != "" {
		fmt.Fprintf(&sb, "The user (%s) is sharing their senior living situation.\n\n", req.UserName)
	} else {
		sb.WriteString("The user is sharing their senior living situation.\n\n")
	}
	fmt.Fprintf(&sb, "Progress: %d/%d questions answered so far.\n", req.AnsweredCount, req.TotalQuestions)
	if len(req.PreviousAnswers) > 0 {
		pairs := make([]string, len(req.PreviousAnswers))
		for i, qa := range req.PreviousAnswers {
			pairs[i] = qa.Question + ": " + qa.Answer
		}
		fmt.Fprintf(&sb, "Previous answers: %s\n", strings.Join(pairs, " | "))
	}
	fmt.Fprintf(&sb, "\nUser's last response: %q\n\n", req.LastResponse)
	fmt.Fprintf(&sb, "I need to ask: %q\n\n", req.NextQuestion)
	fmt.Fprintf(&sb, `Write a short, warm, and deeply emotional conversational response that:
- Uses both the user's name %q and their loved one's name %q naturally within the response, making it feel personal and caring
- Begins with a natural, human opening that avoids generic phrases like "It sounds like"
- Briefly acknowledges what they just shared with vivid empathy
- Smoothly transitions to asking: %q in a way that feels soulful, or carries gentle humor if it fits
- Feels like a loving friend, wise counselor, or thoughtful guide, always authentic, never robotic or scripted
- Under 50~70 words

Return ONLY the response text, no extra commentary or formatting.`, req.UserName, req.LovedOneName, req.NextQuestion)
	return sb.String()
}

// extractJSON pulls the JSON payload out of a model completion: strips a
// surrounding markdown code fence, then slices to the outermost object or
// array so prose around the JSON does not break parsing.
func extractJSON(s string) string {
	s = stripCodeFence(s)
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return s
	}
	return s[start : end+1]
}

// stripCodeFence removes a surrounding markdown code fence from a model
// completion, tolerating a language tag after the opening backticks.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// cleanField normalizes and trims an extracted value, mapping the literal
// "null" the model sometimes emits to empty.
func cleanField(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
