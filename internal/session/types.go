package session

import "time"

// Status is the conversation program counter. Every node writes exactly one
// of these before handing control back, and the entry-point resolver maps it
// to the node that should run when the next user message arrives.
type Status string

const (
	StatusStart                Status = "start"
	StatusCheckingInput        Status = "checking_input_completeness"
	StatusRetrieve             Status = "retrieve"
	StatusRetrieved            Status = "retrieved"
	StatusAskingDeepLearn      Status = "asking_deep_learn"
	StatusGenerateBeginnerPlan Status = "generate_beginner_plan"
	StatusGenerateAdvancedPlan Status = "generate_advanced_plan"
	StatusPresentingPlan       Status = "presenting_plan"
	StatusSavePlan             Status = "save_plan"
	StatusAdjustPlan           Status = "adjust_plan"
	StatusEnd                  Status = "end"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the append-only session transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the unit of conversational memory for one planning session.
// Pointer-to-bool fields distinguish "not yet decided" from false.
type State struct {
	ID                string    `json:"session_id"`
	Subject           string    `json:"subject"`
	InputCompleteness *bool     `json:"input_completeness,omitempty"`
	HistoryPlan       string    `json:"history_plan"`
	LearnedBefore     *bool     `json:"learned_before,omitempty"`
	WantDeepLearn     *bool     `json:"want_deep_learn,omitempty"`
	LearningPlan      string    `json:"learning_plan,omitempty"`
	IsSatisfied       *bool     `json:"is_satisfied,omitempty"`
	Status            Status    `json:"status"`
	Messages          []Message `json:"messages"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without holding store locks.
func (s *State) Clone() *State {
	c := *s
	c.InputCompleteness = cloneBool(s.InputCompleteness)
	c.LearnedBefore = cloneBool(s.LearnedBefore)
	c.WantDeepLearn = cloneBool(s.WantDeepLearn)
	c.IsSatisfied = cloneBool(s.IsSatisfied)
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	return &c
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *State) AppendUser(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: content})
}

func (s *State) AppendAssistant(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}

// LastUserMessage returns the content of the most recent user message, or ""
// when the transcript holds none.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// ResetPlanning clears planning progress while keeping the transcript, so a
// session that already reached StatusEnd can start a fresh planning flow
// under the same identifier.
func (s *State) ResetPlanning(subject string) {
	s.Subject = subject
	s.InputCompleteness = nil
	s.HistoryPlan = ""
	s.LearnedBefore = nil
	s.WantDeepLearn = nil
	s.LearningPlan = ""
	s.IsSatisfied = nil
	s.Status = StatusStart
}

// True reports whether an optional bool is set and true.
func True(p *bool) bool { return p != nil && *p }

// Bool returns a pointer to v, for filling the optional fields.
func Bool(v bool) *bool { return &v }
