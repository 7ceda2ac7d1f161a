package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yangjx/studymate/internal/llm"
	"github.com/yangjx/studymate/internal/observability"
	"github.com/yangjx/studymate/internal/plan"
	"github.com/yangjx/studymate/internal/planstore"
	"github.com/yangjx/studymate/internal/reliability"
	"github.com/yangjx/studymate/internal/retrieval"
	"github.com/yangjx/studymate/internal/session"
)

// Level selects the plan generation template.
type Level string

const (
	LevelBeginner Level = "beginner"
	LevelAdvanced Level = "advanced"
)

// Config tunes the engine's collaborator calls.
type Config struct {
	RetrievalK         int
	RetrievalThreshold float32
	IndexAddAttempts   int
	IndexAddBackoff    time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetrievalK <= 0 {
		c.RetrievalK = 3
	}
	if c.RetrievalThreshold <= 0 {
		c.RetrievalThreshold = 0.6
	}
	if c.IndexAddAttempts <= 0 {
		c.IndexAddAttempts = 3
	}
	if c.IndexAddBackoff <= 0 {
		c.IndexAddBackoff = 200 * time.Millisecond
	}
	return c
}

// Engine runs the conversation state machine. Nodes mutate the borrowed
// session state and write the status that selects the next step; the
// executor in executor.go drives them.
type Engine struct {
	sessions  *session.Manager
	completer llm.Completer
	index     retrieval.Index
	plans     planstore.Store
	metrics   *observability.Metrics
	cfg       Config
}

func NewEngine(sessions *session.Manager, completer llm.Completer, index retrieval.Index, plans planstore.Store, metrics *observability.Metrics, cfg Config) *Engine {
	return &Engine{
		sessions:  sessions,
		completer: completer,
		index:     index,
		plans:     plans,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
	}
}

// runNode dispatches one node. Nodes signal turn termination indirectly, by
// appending an assistant message or by reaching the terminal status.
func (e *Engine) runNode(ctx context.Context, node NodeID, s *session.State) error {
	if e.metrics != nil {
		e.metrics.NodeExecutions.WithLabelValues(string(node)).Inc()
	}
	switch node {
	case NodeCheckInput:
		return e.checkInputCompleteness(ctx, s)
	case NodeRetrieve:
		return e.retrieve(ctx, s)
	case NodeAskDeepLearn:
		return e.askDeepLearn(s)
	case NodeHandleDeepLearn:
		return e.handleDeepLearnResponse(s)
	case NodeGeneratePlan:
		return e.generatePlan(ctx, s)
	case NodeHandleFeedback:
		return e.handleFeedback(s)
	case NodeSavePlan:
		return e.savePlan(ctx, s)
	case NodeAdjustPlan:
		return e.adjustPlan(ctx, s)
	}
	return fmt.Errorf("unknown node %q", node)
}

// checkInputCompleteness classifies the latest user message for presence of
// a goal and a skill level. Incomplete input loops the conversation here
// with a clarification prompt.
func (e *Engine) checkInputCompleteness(ctx context.Context, s *session.State) error {
	if latest := s.LastUserMessage(); latest != "" {
		s.Subject = latest
	}

	start := time.Now()
	system, user := llm.ClassifyInputPrompts(s.Subject)
	result, err := e.completer.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("classify_input", time.Since(start))
	}

	if !strings.HasPrefix(strings.TrimSpace(result), "是") {
		s.InputCompleteness = session.Bool(false)
		s.Status = session.StatusCheckingInput
		s.AppendAssistant(msgAskMoreInfo)
		return nil
	}
	s.InputCompleteness = session.Bool(true)
	s.Status = session.StatusRetrieve
	return nil
}

// retrieve searches the plan index for prior learning on the subject and
// keeps only passages above the similarity threshold.
func (e *Engine) retrieve(ctx context.Context, s *session.State) error {
	start := time.Now()
	hits, err := e.index.Search(ctx, s.Subject, e.cfg.RetrievalK)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("retrieve_history", time.Since(start))
	}

	kept := retrieval.FilterByScore(hits, e.cfg.RetrievalThreshold)
	parts := make([]string, 0, len(kept))
	for _, p := range kept {
		parts = append(parts, p.Content)
	}
	s.HistoryPlan = strings.Join(parts, "\n")
	s.LearnedBefore = session.Bool(s.HistoryPlan != "")
	s.Status = session.StatusRetrieved
	return nil
}

// askDeepLearn surfaces prior learning and asks whether to build on it, or
// skips straight to beginner generation when there is nothing to build on.
func (e *Engine) askDeepLearn(s *session.State) error {
	if session.True(s.LearnedBefore) {
		s.Status = session.StatusAskingDeepLearn
		s.AppendAssistant(msgAskDeepLearn(s.HistoryPlan))
		return nil
	}
	s.Status = session.StatusGenerateBeginnerPlan
	return nil
}

func (e *Engine) handleDeepLearnResponse(s *session.State) error {
	if affirmative(s.LastUserMessage(), "是", "想", "yes") {
		s.WantDeepLearn = session.Bool(true)
		s.Status = session.StatusGenerateAdvancedPlan
		return nil
	}
	s.WantDeepLearn = session.Bool(false)
	s.Status = session.StatusGenerateBeginnerPlan
	return nil
}

// generatePlan calls the completion service with the level-specific template
// and presents the result together with the satisfaction question.
func (e *Engine) generatePlan(ctx context.Context, s *session.State) error {
	level := e.planLevel(s)
	planText, err := e.completePlan(ctx, s.Subject, s.HistoryPlan, level)
	if err != nil {
		return err
	}

	s.LearningPlan = planText
	s.Status = session.StatusPresentingPlan
	s.AppendAssistant(msgPresentPlan(level, planText))
	return nil
}

// planLevel picks advanced when the user asked for it, or when prior
// learning exists and the deep-learn question was never answered.
func (e *Engine) planLevel(s *session.State) Level {
	if session.True(s.WantDeepLearn) {
		return LevelAdvanced
	}
	if session.True(s.LearnedBefore) && s.WantDeepLearn == nil {
		return LevelAdvanced
	}
	return LevelBeginner
}

func (e *Engine) completePlan(ctx context.Context, subject, historyPlan string, level Level) (string, error) {
	var system, user string
	if level == LevelAdvanced {
		system, user = llm.AdvancedPlanPrompts(subject, historyPlan)
	} else {
		system, user = llm.BeginnerPlanPrompts(subject)
	}

	start := time.Now()
	planText, err := e.completer.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("generate_plan", time.Since(start))
	}
	return planText, nil
}

func (e *Engine) handleFeedback(s *session.State) error {
	if affirmative(s.LastUserMessage(), "是", "满意", "yes") {
		s.IsSatisfied = session.Bool(true)
		s.Status = session.StatusSavePlan
		return nil
	}
	s.IsSatisfied = session.Bool(false)
	s.Status = session.StatusAdjustPlan
	return nil
}

// savePlan parses the presented plan, persists it with its day-note stubs,
// and indexes the rendered text so future sessions can find it. The index
// add is retried before the session is allowed to close, since learned
// detection depends on it.
func (e *Engine) savePlan(ctx context.Context, s *session.State) error {
	rec, err := plan.ParseMarkdown(s.LearningPlan)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlanParse, err)
	}

	start := time.Now()
	ref, err := e.plans.SavePlan(ctx, s.ID, rec)
	if err != nil {
		return fmt.Errorf("%w: save: %v", ErrPersistence, err)
	}

	err = reliability.Retry(ctx, e.cfg.IndexAddAttempts, e.cfg.IndexAddBackoff, 2*time.Second, func(ctx context.Context) error {
		return e.index.Add(ctx, ref.ID, plan.RenderMarkdown(rec))
	})
	if err != nil {
		return fmt.Errorf("%w: index add: %v", ErrPersistence, err)
	}
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("save_plan", time.Since(start))
	}

	log.Info().Str("session", s.ID).Str("plan", ref.ID).Int("days", rec.TotalDays).Msg("plan saved")
	s.Status = session.StatusEnd
	s.AppendAssistant(msgPlanSaved)
	return nil
}

// adjustPlan regenerates the plan with the subject augmented by the latest
// feedback, keeping retrieval context and level fixed.
func (e *Engine) adjustPlan(ctx context.Context, s *session.State) error {
	level := LevelBeginner
	if session.True(s.WantDeepLearn) {
		level = LevelAdvanced
	}

	augmented := fmt.Sprintf("%s，根据反馈调整: %s", s.Subject, s.LastUserMessage())
	planText, err := e.completePlan(ctx, augmented, s.HistoryPlan, level)
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.ObserveTurnIndicator("plan_adjust_loop")
	}

	s.LearningPlan = planText
	s.Status = session.StatusPresentingPlan
	s.AppendAssistant(msgPresentAdjustedPlan(planText))
	return nil
}

// negations is checked before the affirmative tokens so that replies like
// "不满意" never read as satisfaction.
var negations = []string{"不满意", "不是", "不想", "不要", "不希望", "不好", "no"}

func affirmative(response string, tokens ...string) bool {
	response = strings.ToLower(response)
	for _, n := range negations {
		if strings.Contains(response, n) {
			return false
		}
	}
	for _, tok := range tokens {
		if strings.Contains(response, tok) {
			return true
		}
	}
	return false
}
