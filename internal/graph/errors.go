package graph

import (
	"errors"

	"github.com/yangjx/studymate/internal/llm"
)

var (
	// ErrInput marks a malformed turn request: missing session id or text.
	ErrInput = errors.New("invalid turn input")
	// ErrPlanParse marks model output that could not be parsed into a
	// structured plan at save time.
	ErrPlanParse = errors.New("plan output unparsable")
	// ErrPersistence marks a failed plan save or index add.
	ErrPersistence = errors.New("plan persistence failed")
	// ErrRetrieval marks a failed history search.
	ErrRetrieval = errors.New("history retrieval failed")
)

// isTransient reports whether the error is safe to retry on the same node
// without advancing session status.
func isTransient(err error) bool {
	return errors.Is(err, llm.ErrTimeout) ||
		errors.Is(err, llm.ErrProvider) ||
		errors.Is(err, ErrRetrieval)
}
