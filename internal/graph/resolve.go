package graph

import "github.com/yangjx/studymate/internal/session"

// NodeID names one state-transformation step of the conversation machine.
type NodeID string

const (
	NodeCheckInput      NodeID = "check_input_completeness"
	NodeRetrieve        NodeID = "retrieve"
	NodeAskDeepLearn    NodeID = "ask_deep_learn"
	NodeHandleDeepLearn NodeID = "handle_deep_learn_response"
	NodeGeneratePlan    NodeID = "generate_plan"
	NodeHandleFeedback  NodeID = "handle_feedback"
	NodeSavePlan        NodeID = "save_plan"
	NodeAdjustPlan      NodeID = "adjust_plan"
)

// Resolve maps the session status to the node that should run when the next
// user message arrives. It is total: every status, including ones added in
// later schema versions, lands on a node, with input checking as the default
// re-entry point.
func Resolve(status session.Status) NodeID {
	switch status {
	case session.StatusRetrieve:
		return NodeRetrieve
	case session.StatusRetrieved:
		return NodeAskDeepLearn
	case session.StatusAskingDeepLearn:
		return NodeHandleDeepLearn
	case session.StatusGenerateBeginnerPlan, session.StatusGenerateAdvancedPlan:
		return NodeGeneratePlan
	case session.StatusPresentingPlan:
		return NodeHandleFeedback
	case session.StatusSavePlan:
		return NodeSavePlan
	case session.StatusAdjustPlan:
		return NodeAdjustPlan
	default:
		// start, checking_input_completeness, end, empty, unknown.
		return NodeCheckInput
	}
}
