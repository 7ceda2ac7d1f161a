package graph

import "github.com/yangjx/studymate/internal/session"

// edges is the within-turn transition table: after a node runs without
// emitting an assistant message, the status it wrote selects the next node
// to execute in the same turn. A node absent here (or a status absent from
// its row) terminates the turn.
var edges = map[NodeID]map[session.Status]NodeID{
	NodeCheckInput: {
		session.StatusRetrieve: NodeRetrieve,
	},
	NodeRetrieve: {
		session.StatusRetrieved: NodeAskDeepLearn,
	},
	NodeAskDeepLearn: {
		session.StatusGenerateBeginnerPlan: NodeGeneratePlan,
	},
	NodeHandleDeepLearn: {
		session.StatusGenerateBeginnerPlan: NodeGeneratePlan,
		session.StatusGenerateAdvancedPlan: NodeGeneratePlan,
	},
	NodeHandleFeedback: {
		session.StatusSavePlan:   NodeSavePlan,
		session.StatusAdjustPlan: NodeAdjustPlan,
	},
}

func nextNode(node NodeID, status session.Status) (NodeID, bool) {
	row, ok := edges[node]
	if !ok {
		return "", false
	}
	next, ok := row[status]
	return next, ok
}
