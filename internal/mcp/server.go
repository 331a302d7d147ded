// Package mcp exposes a proofreading session as Model Context Protocol
// tools, so an agent can drive the review loop.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

func NewMCPServer(sess *session.Session) *mcp.Server {
	service := NewService(sess)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "NeuroProof Focused Proofreading",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_top_edge",
		Description: "Return the next pair of regions to review, with the edge location and its boundary probability.",
	}, service.TopEdge)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "apply_decision",
		Description: "Record a review decision on an edge: merge secondary into primary, or reject to confirm the boundary.",
	}, service.ApplyDecision)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "undo_decision",
		Description: "Revert the most recent decision or manual edge edit.",
	}, service.Undo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "estimate_remaining_work",
		Description: "Simulate the rest of the session and report how many decisions are likely left. The graph is left unchanged.",
	}, service.Estimate)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_stats",
		Description: "Report the active mode, decision counters, remaining work and undo depth.",
	}, service.Stats)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "set_mode",
		Description: "Switch the ranking strategy (nodesize, synapse, orphan, prob). Discards the undo history.",
	}, service.SetMode)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "qa_violators",
		Description: "List orphan regions that carry synapses or reach the size threshold.",
	}, service.QAViolators)

	return s
}
