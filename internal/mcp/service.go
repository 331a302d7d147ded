package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/edgerank"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

type Service struct {
	session *session.Session
}

func NewService(sess *session.Session) *Service {
	return &Service{session: sess}
}

// --- Tool Handlers ---

func (s *Service) TopEdge(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, TopEdgeResult, error) {
	c, err := s.session.TopEdge()
	if err != nil {
		return nil, TopEdgeResult{}, err
	}
	return nil, TopEdgeResult{
		Primary:   uint64(c.Primary),
		Secondary: uint64(c.Secondary),
		Location:  c.Location[:],
		Weight:    c.Weight,
	}, nil
}

func (s *Service) ApplyDecision(ctx context.Context, req *mcp.CallToolRequest, args DecisionArgs) (*mcp.CallToolResult, editor.Stats, error) {
	pair := edgerank.NodePair{Primary: rag.NodeID(args.Primary), Secondary: rag.NodeID(args.Secondary)}
	stats, err := s.session.Decide(ctx, pair, args.Rejected)
	if err != nil {
		return nil, editor.Stats{}, err
	}
	return nil, stats, nil
}

func (s *Service) Undo(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, UndoResult, error) {
	undone, stats, err := s.session.Undo(ctx)
	if err != nil {
		return nil, UndoResult{}, err
	}
	return nil, UndoResult{Undone: undone, Stats: stats}, nil
}

func (s *Service) Estimate(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, EstimateResult, error) {
	n, err := s.session.Estimate(ctx)
	if err != nil {
		return nil, EstimateResult{}, err
	}
	return nil, EstimateResult{Remaining: n}, nil
}

func (s *Service) Stats(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, editor.Stats, error) {
	return nil, s.session.Stats(), nil
}

func (s *Service) SetMode(ctx context.Context, req *mcp.CallToolRequest, args SetModeArgs) (*mcp.CallToolResult, editor.Stats, error) {
	stats, err := s.session.SetMode(ctx, session.ModeRequest{
		Mode:       args.Mode,
		IgnoreSize: args.IgnoreSize,
		Depth:      args.Depth,
		Range:      args.Range,
	})
	if err != nil {
		return nil, editor.Stats{}, err
	}
	return nil, stats, nil
}

func (s *Service) QAViolators(ctx context.Context, req *mcp.CallToolRequest, args ViolatorsArgs) (*mcp.CallToolResult, ViolatorsResult, error) {
	threshold := args.Threshold
	if threshold == 0 {
		threshold = s.session.Config().QAThreshold
	}
	ids := s.session.QAViolators(threshold)

	regions := make([]uint64, len(ids))
	for i, id := range ids {
		regions[i] = uint64(id)
	}
	return nil, ViolatorsResult{Threshold: threshold, Regions: regions}, nil
}
