package server

import (
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
)

// DecisionRequest is the body of POST /v1/decisions.
type DecisionRequest struct {
	Primary   uint64 `json:"primary" validate:"required"`
	Secondary uint64 `json:"secondary" validate:"required,nefield=Primary"`
	Rejected  bool   `json:"rejected"`
}

// EdgeWeightRequest is the body of POST /v1/edges/weight.
type EdgeWeightRequest struct {
	Node1  uint64  `json:"node1" validate:"required"`
	Node2  uint64  `json:"node2" validate:"required,nefield=Node1"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

// UndoResponse is returned by POST /v1/undo.
type UndoResponse struct {
	Undone bool `json:"undone"`
	editor.Stats
}

// EstimateResponse is returned by a synchronous POST /v1/estimate.
type EstimateResponse struct {
	Remaining int `json:"remaining"`
}

// TaskResponse is returned when an estimate runs in the background.
type TaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ViolatorsResponse is returned by GET /v1/qa-violators.
type ViolatorsResponse struct {
	Threshold uint64   `json:"threshold"`
	Regions   []uint64 `json:"regions"`
}

// ExportResponse is returned by POST /v1/state/export.
type ExportResponse struct {
	SessionID string `json:"session_id"`
	GraphPath string `json:"graph_path"`
	StatePath string `json:"state_path"`
}
