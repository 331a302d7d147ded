package mcp

import "github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"

// --- Tool Arguments ---

type EmptyArgs struct{}

type DecisionArgs struct {
	Primary   uint64 `json:"primary" jsonschema:"Region that survives a merge"`
	Secondary uint64 `json:"secondary" jsonschema:"Region folded into primary on a merge"`
	Rejected  bool   `json:"rejected,omitempty" jsonschema:"True keeps the two regions apart; false merges them"`
}

type SetModeArgs struct {
	Mode       string        `json:"mode" jsonschema:"One of nodesize, synapse, orphan, prob"`
	IgnoreSize *float64      `json:"ignore_size,omitempty" jsonschema:"Regions at or below this size are skipped. Defaults per mode"`
	Depth      int           `json:"depth,omitempty" jsonschema:"Path-length limit of the nodesize search (0 = unbounded)"`
	Range      *editor.Range `json:"range,omitempty" jsonschema:"Weight window of the prob mode"`
}

type ViolatorsArgs struct {
	Threshold uint64 `json:"threshold,omitempty" jsonschema:"Size at which an orphan is reported. Defaults to the configured value"`
}

// --- Tool Results ---

type TopEdgeResult struct {
	Primary   uint64   `json:"primary"`
	Secondary uint64   `json:"secondary"`
	Location  []uint32 `json:"location"`
	Weight    float64  `json:"weight"`
}

type UndoResult struct {
	Undone bool         `json:"undone"`
	Stats  editor.Stats `json:"stats"`
}

type EstimateResult struct {
	Remaining int `json:"remaining"`
}

type ViolatorsResult struct {
	Threshold uint64   `json:"threshold"`
	Regions   []uint64 `json:"regions"`
}
