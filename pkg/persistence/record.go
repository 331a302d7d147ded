package persistence

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one journal entry. Op selects which fields are meaningful; it
// travels in the frame header, not in the payload.
type Record struct {
	Op OpCode `json:"-"`

	// OpHeader
	SessionID string     `json:"session_id,omitempty"`
	Created   *time.Time `json:"created,omitempty"`

	// OpDecide
	Primary   uint64 `json:"primary,omitempty"`
	Secondary uint64 `json:"secondary,omitempty"`
	Rejected  bool   `json:"rejected,omitempty"`

	// OpSetEdge
	Node1  uint64  `json:"node1,omitempty"`
	Node2  uint64  `json:"node2,omitempty"`
	Weight float64 `json:"weight,omitempty"`

	// OpMode
	Mode       string  `json:"mode,omitempty"`
	IgnoreSize float64 `json:"ignore_size,omitempty"`
	Depth      int     `json:"depth,omitempty"`
	Lower      float64 `json:"lower,omitempty"`
	Upper      float64 `json:"upper,omitempty"`
	Start      float64 `json:"start,omitempty"`
}

func (r Record) encode() ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(op OpCode, payload []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, fmt.Errorf("decode %s record: %w", op, err)
	}
	r.Op = op
	return r, nil
}
