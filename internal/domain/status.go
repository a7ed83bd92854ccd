package domain

import (
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
)

// ParticipantStatus is the state of one participant at snapshot time.
type ParticipantStatus struct {
	Name         string                     `json:"name"`
	ContextID    rtc.ExecutionContextHandle `json:"context_id"`
	State        rtc.LifeCycleState         `json:"state"`
	Capabilities string                     `json:"capabilities"`
}

// ContextStatus is a point-in-time snapshot of one execution context.
type ContextStatus struct {
	Name         string              `json:"name"`
	Kind         rtc.ExecutionKind   `json:"kind"`
	Rate         float64             `json:"rate"`
	Running      bool                `json:"running"`
	Owner        string              `json:"owner,omitempty"`
	Cycles       uint64              `json:"cycles"`
	Participants []ParticipantStatus `json:"participants"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// CountIn returns how many participants are in state s.
func (s ContextStatus) CountIn(st rtc.LifeCycleState) int {
	n := 0
	for _, p := range s.Participants {
		if p.State == st {
			n++
		}
	}
	return n
}
