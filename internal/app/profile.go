package app

import (
	"fmt"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
)

// MinPeriod is the shortest period that still sleeps between cycles.
// Shorter periods, and an unset rate, run cycles back to back.
const MinPeriod = time.Microsecond

// Profile describes one execution context: its rate, kind, owner,
// participants and free-form properties. It is safe for concurrent use.
type Profile struct {
	mu           sync.RWMutex
	kind         rtc.ExecutionKind
	rate         float64
	owner        rtc.Component
	participants []rtc.Component
	props        map[string]string
}

// NewProfile returns a profile of the given kind with no rate set.
func NewProfile(kind rtc.ExecutionKind) *Profile {
	return &Profile{kind: kind, props: make(map[string]string)}
}

// Kind returns the execution kind.
func (p *Profile) Kind() rtc.ExecutionKind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// SetKind sets the execution kind.
func (p *Profile) SetKind(k rtc.ExecutionKind) {
	p.mu.Lock()
	p.kind = k
	p.mu.Unlock()
}

// Rate returns the rate in Hz, or 0 when unset.
func (p *Profile) Rate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rate
}

// SetRate sets the rate in Hz. Non-positive and non-finite rates are
// rejected and leave the previous rate in effect.
func (p *Profile) SetRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return fmt.Errorf("rate %v: %w", rate, rtc.ErrBadParameter)
	}
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
	return nil
}

// Period returns the cycle period derived from the rate, or 0 when the rate
// is unset.
func (p *Profile) Period() time.Duration {
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate)
}

// SetPeriod sets the rate from a period.
func (p *Profile) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("period %v: %w", d, rtc.ErrBadParameter)
	}
	return p.SetRate(float64(time.Second) / float64(d))
}

// NoWait reports whether cycles run back to back.
func (p *Profile) NoWait() bool {
	return p.Period() < MinPeriod
}

// Owner returns the owning component, or nil.
func (p *Profile) Owner() rtc.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// SetOwner sets the owning component.
func (p *Profile) SetOwner(c rtc.Component) {
	p.mu.Lock()
	p.owner = c
	p.mu.Unlock()
}

// AddParticipant records c as a participant.
func (p *Profile) AddParticipant(c rtc.Component) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, x := range p.participants {
		if rtc.Equal(x, c) {
			return fmt.Errorf("participant %s: %w", rtc.NameOf(c), rtc.ErrBadParameter)
		}
	}
	p.participants = append(p.participants, c)
	return nil
}

// RemoveParticipant forgets c.
func (p *Profile) RemoveParticipant(c rtc.Component) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, x := range p.participants {
		if rtc.Equal(x, c) {
			p.participants = append(p.participants[:i:i], p.participants[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("participant %s: %w", rtc.NameOf(c), rtc.ErrBadParameter)
}

// Participants returns the participants in the order they were added.
func (p *Profile) Participants() []rtc.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]rtc.Component(nil), p.participants...)
}

// SetProperty sets a free-form property.
func (p *Profile) SetProperty(key, value string) {
	p.mu.Lock()
	p.props[key] = value
	p.mu.Unlock()
}

// Property returns a property value.
func (p *Profile) Property(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.props[key]
	return v, ok
}

// Properties returns a copy of all properties.
func (p *Profile) Properties() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.props)
}
