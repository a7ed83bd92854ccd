package rtc

// ExecutionContextService is the administrative interface of an execution
// context, consumed by managers and by the components it drives.
type ExecutionContextService interface {
	Start() error
	Stop() error
	IsRunning() bool

	Rate() float64
	SetRate(rate float64) error
	Kind() ExecutionKind

	AddComponent(c Component) error
	RemoveComponent(c Component) error
	ActivateComponent(c Component) error
	DeactivateComponent(c Component) error
	ResetComponent(c Component) error
	ComponentState(c Component) LifeCycleState
}

// Triggerable is implemented by execution contexts whose cycles are released
// by an external trigger.
type Triggerable interface {
	ExecutionContextService
	Tick()
}
