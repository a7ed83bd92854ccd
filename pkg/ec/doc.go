// Package ec provides the execution contexts that drive rtc components.
//
// Two scheduling disciplines share the same participant worker:
//
//   - Periodic runs cycles on its own goroutine, sleeping between cycles so
//     that cycles start once per period. An unset rate, or a rate above one
//     million Hz, runs cycles back to back.
//   - ExtTrig runs one cycle per Tick. Ticks are counted, so three ticks
//     issued in quick succession yield exactly three cycles. When a rate is
//     set, each cycle is padded to at least one period.
//
// A cycle runs the pre-do phase of every participant, then the do phase of
// every participant, then the post-do phase, and finally applies queued
// participant additions and removals.
//
// # Usage
//
//	ctx, err := ec.NewPeriodic(ec.WithName("main"), ec.WithRate(100))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	if err := ctx.AddComponent(camera); err != nil {
//	    return err
//	}
//	if err := ctx.Start(); err != nil {
//	    return err
//	}
//	_ = ctx.ActivateComponent(camera)
//
// # Errors
//
// Administrative methods return errors wrapping the sentinels of package
// rtc; use rtc.CodeOf to obtain the result code. Component callback failures
// never surface here: they move the failing participant to ERROR_STATE.
//
// # Limitations
//
// There is no timeout on component callbacks. A callback that never returns
// stalls its context, and Stop waits for the cycle in progress.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package ec
