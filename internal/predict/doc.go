// Package predict owns the pointer position prediction engine.
//
// Responsibilities: bounded sample history, closed-form extrapolators
// (linear, quadratic, weighted average), a constant-acceleration Kalman
// filter, confidence and uncertainty estimation, adaptive horizon
// selection, and per-algorithm accuracy scoring that routes each
// prediction to the best-performing model.
// Key types: Engine, EngineConfig, Prediction, Algorithm.
//
// An Engine tracks exactly one pointer stream and is not safe for
// concurrent use. Hosts that share an engine between goroutines must
// wrap it in a mutex (see internal/api.Session).
//
// No I/O is performed in this package; every call is bounded by the
// history capacity and returns without blocking.
package predict
