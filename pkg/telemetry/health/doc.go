// Package health provides the liveness, readiness and version endpoints of
// the control API.
//
// Liveness (/health) only reports that the process serves HTTP. Readiness
// (/ready) runs every registered check concurrently, each bounded by the
// checker timeout, and answers 503 when any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("registry", health.PingCheck(store))
//	checker.RegisterCheck("supervisor", health.StateCheck(sup.State, supervisor.StateRunning))
//	checker.Register(mux, "1.0.0", "abc123", "2026-01-01")
package health
