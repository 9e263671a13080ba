// Package builder runs the Builder phase: one external toolchain invocation
// per discovered module, fanned out over a bounded worker pool.
//
// Module builds are independent of each other, so the pool size never
// changes the outcome. The phase produces a Report with one ModuleResult per
// module; the aggregate succeeds only when every module succeeded. A
// successful Report issues a Gate, which the harness requires before it
// will run.
//
// Two failure policies exist. The default attempts every module and reports
// every failure. With FailFast, no new module is started after the first
// failure; modules that never started are reported as Skipped. Builds that
// are already running are never interrupted by either policy.
package builder
