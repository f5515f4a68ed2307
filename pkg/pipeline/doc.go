// Package pipeline schedules the stages of the content generation pipeline.
//
// A Registry declares the stages, the stages each of them depends on and how the output fields of a dependency
// map to the input of its dependents. The registry is validated once when it is built: unknown or duplicated
// dependencies and cycles are rejected, so every schedule computed from it is complete.
//
// From a registry, the package computes:
//
//   - execution levels, groups of stages that can run concurrently because all their dependencies belong to
//     earlier levels;
//   - the upstream chain of a stage, the smallest subset of levels needed to produce it, used to re-run a single
//     stage without re-running its siblings;
//   - the readiness of a stage given the results already available, and the stages affected by a change;
//   - the input of a stage, extracted from the outputs of its dependencies one dependency at a time.
//
// Those computations are pure and safe for concurrent use. The Pipeline type consumes them: it runs every stage of
// a level concurrently through an Executor, waits for the whole level, propagates the outputs and moves on to the
// next level. Pipeline options (see the model package) are notified along the way, which is how the drawer and
// measure packages observe a run.
package pipeline
