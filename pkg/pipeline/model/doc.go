// Package model provides the data structures shared by the pipeline package and its options.
// It defines the stages of the content pipeline, their dependency configuration, the execution levels
// computed from them, and the hook interface used by pipeline options.
package model
