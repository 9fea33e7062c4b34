// Package adjust implements the tone and color operations a preset drives.
//
// All operations work on linear [0,1] float planes, treat zero as identity,
// and clamp their output. Application order is fixed; see Engine.
package adjust
