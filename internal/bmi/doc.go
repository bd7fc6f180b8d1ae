// Package bmi defines the Basic Model Interface: the contract a simulation
// model exposes so an external driver can initialize it, step it through
// time, read and write its variables, and tear it down uniformly.
//
// The contract is a single capability interface:
//
//   - [Model]: lifecycle, time, variable and grid accessors
//   - [GridKind]: the grid variant a grid id refers to
//   - [Kind]: the error taxonomy every accessor reports through
//
// # Value access
//
// Two accessors read a variable and they are deliberately distinct.
// GetValue copies into a caller-owned buffer, so later model updates never
// reach the buffer. GetValuePtr returns the model's live storage; the slice
// keeps its identity across updates and observes every mutation.
//
// # Example
//
//	var m bmi.Model = heat.New(heat.WithSeed(1))
//	if err := m.Initialize(""); err != nil {
//		return err
//	}
//	defer m.Finalize()
//	_ = m.UpdateUntil(10)
//
// # Thread Safety
//
// Models are NOT thread-safe. Callers holding a GetValuePtr slice must not
// write to it while Update is running. Separate model instances share no
// state and may run in parallel.
package bmi
