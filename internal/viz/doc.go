// Package viz renders a running cloth in the terminal.
//
// The live view is a Bubble Tea program that reads snapshots from a
// [sim.Runner] and draws the structural edges on a braille [Canvas] through
// an orbiting [Camera]:
//
//   - [Model]: live view of one runner
//   - [RunInteractive]: preset picker that launches the live view
//   - Theme selection with 4 built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset cloth and tuned constants
//	Tab   - Select a constant, Up/Down to tune it
//	P     - Poke the centre node, C to clear forces
//	WASD  - Move the contact cursor (E/F up and down)
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
package viz
