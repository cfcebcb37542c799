package cloth

import (
	"errors"
	"fmt"
)

// Construction and query errors.
var (
	// ErrGridTooSmall indicates a lattice with fewer than 3 rows or columns.
	// Bend springs span two cells, so smaller grids cannot be built.
	ErrGridTooSmall = errors.New("cloth: grid must be at least 3x3")

	// ErrInvalidMass indicates a non-positive or non-finite node mass.
	ErrInvalidMass = errors.New("cloth: mass must be positive and finite")

	// ErrInvalidParams indicates any other malformed construction parameter.
	ErrInvalidParams = errors.New("cloth: invalid parameters")

	// ErrNodeOutOfRange indicates a node index or (row, col) outside the lattice.
	ErrNodeOutOfRange = errors.New("cloth: node index out of range")

	// ErrInvalidStep indicates a non-positive or non-finite timestep.
	ErrInvalidStep = errors.New("cloth: timestep must be positive and finite")
)

// NodeError reports an out-of-range node access.
type NodeError struct {
	Index int
	Nodes int
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("cloth: node %d out of range [0, %d)", e.Index, e.Nodes)
}

func (e *NodeError) Unwrap() error {
	return ErrNodeOutOfRange
}
