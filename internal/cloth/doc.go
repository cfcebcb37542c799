// Package cloth implements a mass-spring cloth on a regular 2D lattice.
//
// A [Cloth] owns its particle store and spring network and advances them one
// tick at a time:
//
//   - force accumulation: gravity, linear drag, damped springs, external forces
//   - semi-implicit Euler integration with a one-sided ground clamp
//   - Provot dynamic inverse: a velocity correction for over-stretched springs
//
// Springs reference nodes by flat index (row*cols + col) and never hold node
// state, so the node arrays can be copied or snapshotted freely.
//
// # Example
//
//	c, err := cloth.New(cloth.DefaultParams())
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < 120; i++ {
//	    _ = c.Advance(1.0 / 120)
//	}
//	p, _ := c.Position(10, 10)
//
// # Thread Safety
//
// Cloth is NOT thread-safe. Share node state across goroutines through
// [Snapshot] copies; see the sim package's Runner for a double-buffered loop.
package cloth
