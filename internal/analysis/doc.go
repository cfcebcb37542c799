// Package analysis post-processes recorded cloth runs.
//
//   - [PowerSpectrum], [DominantFrequency]: spectrum of a node's vertical motion
//   - [Summarize]: descriptive statistics of any series
//   - [SettlingTime]: time after which a series stays within a band of its final value
//   - [GeneratePhasePortrait]: height against vertical velocity for one node
//
// A pinned sheet released from rest oscillates around its sagged shape; the
// dominant frequency of the centre node tracks the spring stiffness:
//
//	f, _ := analysis.DominantFrequency(result.Series(center), dt*float64(cfg.RecordEvery))
package analysis
