//go:build !integration

package usecase

// SetRandFloat pins the pacing random draw for deterministic tests.
func (p *Pacing) SetRandFloat(f func() float64) { p.randFloat = f }
