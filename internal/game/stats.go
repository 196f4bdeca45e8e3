package game

import "math"

const (
	hitBaseValue  = 10.0
	comboStep     = 0.10
	capMultiplier = 2.0
)

// CombatStats accumulates one round's score and streak. Score only ever
// grows within a round; Combo resets to zero on any miss.
type CombatStats struct {
	Score  float64
	Combo  int
	Hits   int
	Misses int
}

// RegisterHit extends the streak and credits the combo-scaled value:
// hit i of an unbroken streak is worth base * min(1 + step*i, cap).
func (s *CombatStats) RegisterHit() {
	s.Combo++
	s.Hits++
	s.Score += hitBaseValue * math.Min(1+comboStep*float64(s.Combo), capMultiplier)
}

// RegisterMiss breaks the streak. The score is untouched.
func (s *CombatStats) RegisterMiss() {
	s.Combo = 0
	s.Misses++
}

// FinalScore rounds the floating accumulator to the integer value that gets
// persisted and ranked.
func (s *CombatStats) FinalScore() int64 {
	return int64(math.Round(s.Score))
}
