package padloop

type (
	// SongStep is one section of an arrangement: an ordered set of patterns
	// that play concurrently, repeated Repeats times. ArmedPatternID names the
	// pattern that receives newly recorded hits; it is 0 (none) or a member of
	// ActivePatternIDs.
	SongStep struct {
		ID               int
		Name             string `yaml:",omitempty"`
		ActivePatternIDs []int  `yaml:"patterns,flow"`
		ArmedPatternID   int    `yaml:"armed,omitempty"`
		Repeats          int
	}

	// Arrangement is the ordered sequence of steps of one bank. Playback
	// loops it from the top; an empty arrangement cannot play.
	Arrangement []SongStep
)

func (s *SongStep) Copy() SongStep {
	ids := make([]int, len(s.ActivePatternIDs))
	copy(ids, s.ActivePatternIDs)
	return SongStep{ID: s.ID, Name: s.Name, ActivePatternIDs: ids, ArmedPatternID: s.ArmedPatternID, Repeats: s.Repeats}
}

// HasPattern tells whether the pattern is active in this step.
func (s *SongStep) HasPattern(patternID int) bool {
	for _, id := range s.ActivePatternIDs {
		if id == patternID {
			return true
		}
	}
	return false
}

// RemovePattern takes the pattern out of the step's active set. If the
// removed pattern was armed, the first remaining active pattern becomes
// armed, or none if the step is left empty.
func (s *SongStep) RemovePattern(patternID int) {
	for i, id := range s.ActivePatternIDs {
		if id == patternID {
			s.ActivePatternIDs = append(s.ActivePatternIDs[:i], s.ActivePatternIDs[i+1:]...)
			break
		}
	}
	if s.ArmedPatternID == patternID {
		if len(s.ActivePatternIDs) > 0 {
			s.ArmedPatternID = s.ActivePatternIDs[0]
		} else {
			s.ArmedPatternID = 0
		}
	}
}

func (a Arrangement) Copy() Arrangement {
	ret := make(Arrangement, len(a))
	for i := range a {
		ret[i] = a[i].Copy()
	}
	return ret
}

// Step returns the step at index, or false if the index is out of range.
func (a Arrangement) Step(index int) (*SongStep, bool) {
	if index < 0 || index >= len(a) {
		return nil, false
	}
	return &a[index], true
}
