package padloop

import (
	"errors"
	"fmt"
)

type (
	// Project is the whole savable state of a session: tempo, the shared
	// pattern pool, and the banks. Patterns are global; any step in any bank
	// may reference any pattern by id.
	//
	// Quantize is the recording grid in beats (one of the Grid constants);
	// 0 disables quantization.
	Project struct {
		BPM      float64
		Quantize float64 `yaml:",omitempty"`
		Patterns []Pattern
		Banks    []Bank
	}
)

func (s *Project) Copy() Project {
	patterns := make([]Pattern, len(s.Patterns))
	for i := range s.Patterns {
		patterns[i] = s.Patterns[i].Copy()
	}
	banks := make([]Bank, len(s.Banks))
	for i := range s.Banks {
		banks[i] = s.Banks[i].Copy()
	}
	return Project{BPM: s.BPM, Quantize: s.Quantize, Patterns: patterns, Banks: banks}
}

// Pattern returns the pattern with the given id, or false if no such pattern
// exists.
func (s *Project) Pattern(id int) (*Pattern, bool) {
	i := s.PatternIndex(id)
	if i < 0 {
		return nil, false
	}
	return &s.Patterns[i], true
}

// PatternIndex returns the index of the pattern with the given id, or -1.
func (s *Project) PatternIndex(id int) int {
	for i := range s.Patterns {
		if s.Patterns[i].ID == id {
			return i
		}
	}
	return -1
}

// DeletePattern removes the pattern from the pool and cascades: the id is
// removed from every step's active set in every bank, and armed patterns are
// reassigned to the first remaining active pattern of their step, or none.
// Deleting an unknown id is a no-op.
func (s *Project) DeletePattern(id int) {
	i := s.PatternIndex(id)
	if i < 0 {
		return
	}
	s.Patterns = append(s.Patterns[:i], s.Patterns[i+1:]...)
	for b := range s.Banks {
		arr := s.Banks[b].Arrangement
		for j := range arr {
			arr[j].RemovePattern(id)
		}
	}
}

// Validate checks the invariants a playable project must satisfy. It does not
// repair anything; loading code decides what to do with a bad file.
func (s *Project) Validate() error {
	if s.BPM <= 0 {
		return errors.New("tempo must be positive")
	}
	if len(s.Banks) != NumBanks {
		return fmt.Errorf("project must have exactly %d banks, has %d", NumBanks, len(s.Banks))
	}
	seen := map[int]bool{}
	for i := range s.Patterns {
		p := &s.Patterns[i]
		if p.ID == 0 {
			return fmt.Errorf("pattern %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pattern id %d", p.ID)
		}
		seen[p.ID] = true
		if !ValidBars(p.Bars) {
			return fmt.Errorf("pattern %q has invalid bar count %d", p.Name, p.Bars)
		}
		if len(p.Hits) > MaxHitsPerPattern {
			return fmt.Errorf("pattern %q has %d hits, limit is %d", p.Name, len(p.Hits), MaxHitsPerPattern)
		}
	}
	for b := range s.Banks {
		for j := range s.Banks[b].Arrangement {
			step := &s.Banks[b].Arrangement[j]
			if step.Repeats < 1 {
				return fmt.Errorf("step %q has repeat count %d", step.Name, step.Repeats)
			}
			if step.ArmedPatternID != 0 && !step.HasPattern(step.ArmedPatternID) {
				return fmt.Errorf("step %q arms pattern %d which is not active in it", step.Name, step.ArmedPatternID)
			}
		}
	}
	return nil
}

// MaxID returns the largest positive id used by any pattern, step or hit in
// the project, so new ids can be assigned past it.
func (s *Project) MaxID() int {
	ret := 0
	for i := range s.Patterns {
		if s.Patterns[i].ID > ret {
			ret = s.Patterns[i].ID
		}
		for _, h := range s.Patterns[i].Hits {
			if h.ID > ret {
				ret = h.ID
			}
		}
	}
	for b := range s.Banks {
		for _, step := range s.Banks[b].Arrangement {
			if step.ID > ret {
				ret = step.ID
			}
		}
	}
	return ret
}

// MinHitID returns the smallest (most negative) hit id in the project, or 0
// if no hit has a negative id. The player assigns recorded hits ids below
// this.
func (s *Project) MinHitID() int {
	ret := 0
	for i := range s.Patterns {
		for _, h := range s.Patterns[i].Hits {
			if h.ID < ret {
				ret = h.ID
			}
		}
	}
	return ret
}
