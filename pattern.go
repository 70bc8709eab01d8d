package padloop

// MaxHitsPerPattern bounds how many hits a single pattern can hold. Recording
// indefinitely into a looping pattern evicts the oldest hits instead of
// growing without bound.
const MaxHitsPerPattern = 256

type (
	// LoopHit is one recorded pad trigger inside a pattern. BeatOffset is the
	// quantized position in beats from the start of the pattern, in
	// [0, Bars*BeatsPerBar). OriginalBeatOffset keeps the raw pre-quantization
	// position so the take can be re-quantized or inspected later. Pass tells
	// which loop iteration of the recording produced the hit.
	//
	// IDs are unique within the project: ids of hits loaded from a project
	// file or created by edits are positive, ids of hits captured live by the
	// player are negative, so the two sides can assign ids independently.
	LoopHit struct {
		ID                 int     `yaml:"id"`
		PadID              int     `yaml:"pad"`
		BeatOffset         float64 `yaml:"beat"`
		OriginalBeatOffset float64 `yaml:"rawbeat"`
		Pass               int     `yaml:"pass,omitempty"`
	}

	// Pattern is a loop of Bars bars in 4/4, holding the hits recorded into
	// it. Hits are kept in recording order; their musical order is given by
	// BeatOffset alone.
	Pattern struct {
		ID   int
		Name string `yaml:",omitempty"`
		Bars int
		Hits []LoopHit `yaml:",omitempty"`
	}
)

func (p *Pattern) Copy() Pattern {
	hits := make([]LoopHit, len(p.Hits))
	copy(hits, p.Hits)
	return Pattern{ID: p.ID, Name: p.Name, Bars: p.Bars, Hits: hits}
}

// AppendHit adds a hit to the pattern, evicting the oldest hits first if the
// pattern is at MaxHitsPerPattern. The eviction reuses the backing array so
// an endless recording session does not keep growing it.
func (p *Pattern) AppendHit(hit LoopHit) {
	if len(p.Hits) >= MaxHitsPerPattern {
		n := copy(p.Hits, p.Hits[len(p.Hits)-MaxHitsPerPattern+1:])
		p.Hits = p.Hits[:n]
	}
	p.Hits = append(p.Hits, hit)
}

// ValidBars tells whether the bar count is one of the allowed pattern
// lengths.
func ValidBars(bars int) bool {
	for _, b := range PatternBarOptions {
		if b == bars {
			return true
		}
	}
	return false
}
