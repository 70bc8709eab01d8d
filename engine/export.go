package engine

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/padloop/padloop"
)

type (
	sheetData struct {
		BPM      float64
		Quantize string
		Patterns []sheetPattern
		Banks    []sheetBank
	}

	sheetPattern struct {
		Name     string
		Bars     int
		Hits     int
		Duration float64
	}

	sheetBank struct {
		Name  string
		Total float64
		Steps []sheetStep
	}

	sheetStep struct {
		Index    int
		Name     string
		Patterns []string
		Armed    string
		Repeats  int
		Duration float64
	}
)

const sheetTemplate = `ARRANGEMENT SHEET
{{ .BPM }} BPM, quantize {{ .Quantize | default "off" }}

PATTERNS
{{- range .Patterns }}
  {{ printf "%-16s" .Name }} {{ .Bars }} bar(s)  {{ printf "%3d" .Hits }} hits  {{ printf "%6.2f" .Duration }}s
{{- end }}
{{- range .Banks }}
{{ if .Steps }}
BANK {{ .Name }}  ({{ printf "%.2f" .Total }}s total)
{{- range .Steps }}
  {{ printf "%2d" .Index }}. {{ printf "%-16s" (.Name | default "-") }} x{{ .Repeats }}  [{{ .Patterns | join " + " }}]{{ with .Armed }}  rec: {{ . }}{{ end }}  {{ printf "%6.2f" .Duration }}s
{{- end }}
{{ end }}
{{- end }}`

// WriteArrangementSheet renders a printable cue sheet of the project: the
// tempo, the pattern pool and, per bank, every step with its patterns,
// repeat count and duration. Handy to tape next to the pads before a gig.
func WriteArrangementSheet(w io.Writer, project *padloop.Project) error {
	tmpl, err := template.New("sheet").Funcs(sprig.TxtFuncMap()).Parse(sheetTemplate)
	if err != nil {
		return fmt.Errorf("parsing sheet template failed: %w", err)
	}
	return tmpl.Execute(w, makeSheetData(project))
}

func makeSheetData(project *padloop.Project) sheetData {
	data := sheetData{BPM: project.BPM, Quantize: quantizeName(project.Quantize)}
	for i := range project.Patterns {
		p := &project.Patterns[i]
		data.Patterns = append(data.Patterns, sheetPattern{
			Name:     patternLabel(p),
			Bars:     p.Bars,
			Hits:     len(p.Hits),
			Duration: p.Duration(project.BPM),
		})
	}
	for b := range project.Banks {
		bank := &project.Banks[b]
		sb := sheetBank{Name: bank.Name, Total: project.TotalDuration(b)}
		for i := range bank.Arrangement {
			step := &bank.Arrangement[i]
			ss := sheetStep{
				Index:    i + 1,
				Name:     step.Name,
				Repeats:  max(step.Repeats, 1),
				Duration: project.StepDuration(step),
			}
			for _, id := range step.ActivePatternIDs {
				if pat, ok := project.Pattern(id); ok {
					ss.Patterns = append(ss.Patterns, patternLabel(pat))
				}
			}
			if pat, ok := project.Pattern(step.ArmedPatternID); ok {
				ss.Armed = patternLabel(pat)
			}
			sb.Steps = append(sb.Steps, ss)
		}
		data.Banks = append(data.Banks, sb)
	}
	return data
}

func patternLabel(p *padloop.Pattern) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", p.ID)
}

func quantizeName(grid float64) string {
	for i, g := range quantizeGrids {
		if grid == g {
			return quantizeNames[i]
		}
	}
	return ""
}
