package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/padloop/padloop"
	"gopkg.in/yaml.v3"
)

// ReadProject reads a project from r and replaces the whole store with it,
// as one undoable change. Both the YAML written by WriteProject and JSON are
// accepted. Any error is reported through an alert; the current project
// survives a failed load untouched.
func (m *Model) ReadProject(r io.ReadCloser) {
	b, err := io.ReadAll(r)
	if errClose := r.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error reading project file: %v", err), Error)
		return
	}
	var project padloop.Project
	if errJSON := json.Unmarshal(b, &project); errJSON != nil {
		if errYaml := yaml.Unmarshal(b, &project); errYaml != nil {
			m.Alerts().Add(fmt.Sprintf("Error unmarshaling project: %v / %v", errYaml, errJSON), Error)
			return
		}
	}
	if err := project.Validate(); err != nil {
		m.Alerts().Add(fmt.Sprintf("Not a valid project: %v", err), Error)
		return
	}
	m.SetProject(project)
}

// SetProject swaps in a new project wholesale, fixing up the selections that
// pointed into the old one.
func (m *Model) SetProject(project padloop.Project) {
	defer m.change("SetProject", PatternChange|ArrangementChange|ParamsChange, MajorChange)()
	m.d.Project = project
	m.d.MaxID = project.MaxID()
	m.d.StepIndex = 0
	if m.d.Project.PatternIndex(m.d.PatternID) < 0 {
		if len(m.d.Project.Patterns) > 0 {
			m.d.PatternID = m.d.Project.Patterns[0].ID
		} else {
			m.d.PatternID = 0
		}
	}
	TrySend(m.broker.ToPlayer, any(CurrentPatternMsg{m.d.PatternID}))
}

// WriteProject writes the project to w as YAML.
func (m *Model) WriteProject(w io.WriteCloser) {
	b, err := yaml.Marshal(m.d.Project)
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error marshaling project: %v", err), Error)
		return
	}
	if _, err := w.Write(b); err != nil {
		m.Alerts().Add(fmt.Sprintf("Error writing project file: %v", err), Error)
		return
	}
	if err := w.Close(); err != nil {
		m.Alerts().Add(fmt.Sprintf("Error writing project file: %v", err), Error)
		return
	}
	m.d.ChangedSinceSave = false
}

// LoadProjectFile loads the project from path and remembers the path for
// later saves.
func (m *Model) LoadProjectFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error opening project file: %v", err), Error)
		return
	}
	m.ReadProject(f)
	m.d.FilePath = path
	m.d.ChangedSinceSave = false
}

// SaveProjectFile saves the project to path, which becomes the project's
// file path.
func (m *Model) SaveProjectFile(path string) {
	f, err := os.Create(path)
	if err != nil {
		m.Alerts().Add(fmt.Sprintf("Error creating project file: %v", err), Error)
		return
	}
	m.d.FilePath = path
	m.WriteProject(f)
}

func (m *Model) FilePath() string       { return m.d.FilePath }
func (m *Model) ChangedSinceSave() bool { return m.d.ChangedSinceSave }

// MarshalRecovery returns the current session as bytes, for the host to
// stash wherever it wants (e.g. browser local storage on wasm builds). The
// on-disk recovery file is removed as the host now owns the state.
func (m *Model) MarshalRecovery() []byte {
	out, err := json.Marshal(m.d)
	if err != nil {
		return nil
	}
	if m.d.RecoveryFilePath != "" {
		os.Remove(m.d.RecoveryFilePath)
	}
	m.d.ChangedSinceRecovery = false
	return out
}

// SaveRecovery writes the whole session state to the recovery file, so a
// crash loses nothing. Called periodically and on quit; does nothing when
// nothing changed since the last save.
func (m *Model) SaveRecovery() error {
	if !m.d.ChangedSinceRecovery {
		return nil
	}
	if m.d.RecoveryFilePath == "" {
		return errors.New("no recovery file path set")
	}
	out, err := json.Marshal(m.d)
	if err != nil {
		return fmt.Errorf("could not marshal recovery data: %w", err)
	}
	dir := filepath.Dir(m.d.RecoveryFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create recovery directory: %w", err)
	}
	if err := os.WriteFile(m.d.RecoveryFilePath, out, 0644); err != nil {
		return fmt.Errorf("could not write recovery file: %w", err)
	}
	m.d.ChangedSinceRecovery = false
	return nil
}

// UnmarshalRecovery restores a session from bytes produced by
// MarshalRecovery.
func (m *Model) UnmarshalRecovery(bytes []byte) {
	var data modelData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return
	}
	recoveryFilePath := m.d.RecoveryFilePath
	m.d = data
	m.d.RecoveryFilePath = recoveryFilePath
	m.d.ChangedSinceRecovery = false
	m.updateDerived(PatternChange | ArrangementChange | ParamsChange)
	m.sendToPlayer()
	m.sendSettings()
}

// LoadRecovery restores the session from the recovery file, if one exists.
func (m *Model) LoadRecovery() {
	if m.d.RecoveryFilePath == "" {
		return
	}
	b, err := os.ReadFile(m.d.RecoveryFilePath)
	if err != nil {
		return
	}
	m.UnmarshalRecovery(b)
}
