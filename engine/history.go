package engine

type (
	undoAction Model
	redoAction Model
)

func (m *Model) Undo() Action { return MakeAction((*undoAction)(m)) }
func (m *Model) Redo() Action { return MakeAction((*redoAction)(m)) }

func (v *undoAction) Do() {
	m := (*Model)(v)
	if len(m.undoStack) == 0 {
		return
	}
	if len(m.redoStack) >= maxUndo {
		copy(m.redoStack, m.redoStack[len(m.redoStack)-maxUndo+1:])
		m.redoStack = m.redoStack[:maxUndo-1]
	}
	m.redoStack = append(m.redoStack, m.d.Copy())
	m.d = m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.afterHistoryJump()
}

func (v *undoAction) Enabled() bool { return len(v.undoStack) > 0 }

func (v *redoAction) Do() {
	m := (*Model)(v)
	if len(m.redoStack) == 0 {
		return
	}
	if len(m.undoStack) >= maxUndo {
		copy(m.undoStack, m.undoStack[len(m.undoStack)-maxUndo+1:])
		m.undoStack = m.undoStack[:maxUndo-1]
	}
	m.undoStack = append(m.undoStack, m.d.Copy())
	m.d = m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.afterHistoryJump()
}

func (v *redoAction) Enabled() bool { return len(v.redoStack) > 0 }

// afterHistoryJump refreshes everything a restored snapshot can invalidate.
// Snapshots carry the session selections too, so the player gets both the
// project and the settings again.
func (m *Model) afterHistoryJump() {
	m.prevUndoKind = ""
	m.d.ChangedSinceSave = true
	m.d.ChangedSinceRecovery = true
	m.updateDerived(PatternChange | ArrangementChange | ParamsChange)
	m.sendToPlayer()
	m.sendSettings()
}
