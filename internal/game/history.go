package game

// MaxHistory bounds both the undo and the redo stack.
const MaxHistory = 50

// History keeps bounded undo and redo stacks of full state snapshots. The
// oldest snapshot is evicted when a stack overflows.
type History struct {
	limit int
	undo  []State
	redo  []State
}

// checkpoint remembers what a record call changed so a rejected move can be
// rolled back without leaving a trace.
type checkpoint struct {
	evicted *State
	redo    []State
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &History{limit: limit}
}

// record pushes the pre-move snapshot and clears the redo stack.
func (h *History) record(snapshot State) checkpoint {
	cp := checkpoint{redo: h.redo}
	h.undo, cp.evicted = push(h.undo, snapshot, h.limit)
	h.redo = nil
	return cp
}

// rollback undoes record and returns the snapshot it pushed.
func (h *History) rollback(cp checkpoint) State {
	last := len(h.undo) - 1
	snapshot := h.undo[last]
	h.undo = h.undo[:last]
	if cp.evicted != nil {
		h.undo = append([]State{*cp.evicted}, h.undo...)
	}
	h.redo = cp.redo
	return snapshot
}

// Undo pops the latest snapshot and pushes current onto the redo stack.
func (h *History) Undo(current State) (State, bool) {
	if len(h.undo) == 0 {
		return State{}, false
	}
	last := len(h.undo) - 1
	snapshot := h.undo[last]
	h.undo = h.undo[:last]
	h.redo, _ = push(h.redo, current, h.limit)
	return snapshot, true
}

// Redo is the inverse of Undo.
func (h *History) Redo(current State) (State, bool) {
	if len(h.redo) == 0 {
		return State{}, false
	}
	last := len(h.redo) - 1
	snapshot := h.redo[last]
	h.redo = h.redo[:last]
	h.undo, _ = push(h.undo, current, h.limit)
	return snapshot, true
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

func (h *History) UndoLen() int { return len(h.undo) }
func (h *History) RedoLen() int { return len(h.redo) }

func push(stack []State, s State, limit int) ([]State, *State) {
	stack = append(stack, s)
	if len(stack) <= limit {
		return stack, nil
	}
	evicted := stack[0]
	return append([]State(nil), stack[1:]...), &evicted
}
