package playlist

// Current returns a copy of the current track, or nil if the view is empty
// and no track is selected.
func (m *Model) Current() *Track {
	if m.currentPath == "" {
		return nil
	}
	for _, t := range m.full {
		if t.Path == m.currentPath {
			out := t
			return &out
		}
	}
	return nil
}

// CurrentPath returns the current track's path, "" if none.
func (m *Model) CurrentPath() string { return m.currentPath }

// SetCurrent moves the cursor to the given path if it exists in the full
// list. It reports whether the cursor moved.
func (m *Model) SetCurrent(path string) bool {
	if !m.inFull(path) {
		return false
	}
	m.currentPath = path
	return true
}

// Next moves the cursor forward within the view, wrapping from the last
// element to the first. Position is matched by path; a current track that is
// not in the view lands on the view's first element. Returns nil on an empty
// view.
func (m *Model) Next() *Track {
	return m.step(1)
}

// Previous moves the cursor backward within the view, wrapping from the
// first element to the last. Returns nil on an empty view.
func (m *Model) Previous() *Track {
	return m.step(-1)
}

func (m *Model) step(delta int) *Track {
	if len(m.view) == 0 {
		return nil
	}

	idx := -1
	for i, t := range m.view {
		if t.Path == m.currentPath {
			idx = i
			break
		}
	}

	var next Track
	if idx < 0 {
		next = m.view[0]
	} else {
		n := len(m.view)
		next = m.view[(idx+delta+n)%n]
	}
	m.currentPath = next.Path
	return &next
}

// Advance computes the track that follows when playback of the current one
// finishes. Single mode repeats the current track; every other mode behaves
// like Next.
func (m *Model) Advance() *Track {
	if m.mode == ModeSingle {
		if cur := m.Current(); cur != nil {
			return cur
		}
		return m.step(1)
	}
	return m.step(1)
}
