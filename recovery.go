package dwire

// barrier absorbs an error raised inside its scope and reports whether it
// did. Unabsorbed errors continue to the next barrier down the stack.
type barrier func(err error) bool

// barrierStack holds the recovery scopes active on a session, innermost last
type barrierStack struct {
	barriers []barrier
}

// push installs b and returns a func that restores the stack to the depth
// it had before the push. Callers defer the returned func.
func (s *barrierStack) push(b barrier) (restore func()) {
	depth := len(s.barriers)
	s.barriers = append(s.barriers, b)
	return func() {
		s.barriers = s.barriers[:depth]
	}
}

// raise offers err to the barriers from the innermost outwards and returns
// nil once one absorbs it, or err unchanged if none does.
func (s *barrierStack) raise(err error) error {
	for i := len(s.barriers) - 1; i >= 0; i-- {
		if s.barriers[i](err) {
			return nil
		}
	}
	return err
}

func (s *barrierStack) depth() int {
	return len(s.barriers)
}
