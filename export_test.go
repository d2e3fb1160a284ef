package dwire

// BarrierDepth exposes the recovery stack depth to external tests
func (s *Session) BarrierDepth() int {
	return s.barriers.depth()
}
