package dwire

import (
	"errors"
	"strings"
	"time"
)

// Sample is the outcome of one break: the interpretable response and the
// filler bytes consumed before it.
type Sample struct {
	Response Response
	Skipped  string
	NonZero  bool // the first byte after the break was not 0x00
}

// SampleBreakResponse sends a break on conn and returns the first byte that
// is neither break filler (0x00) nor line-idle filler (0xFF). Zeros are only
// skipped before the first 0xFF. A read timeout yields NoResponse; filler is
// consumed for as long as the device keeps sending it.
func SampleBreakResponse(conn Conn, breakLength time.Duration) (Sample, error) {
	if err := conn.SendBreak(breakLength); err != nil {
		return Sample{Response: NoResponse}, err
	}

	var skipped strings.Builder
	sample := Sample{Response: NoResponse}

	b, err := conn.ReadByte()
	if err == nil && b != 0x00 {
		sample.NonZero = true
	}
	for err == nil && b == 0x00 {
		skipped.WriteByte('0')
		b, err = conn.ReadByte()
	}
	for err == nil && b == 0xFF {
		skipped.WriteByte('F')
		b, err = conn.ReadByte()
	}
	sample.Skipped = skipped.String()

	switch {
	case errors.Is(err, ErrReadTimeout):
		return sample, nil
	case err != nil:
		return sample, err
	}

	sample.Response = Response(b)
	return sample, nil
}
