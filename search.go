package dwire

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Attempt is the setup of a single trial
type Attempt struct {
	Port        string
	BaudRate    int
	BreakLength time.Duration
}

// TrialResult scores one trial.
//
// Factor is 0 when the port refused the rate or nothing came back, 100 when
// the expected response byte arrived, and above 100 when the response
// pulses were that many percent wider than the trial bit period.
type TrialResult struct {
	Attempt     Attempt
	Response    Response
	Factor      int
	Unsupported bool
}

// BaudWindow is the range of rates confirmed to produce the expected
// response during one search. Lower <= Upper.
type BaudWindow struct {
	Lower int
	Upper int
}

// Mid returns the middle of the window
func (w BaudWindow) Mid() int {
	return (w.Lower + w.Upper) / 2
}

// BreakLength returns the trial break for rate, about one byte time long
func BreakLength(rate int) time.Duration {
	return time.Duration(100000/rate) * time.Millisecond
}

// NextRate scales rate down by the measured pulse width. Factors below
// 115 are raised to 115 so the divisor stays at 105 or more.
func NextRate(rate, factor int) int {
	if factor < 115 {
		factor = 115
	}
	return (rate * 100) / (factor - 10)
}

// Searcher finds the baud rate of a debugWIRE target on one port
type Searcher struct {
	transport Transport
	config    Config
	tracer    Tracer
	trials    int
}

// NewSearcher creates a searcher that opens ports through transport
func NewSearcher(transport Transport, opts ...Option) (*Searcher, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newSearcher(transport, config), nil
}

func newSearcher(transport Transport, config Config) *Searcher {
	return &Searcher{
		transport: transport,
		config:    config,
		tracer:    config.Tracer,
	}
}

// Try runs one trial: open at the attempt's rate, break, sample, close.
// The connection is closed before Try returns on every path. Errors other
// than an unsupported rate are returned as *Fault.
func (s *Searcher) Try(ctx context.Context, a Attempt) (result TrialResult, err error) {
	result = TrialResult{Attempt: a, Response: NoResponse}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if s.config.MaxTrials > 0 && s.trials >= s.config.MaxTrials {
		return result, fmt.Errorf("%s: gave up after %d trials: %w", a.Port, s.trials, ErrNoExactMatch)
	}
	s.trials++

	conn, err := s.transport.Open(a.Port, a.BaudRate)
	if err != nil {
		if errors.Is(err, ErrUnsupportedRate) {
			result.Unsupported = true
			s.tracer.Trial(TrialEvent{Attempt: a, Response: NoResponse, Note: NoteUnsupported})
			return result, nil
		}
		return result, &Fault{Port: a.Port, Op: "open", Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = &Fault{Port: a.Port, Op: "close", Err: cerr}
		}
	}()

	sample, err := SampleBreakResponse(conn, a.BreakLength)
	if err != nil {
		return result, &Fault{Port: a.Port, Op: "break", Err: err}
	}
	result.Response = sample.Response

	event := TrialEvent{Attempt: a, Skipped: sample.Skipped, Response: sample.Response}
	switch b, ok := sample.Response.Byte(); {
	case !ok:
		event.Note = NoteNoResponse
	case b == ResponseByte:
		result.Factor = 100
		event.Note = NoteExpected
	default:
		result.Factor = ApproxFactor(b)
		if sample.NonZero {
			event.Note = NoteNonZero
		}
	}
	event.Factor = result.Factor
	s.tracer.Trial(event)

	return result, nil
}

// Search finds a working baud rate on port and returns the connection,
// still open at that rate.
//
// The descent phase starts far above any plausible rate and divides the
// rate by the measured pulse width until a trial stops reporting a too-fast
// rate. The bisection phase then widens a window of exact matches in fixed
// steps in both directions, and the middle of that window is validated with
// one more break before it is accepted.
func (s *Searcher) Search(ctx context.Context, port string) (Conn, int, error) {
	s.trials = 0

	rate := s.config.StartRate
	brk := s.config.StartBreak

	s.tracer.Phase("descent")
	result, err := s.Try(ctx, Attempt{Port: port, BaudRate: rate, BreakLength: brk})
	if err != nil {
		return nil, 0, err
	}

	for result.Factor > 100 {
		rate = NextRate(rate, result.Factor)
		if rate < 1 {
			return nil, 0, fmt.Errorf("%s: rate estimate fell to zero: %w", port, ErrNoExactMatch)
		}
		brk = BreakLength(rate)
		result, err = s.Try(ctx, Attempt{Port: port, BaudRate: rate, BreakLength: brk})
		if err != nil {
			return nil, 0, err
		}
	}

	if result.Factor == 0 {
		if result.Unsupported {
			return nil, 0, fmt.Errorf("%s at %d baud: %w", port, rate, ErrUnsupportedRate)
		}
		return nil, 0, fmt.Errorf("%s at %d baud: %w", port, rate, ErrNoResponse)
	}

	brk = BreakLength(rate)
	window, err := s.bisect(ctx, port, rate, brk)
	if err != nil {
		return nil, 0, err
	}

	chosen := window.Mid()
	s.tracer.Chosen(chosen)

	conn, err := s.validate(ctx, port, chosen, brk)
	if err != nil {
		return nil, 0, err
	}
	return conn, chosen, nil
}

// bisect widens the exact-match window around rate. The first trial that
// does not match in each direction is not part of the window.
func (s *Searcher) bisect(ctx context.Context, port string, rate int, brk time.Duration) (BaudWindow, error) {
	window := BaudWindow{Lower: rate, Upper: rate}
	step := s.config.StepPercent

	s.tracer.Phase("upper bound")
	for {
		trial := window.Upper * (100 + step) / 100
		if trial == window.Upper {
			break
		}
		result, err := s.Try(ctx, Attempt{Port: port, BaudRate: trial, BreakLength: brk})
		if err != nil {
			return window, err
		}
		if result.Factor != 100 {
			break
		}
		window.Upper = trial
	}

	s.tracer.Phase("lower bound")
	for {
		trial := window.Lower * (100 - step) / 100
		if trial == window.Lower || trial < 1 {
			break
		}
		result, err := s.Try(ctx, Attempt{Port: port, BaudRate: trial, BreakLength: brk})
		if err != nil {
			return window, err
		}
		if result.Factor != 100 {
			break
		}
		window.Lower = trial
	}

	return window, nil
}

// validate reopens port at rate and keeps it open only if the break
// response is reproduced.
func (s *Searcher) validate(ctx context.Context, port string, rate int, brk time.Duration) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := s.transport.Open(port, rate)
	if err != nil {
		if errors.Is(err, ErrUnsupportedRate) {
			return nil, fmt.Errorf("%s at %d baud: %w", port, rate, ErrWindowValidationFailed)
		}
		return nil, &Fault{Port: port, Op: "open", Err: err}
	}

	keep := false
	defer func() {
		if keep {
			return
		}
		if err := conn.Close(); err != nil {
			s.config.Logger.Debug().Str("port", port).Int("baud", rate).Err(err).Msg("close after failed validation")
		}
	}()

	sample, err := SampleBreakResponse(conn, brk)
	if err != nil {
		return nil, &Fault{Port: port, Op: "break", Err: err}
	}

	a := Attempt{Port: port, BaudRate: rate, BreakLength: brk}
	event := TrialEvent{Attempt: a, Skipped: sample.Skipped, Response: sample.Response}
	if sample.Response != ResponseByte {
		s.tracer.Trial(event)
		return nil, fmt.Errorf("%s at %d baud: received %s: %w", port, rate, sample.Response, ErrWindowValidationFailed)
	}
	event.Factor = 100
	event.Note = NoteExpected
	s.tracer.Trial(event)

	keep = true
	return conn, nil
}
