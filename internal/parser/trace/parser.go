// Package trace turns store diagnostic output into an ordered list of
// datum events.
package trace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leak-analysis/pkg/telemetry"
	"github.com/leak-analysis/pkg/utils"
)

const (
	// DefaultMaxLineBytes bounds a single trace line.
	DefaultMaxLineBytes = 1 << 20

	// DefaultWorkers is the number of inputs parsed concurrently.
	DefaultWorkers = 4
)

// ParserOptions holds configuration options for the trace parser.
type ParserOptions struct {
	// StrictMode aborts on the first malformed line instead of skipping it.
	StrictMode bool

	// MaxLineBytes is the longest line the parser classifies. Longer lines
	// are counted as malformed.
	MaxLineBytes int

	// Workers bounds how many inputs ParseFiles reads at once.
	Workers int

	// Stdin is read for the "-" input. Defaults to os.Stdin.
	Stdin io.Reader

	// Logger receives malformed-line warnings. If nil, they are dropped.
	Logger utils.Logger
}

// DefaultParserOptions returns default parser options.
func DefaultParserOptions() *ParserOptions {
	return &ParserOptions{
		StrictMode:   false,
		MaxLineBytes: DefaultMaxLineBytes,
		Workers:      DefaultWorkers,
	}
}

// Stats counts what a parse saw.
type Stats struct {
	TotalLines int
	Recognized int
	Ignored    int
	Malformed  int
	Truncated  int // inputs whose read stopped on an error before EOF
	ByKind     map[EventKind]int
}

func newStats() Stats {
	return Stats{ByKind: make(map[EventKind]int)}
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	if s.ByKind == nil {
		s.ByKind = make(map[EventKind]int)
	}
	s.TotalLines += other.TotalLines
	s.Recognized += other.Recognized
	s.Ignored += other.Ignored
	s.Malformed += other.Malformed
	s.Truncated += other.Truncated
	for k, n := range other.ByKind {
		s.ByKind[k] += n
	}
}

// Result is the immutable output of a parse.
type Result struct {
	Events []Event
	Stats  Stats
}

// Parser reads trace lines and classifies them.
type Parser struct {
	opts *ParserOptions
}

// NewParser creates a new trace parser.
func NewParser(opts *ParserOptions) *Parser {
	if opts == nil {
		opts = DefaultParserOptions()
	}
	return &Parser{opts: opts}
}

// Parse reads reader to the end and returns the recognised events in input
// order.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*Result, error) {
	return p.parseNamed(ctx, reader, "")
}

func (p *Parser) parseNamed(ctx context.Context, reader io.Reader, source string) (result *Result, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.PhaseParse, telemetry.KeyTraceSource.String(source))
	defer func() { telemetry.Finish(span, err) }()

	logger := utils.OrNull(p.opts.Logger)
	if source != "" {
		logger = logger.With("source", source)
	}

	maxLine := p.opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}

	result = &Result{Stats: newStats()}
	lines := newLineReader(reader, maxLine)
	lineNum := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, tooLong, readErr := lines.next()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("failed to read input after line %d: %w", lineNum, readErr)
			}
			result.Stats.Truncated++
			span.SetAttributes(telemetry.KeyTraceTruncated.Bool(true))
			logger.Warn("input truncated after line %d: %v", lineNum, readErr)
			break
		}

		lineNum++
		result.Stats.TotalLines++

		if tooLong {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("line %d: %w: longer than %d bytes", lineNum, ErrMalformedLine, maxLine)
			}
			result.Stats.Malformed++
			logger.Warn("skipping line %d: longer than %d bytes", lineNum, maxLine)
			continue
		}

		ev, err := Classify(string(line))
		if err != nil {
			if p.opts.StrictMode {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			result.Stats.Malformed++
			logger.Warn("skipping line %d: %v", lineNum, err)
			continue
		}
		if ev == nil {
			result.Stats.Ignored++
			continue
		}
		for _, tok := range ev.Rejected {
			logger.Warn("line %d: skipping allocation %q: datum id out of range", lineNum, tok)
		}

		ev.Line = lineNum
		result.Stats.Recognized++
		result.Stats.ByKind[ev.Kind]++
		result.Events = append(result.Events, *ev)
	}

	span.SetAttributes(telemetry.TraceCounts(
		result.Stats.TotalLines, result.Stats.Recognized, result.Stats.Malformed)...)
	logger.Debug("parsed %d lines, %d events, %d malformed",
		result.Stats.TotalLines, result.Stats.Recognized, result.Stats.Malformed)

	return result, nil
}

// lineReader splits input on newlines without holding more than max bytes of
// any one line.
type lineReader struct {
	r   *bufio.Reader
	max int
	buf []byte
}

func newLineReader(r io.Reader, limit int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024), max: limit}
}

// next returns the next line without its terminator. tooLong reports a line
// over max bytes, whose content is dropped. A final line without a newline is
// still returned; err is io.EOF only once the input is exhausted. Any other
// error leaves the partial line unreturned.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	read := 0
	for {
		chunk, err := lr.r.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			// Two bytes of slack for a CRLF terminator.
			if len(lr.buf)+len(chunk) > lr.max+2 {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF:
			if read == 0 {
				return nil, false, io.EOF
			}
		case err != nil:
			return nil, false, err
		}

		if tooLong {
			return nil, true, nil
		}
		line = bytes.TrimSuffix(lr.buf, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) > lr.max {
			return nil, true, nil
		}
		return line, false, nil
	}
}
