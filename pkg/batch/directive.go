package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedLine is returned for directive lines that do not have 2 or 4 fields
var ErrMalformedLine = errors.New("malformed line")

// Ref references an interface by device and interface tokens, either names or ids
type Ref struct {
	Device    string
	Interface string
}

func (r Ref) String() string {
	return r.Device + "," + r.Interface
}

// Directive is a non-comment line of a directive file
type Directive struct {
	// Line is the 1-based line number in the file
	Line int
	// Text is the line as it appears in the file, without surrounding whitespace
	Text string
	// Refs contains one reference for the "device,interface" form and two for the
	// "device_id,interface_id,device2_id,interface2_id" form
	Refs []Ref
	// Err is set if the line is malformed
	Err error
}

// MaxLineLength is the longest directive line accepted. Longer lines are reported as malformed.
const MaxLineLength = 4096

// Parse reads the directives from the reader, in order. Blank lines and comments are skipped.
// Malformed lines are returned with their Err set. An error is returned only if the reader fails.
func Parse(r io.Reader) ([]Directive, error) {
	directives := []Directive{}

	reader := bufio.NewReader(r)
	line := 0
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading directives: %w", err)
		}
		if raw == "" && err != nil {
			break
		}

		line++
		if line == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		text := strings.TrimSpace(raw)
		switch {
		case text == "" || strings.HasPrefix(text, "#"):
		case len(text) > MaxLineLength:
			directives = append(directives, Directive{
				Line: line,
				Text: text[:64] + "...",
				Err:  fmt.Errorf("%w: line %d: longer than %d bytes", ErrMalformedLine, line, MaxLineLength),
			})
		default:
			directives = append(directives, parseLine(line, text))
		}

		if err != nil {
			break
		}
	}

	return directives, nil
}

func parseLine(line int, text string) Directive {
	d := Directive{Line: line, Text: text}

	data := text
	if idx := strings.Index(data, "#"); idx >= 0 {
		data = data[:idx]
	}

	fields := strings.Split(data, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			d.Err = fmt.Errorf("%w: line %d: empty field %d in %q", ErrMalformedLine, line, i+1, text)
			return d
		}
	}

	switch len(fields) {
	case 2:
		d.Refs = []Ref{{Device: fields[0], Interface: fields[1]}}
	case 4:
		if err := allNumeric(fields); err != nil {
			d.Err = fmt.Errorf("%w: line %d: %w in %q", ErrMalformedLine, line, err, text)
			return d
		}
		d.Refs = []Ref{
			{Device: fields[0], Interface: fields[1]},
			{Device: fields[2], Interface: fields[3]},
		}
	default:
		d.Err = fmt.Errorf(
			"%w: line %d: expected 2 or 4 comma-separated values, got %d in %q",
			ErrMalformedLine, line, len(fields), text,
		)
	}

	return d
}

func allNumeric(fields []string) error {
	for _, f := range fields {
		for _, c := range f {
			if c < '0' || c > '9' {
				return fmt.Errorf("id %q is not numeric", f)
			}
		}
	}

	return nil
}
