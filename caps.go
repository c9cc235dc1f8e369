package gstview

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Caps is the fixed part of a video capability description that the render
// loop needs.
type Caps struct {
	MediaType string // e.g. "video/x-raw"
	Features  string // caps features, e.g. "memory:GLMemory"; empty for system memory
	Format    string
	Width     int
	Height    int
	FrameRate Fraction

	// Fields holds every field of the first structure, type annotations
	// stripped.
	Fields map[string]string
}

// VideoCapsString returns the caps an appsink is configured with for the
// given format, e.g. "video/x-raw,format=RGBA".
func VideoCapsString(format PixelFormat) string {
	return "video/x-raw,format=" + format.CapsName()
}

// ParseCaps parses the first structure of a serialized caps description such
// as
//
//	video/x-raw, format=(string)RGBA, width=(int)640, height=(int)480, framerate=(fraction)30/1
//
// Type annotations are optional. Video caps must carry positive width and
// height. A missing framerate yields 0/1.
func ParseCaps(desc string) (Caps, error) {
	desc = strings.TrimSpace(desc)
	if i := indexTopLevel(desc, ';'); i >= 0 {
		desc = desc[:i]
	}
	parts := splitTopLevel(desc, ',')
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return Caps{}, errors.Wrapf(ErrInvalidCaps, "empty caps %q", desc)
	}

	caps := Caps{
		FrameRate: Fraction{0, 1},
		Fields:    make(map[string]string, len(parts)-1),
	}

	name := strings.TrimSpace(parts[0])
	if open := strings.IndexByte(name, '('); open >= 0 && strings.HasSuffix(name, ")") {
		caps.Features = name[open+1 : len(name)-1]
		name = name[:open]
	}
	caps.MediaType = name

	for _, field := range parts[1:] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		eq := strings.IndexByte(field, '=')
		if eq <= 0 {
			return Caps{}, errors.Wrapf(ErrInvalidCaps, "malformed field %q", field)
		}
		key := strings.TrimSpace(field[:eq])
		caps.Fields[key] = stripCapsValue(field[eq+1:])
	}

	var err error
	caps.Format = caps.Fields["format"]
	if v, ok := caps.Fields["width"]; ok {
		if caps.Width, err = strconv.Atoi(v); err != nil {
			return Caps{}, errors.Wrapf(ErrInvalidCaps, "width %q", v)
		}
	}
	if v, ok := caps.Fields["height"]; ok {
		if caps.Height, err = strconv.Atoi(v); err != nil {
			return Caps{}, errors.Wrapf(ErrInvalidCaps, "height %q", v)
		}
	}
	if v, ok := caps.Fields["framerate"]; ok {
		if caps.FrameRate, err = parseFraction(v); err != nil {
			return Caps{}, errors.Wrapf(ErrInvalidCaps, "framerate %q", v)
		}
	}

	if strings.HasPrefix(caps.MediaType, "video/") && (caps.Width <= 0 || caps.Height <= 0) {
		return Caps{}, errors.Wrapf(ErrInvalidCaps, "video caps without dimensions: %q", desc)
	}
	return caps, nil
}

// stripCapsValue removes a "(type)" annotation and surrounding quotes.
func stripCapsValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "(") {
		if end := strings.IndexByte(v, ')'); end > 0 {
			v = strings.TrimSpace(v[end+1:])
		}
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v
}

func parseFraction(v string) (Fraction, error) {
	num, den := v, "1"
	if i := strings.IndexByte(v, '/'); i >= 0 {
		num, den = v[:i], v[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, err
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return Fraction{}, err
	}
	if d == 0 {
		return Fraction{}, errors.New("zero denominator")
	}
	return Fraction{n, d}, nil
}

// splitTopLevel splits s on sep, ignoring separators inside quotes, lists
// ({...}, <...>) and ranges ([...]).
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	for {
		i := indexTopLevel(s[start:], sep)
		if i < 0 {
			return append(parts, s[start:])
		}
		parts = append(parts, s[start:start+i])
		start += i + 1
	}
}

func indexTopLevel(s string, sep byte) int {
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			quoted = !quoted
		case quoted:
		case c == '{' || c == '[' || c == '<' || c == '(':
			depth++
		case c == '}' || c == ']' || c == '>' || c == ')':
			depth--
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}
