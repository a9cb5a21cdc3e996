// Package zone parses zonefiles made of one or more sections, each introduced
// by an origin line and a default TTL line, into resolved DNS resource records.
package zone

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// header is the keyword pair that introduces a zone section, e.g. "$ORIGIN" and "$TTL".
type header struct {
	origin string
	ttl    string
}

// ReadFile returns the contents of a zone file.
// Files with a .gz extension are decompressed.
func ReadFile(filename string) (string, error) {
	var fileReader io.Reader
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()
	fileReader = file
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return "", err
		}
		fileReader = gz
		defer func() { _ = gz.Close() }()
	}
	b, err := io.ReadAll(fileReader)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Parse parses the zonefile text.
//
// The first line declares the apex ("<keyword> <domain>") and the second the
// default TTL ("<keyword> <seconds>"). All following lines up to, but not
// including, the last one are records. A later pair of lines starting with the
// same keywords opens a new section. The first failure aborts the parse and no
// records are returned.
func Parse(text string) (Zones, error) {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	if len(lines) < 2 {
		line := ""
		if len(lines) == 1 {
			line = lines[0]
		}
		return nil, &HeaderError{Line: len(lines), Text: line, Err: errors.New("missing default TTL line")}
	}

	z, h, err := parseHeader(lines, 0)
	if err != nil {
		return nil, err
	}
	zones := Zones{z}

	// the final line is a terminator and never parsed
	body := lines[:len(lines)-1]
	var prevOwner string
	for i := 2; i < len(body); i++ {
		line := body[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}

		if h.opens(body, i) {
			z, _, err = parseHeader(body, i)
			if err != nil {
				return nil, err
			}
			zones = append(zones, z)
			prevOwner = ""
			i++
			continue
		}

		start := i
		if parenDepth(line) > 0 {
			line, i = joinGroup(body, i)
		}

		// a record starting with blanks belongs to the previous owner
		if line[0] == ' ' || line[0] == '\t' {
			if prevOwner == "" {
				return nil, &RecordError{Line: start + 1, Text: body[start], Err: errors.New("no previous owner name")}
			}
			line = prevOwner + line
		}

		rr, err := parseRecord(line, z)
		if err != nil {
			return nil, &RecordError{Line: start + 1, Text: body[start], Err: err}
		}
		z.AddRecord(rr)
		prevOwner = rr.Header().Name
	}
	return zones, nil
}

// parseHeader reads the origin line at lines[i] and the TTL line after it.
func parseHeader(lines []string, i int) (*Zone, header, error) {
	var h header
	fields := strings.Fields(lines[i])
	if len(fields) < 2 {
		return nil, h, &HeaderError{Line: i + 1, Text: lines[i], Err: errors.New("expected \"<keyword> <apex domain>\"")}
	}
	h.origin = fields[0]
	apex := fields[1]
	if _, ok := dns.IsDomainName(apex); !ok {
		return nil, h, &HeaderError{Line: i + 1, Text: lines[i], Err: fmt.Errorf("invalid apex domain %q", apex)}
	}

	fields = strings.Fields(lines[i+1])
	if len(fields) < 2 {
		return nil, h, &HeaderError{Line: i + 2, Text: lines[i+1], Err: errors.New("expected \"<keyword> <ttl>\"")}
	}
	h.ttl = fields[0]
	ttl, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, h, &HeaderError{Line: i + 2, Text: lines[i+1], Err: err}
	}

	z := &Zone{
		Apex:       dns.Fqdn(apex),
		DefaultTTL: uint32(ttl),
	}
	return z, h, nil
}

// opens reports whether lines[i] and lines[i+1] are a section header pair.
func (h header) opens(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	origin := strings.Fields(lines[i])
	ttl := strings.Fields(lines[i+1])
	return len(origin) > 0 && len(ttl) > 0 &&
		strings.EqualFold(origin[0], h.origin) &&
		strings.EqualFold(ttl[0], h.ttl)
}

// parseRecord decodes a single master file record relative to z.
func parseRecord(line string, z *Zone) (dns.RR, error) {
	zp := dns.NewZoneParser(strings.NewReader(line), z.Apex, "")
	zp.SetDefaultTTL(z.DefaultTTL)
	rr, ok := zp.Next()
	if err := zp.Err(); err != nil {
		return nil, err
	}
	if !ok || rr == nil {
		return nil, errors.New("no record found")
	}
	if _, more := zp.Next(); more {
		return nil, errors.New("more than one record on a line")
	}
	return rr, nil
}

// parenDepth returns the number of unclosed parentheses outside of quotes and comments.
func parenDepth(line string) int {
	var depth int
	var quoted, escaped bool
	for _, c := range line {
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == ';':
			return depth
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth
}

// joinGroup joins lines[i] with the following lines until its parentheses close.
// It returns the joined record and the index of the last line consumed.
func joinGroup(lines []string, i int) (string, int) {
	var b strings.Builder
	depth := 0
	for ; i < len(lines); i++ {
		b.WriteString(lines[i])
		b.WriteByte('\n')
		depth += parenDepth(lines[i])
		if depth <= 0 {
			break
		}
	}
	if i >= len(lines) {
		i = len(lines) - 1
	}
	return strings.TrimSuffix(b.String(), "\n"), i
}
