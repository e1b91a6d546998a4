// Package csv turns a simple comma-separated upload into nested records.
//
// The accepted dialect is deliberately plain: one record per line, no
// quoting or escaping, "," as the only delimiter. Header cells may use dotted
// paths ("address.city") to describe nesting, which BuildRecord reconstructs.
package csv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// ErrNoHeader is returned when the input has no non-blank line.
var ErrNoHeader = errors.New("no header line")

// Header is a header cell paired with the path it addresses.
type Header struct {
	Name string
	Path records.Path
}

// ParseHeaders splits a header line on "," and trims each cell. Dotted names
// are returned verbatim; they are only split into paths when records are
// built. An empty or blank line yields an empty slice.
func ParseHeaders(line string) []string {
	if strings.TrimSpace(line) == "" {
		return []string{}
	}
	cells := strings.Split(line, ",")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return StripHeaderBOM(cells)
}

// CompileHeaders parses every header name into its path once so rows can be
// built without re-splitting.
func CompileHeaders(names []string) []Header {
	out := make([]Header, len(names))
	for i, n := range names {
		out[i] = Header{Name: n, Path: records.ParsePath(n)}
	}
	return out
}

// BuildRecord pairs one data line with headers position-wise. Cells missing at
// the end of a short row become records.Undefined; extra cells are ignored.
func BuildRecord(headers []string, line string) records.Record {
	return buildRecord(CompileHeaders(headers), line)
}

// BuildRecords builds one record per line in input order.
func BuildRecords(headers []string, lines []string) []records.Record {
	compiled := CompileHeaders(headers)
	out := make([]records.Record, 0, len(lines))
	for _, line := range lines {
		out = append(out, buildRecord(compiled, line))
	}
	return out
}

func buildRecord(headers []Header, line string) records.Record {
	values := strings.Split(line, ",")
	rec := make(records.Record, len(headers))
	for i, h := range headers {
		var v any = records.Undefined
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		rec.Set(h.Path, v)
	}
	return rec
}

// SplitLines breaks content on "\n", trims every line and drops blank ones.
func SplitLines(content string) []string {
	raw := strings.Split(content, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Read consumes r fully and returns the parsed header names and the remaining
// data lines. A leading byte-order mark is removed.
func Read(r io.Reader) (headers []string, data []string, err error) {
	b, err := io.ReadAll(newDecodingReader(r))
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	lines := SplitLines(string(b))
	if len(lines) == 0 {
		return nil, nil, ErrNoHeader
	}
	return ParseHeaders(lines[0]), lines[1:], nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (headers []string, data []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	adviseSequential(f)

	return Read(f)
}

// ParseFile reads path and builds a record for every data line.
func ParseFile(path string) ([]records.Record, error) {
	headers, data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return BuildRecords(headers, data), nil
}

// ReadHeaderLine returns the first non-blank line of the file at path, trimmed,
// with any BOM removed. It stops reading as soon as that line is found, so it
// picks the same header line Read does. A file with only blank lines yields "".
func ReadHeaderLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	br := bufio.NewReader(newDecodingReader(f))
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if l := strings.TrimSpace(line); l != "" {
			return l, nil
		}
		if err != nil {
			return "", nil
		}
	}
}
