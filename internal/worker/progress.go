package worker

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress is one parsed worker progress line, e.g. " 42%| IMG_0001.JPG to /photos/2021/07"
type Progress struct {
	Percent int
	File    string
	Dest    string // empty when the worker reported an error instead
	Detail  string // error text reported for File
}

var progressLine = regexp.MustCompile(`^\s*(\d{1,3})%\| (\S.*?)\s*$`)

// ParseProgress returns the last progress line found in text.
func ParseProgress(text string) (Progress, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := progressLine.FindStringSubmatch(strings.TrimRight(lines[i], "\r"))
		if m == nil {
			continue
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil || pct > 100 {
			continue
		}
		p := Progress{Percent: pct}
		rest := m[2]
		if idx := strings.Index(rest, " to "); idx >= 0 {
			p.File = rest[:idx]
			p.Dest = rest[idx+len(" to "):]
		} else if idx := strings.IndexByte(rest, ' '); idx >= 0 {
			p.File = rest[:idx]
			p.Detail = strings.TrimSpace(rest[idx+1:])
		} else {
			p.File = rest
		}
		return p, true
	}
	return Progress{}, false
}
