package agent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingDecor = regexp.MustCompile(`^(?:#+\s*|\d+[.)]\s*|[-*•]\s*)*`)
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	yearPattern  = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
)

// sections splits model output into labelled blocks. A line opens a block when,
// after stripping markdown heading or list decoration and bold markers, it
// starts with one of the labels followed by a colon. Text after the colon on
// the same line belongs to the block. Labels are matched case-insensitively
// and returned lower-cased; unknown lines are appended to the current block.
func sections(text string, labels ...string) map[string]string {
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[strings.ToLower(l)] = struct{}{}
	}

	out := map[string]string{}
	var (
		current string
		buf     []string
	)
	flush := func() {
		if current != "" {
			out[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if label, rest, ok := splitHeading(line, known); ok {
			flush()
			current = label
			if rest != "" {
				buf = append(buf, rest)
			}
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()
	return out
}

func splitHeading(line string, known map[string]struct{}) (string, string, bool) {
	clean := strings.TrimSpace(line)
	clean = headingDecor.ReplaceAllString(clean, "")
	clean = strings.ReplaceAll(clean, "**", "")
	clean = strings.ReplaceAll(clean, "__", "")

	idx := strings.Index(clean, ":")
	if idx <= 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(clean[:idx]))
	if _, ok := known[label]; !ok {
		return "", "", false
	}
	return label, strings.TrimSpace(clean[idx+1:]), true
}

// listItems returns the bullet or numbered items of block. A block without
// bullets is treated as a comma or semicolon separated list.
func listItems(block string) []string {
	var items []string
	for _, line := range strings.Split(block, "\n") {
		if !bulletPrefix.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		item = strings.Trim(item, "*_ ")
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}

	flat := strings.Join(strings.Fields(block), " ")
	if flat == "" || isUnknown(flat) {
		return nil
	}
	for _, part := range strings.FieldsFunc(flat, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.Trim(strings.TrimSpace(part), "."); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// firstYear returns the first plausible four digit year in s, or 0.
func firstYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// paragraph trims a block and drops placeholder values.
func paragraph(block string) string {
	p := strings.TrimSpace(block)
	if isUnknown(p) {
		return ""
	}
	return p
}

func isUnknown(s string) bool {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".")) {
	case "", "unknown", "n/a", "none", "not applicable", "-":
		return true
	}
	return false
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
