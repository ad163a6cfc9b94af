package admission

import (
	"fmt"
	"strings"

	regexp "github.com/grafana/regexp"
)

// RegexPrefix marks an allow-list entry as a regular expression.
const RegexPrefix = "regex:"

type entryKind int

const (
	entryLiteral entryKind = iota
	entryRegex
	entryInvalid
)

type entry struct {
	kind    entryKind
	literal string
	re      *regexp.Regexp
}

func (e entry) matches(value string) bool {
	switch e.kind {
	case entryLiteral:
		return value == e.literal
	case entryRegex:
		return e.re.MatchString(value)
	default:
		return false
	}
}

// AllowList is a compiled set of literal and regex entries.
type AllowList struct {
	entries []entry
}

// Compile turns raw configuration entries into an AllowList. Entries are
// trimmed and blank ones dropped. An invalid regex still occupies its slot as
// a never-matching entry; the returned error lists every such entry so callers
// can refuse the configuration at startup.
func Compile(raw []string) (AllowList, error) {
	list := AllowList{entries: make([]entry, 0, len(raw))}
	var bad []string
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.HasPrefix(item, RegexPrefix) {
			list.entries = append(list.entries, entry{kind: entryLiteral, literal: item})
			continue
		}
		re, err := compilePattern(strings.TrimPrefix(item, RegexPrefix))
		if err != nil {
			bad = append(bad, fmt.Sprintf("%q: %v", item, err))
			list.entries = append(list.entries, entry{kind: entryInvalid})
			continue
		}
		list.entries = append(list.entries, entry{kind: entryRegex, re: re})
	}
	if len(bad) > 0 {
		return list, fmt.Errorf("invalid allow-list pattern %s", strings.Join(bad, ", "))
	}
	return list, nil
}

// Len reports the number of entries, including invalid ones.
func (l AllowList) Len() int {
	return len(l.entries)
}

// Matches reports whether any entry accepts value. The first hit wins.
func (l AllowList) Matches(value string) bool {
	for _, e := range l.entries {
		if e.matches(value) {
			return true
		}
	}
	return false
}

// Matches evaluates value against raw allow-list entries without keeping the
// compiled form. Invalid patterns never match.
func Matches(value string, raw []string) bool {
	list, _ := Compile(raw)
	return list.Matches(value)
}

// compilePattern accepts both bare Go patterns and PCRE style delimited ones
// such as "/^okhttp/i", which is how allow-lists are usually written by
// operators coming from PHP deployments.
func compilePattern(p string) (*regexp.Regexp, error) {
	body, flags, ok := splitDelimited(p)
	if !ok {
		return regexp.Compile(p)
	}
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'u', 'D':
		default:
			return nil, fmt.Errorf("unsupported modifier %q", f)
		}
	}
	if inline.Len() > 0 {
		body = "(?" + inline.String() + ")" + body
	}
	return regexp.Compile(body)
}

func splitDelimited(p string) (body, flags string, ok bool) {
	if len(p) < 2 {
		return "", "", false
	}
	delim := p[0]
	if !strings.ContainsRune("/#~!@%|+", rune(delim)) {
		return "", "", false
	}
	end := strings.LastIndexByte(p, delim)
	if end <= 0 {
		return "", "", false
	}
	return p[1:end], p[end+1:], true
}
