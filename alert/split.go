// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"strings"
	"unicode/utf8"
)

// Split breaks a message into chunks of at most limit runes each, so that a
// long report can be posted as several sequential messages. Chunks are split
// at paragraph boundaries when possible, then at line boundaries; a single
// line longer than the limit is hard-wrapped. Non-positive limit means
// unlimited.
func Split(text string, limit int) []string {
	text = strings.Trim(text, "\n")
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	return splitOn(text, limit, []string{"\n\n", "\n"})
}

func splitOn(text string, limit int, seps []string) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardWrap(text, limit)
	}

	sep := seps[0]
	var chunks []string
	var cur string
	flush := func() {
		if s := strings.Trim(cur, "\n"); len(strings.TrimSpace(s)) > 0 {
			chunks = append(chunks, s)
		}
		cur = ""
	}

	for _, part := range strings.Split(text, sep) {
		if utf8.RuneCountInString(part) > limit {
			flush()
			chunks = append(chunks, splitOn(part, limit, seps[1:])...)
			continue
		}
		if len(cur) == 0 {
			cur = part
			continue
		}
		if utf8.RuneCountInString(cur)+utf8.RuneCountInString(sep)+utf8.RuneCountInString(part) <= limit {
			cur += sep + part
			continue
		}
		flush()
		cur = part
	}
	flush()
	return chunks
}

func hardWrap(text string, limit int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
