package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape neutralises the characters Telegram's HTML parse mode treats as markup.
func escape(s string) string {
	return htmlEscaper.Replace(s)
}

// truncateRunes returns the first n code points of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// cutMarkup truncates already-escaped markup to at most n code points,
// backing off so the cut never leaves half an entity or half a tag behind.
func cutMarkup(s string, n int) string {
	s = truncateRunes(s, n)

	if amp := strings.LastIndexByte(s, '&'); amp >= 0 && !strings.ContainsRune(s[amp:], ';') {
		s = s[:amp]
	}
	if lt := strings.LastIndexByte(s, '<'); lt >= 0 && !strings.ContainsRune(s[lt:], '>') {
		s = s[:lt]
	}
	return s
}

// fitMarkup cuts markup to at most n code points and closes any element the
// cut left open. The closing tags count toward n.
func fitMarkup(s string, n int) string {
	for limit := n; limit > 0; {
		cut := cutMarkup(s, limit)
		closed := cut + closingTags(cut)
		over := utf8.RuneCountInString(closed) - n
		if over <= 0 {
			return closed
		}
		limit -= over
	}
	return ""
}

// closingTags returns the end tags for elements still open at the end of s,
// innermost first.
func closingTags(s string) string {
	var open []string
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			break
		}
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			break
		}
		tag := s[lt+1 : lt+gt]
		s = s[lt+gt+1:]

		if name, ok := strings.CutPrefix(tag, "/"); ok {
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == name {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
			continue
		}
		name, _, _ := strings.Cut(tag, " ")
		open = append(open, name)
	}

	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

// stringify renders a decoded JSON value for display.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
