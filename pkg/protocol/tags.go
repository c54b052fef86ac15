package protocol

import (
	"regexp"
	"strings"
	"sync"
)

const (
	CommandTag = "command"
	ThinkTag   = "think"
)

var (
	tagReMu sync.Mutex
	tagRes  = map[string]*regexp.Regexp{}
)

// tagRe matches one complete <tag>...</tag> block, lazily, across newlines,
// ignoring the case of the delimiters.
func tagRe(tag string) *regexp.Regexp {
	tag = strings.ToLower(tag)

	tagReMu.Lock()
	defer tagReMu.Unlock()

	if re, ok := tagRes[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?is)<` + q + `>(.*?)</` + q + `>`)
	tagRes[tag] = re
	return re
}

// ExtractTags returns the interior of every <tag>...</tag> block in document
// order. Blocks never overlap; an unterminated opening tag is ignored.
func ExtractTags(text, tag string) []string {
	matches := tagRe(tag).FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func ExtractCommands(text string) []string {
	return ExtractTags(text, CommandTag)
}

// StripTags removes every complete block of the given tags, content included.
// Removal repeats until nothing changes, so blocks that only become whole
// after an inner block is cut out are removed as well.
func StripTags(text string, tags ...string) string {
	for {
		prev := text
		for _, tag := range tags {
			text = tagRe(tag).ReplaceAllString(text, "")
		}
		if text == prev {
			return text
		}
	}
}
