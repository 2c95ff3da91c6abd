package sandbox

import (
	"regexp"
	"strings"
)

const fence = "```"

// langTag matches a bare fence info string such as "python", "py3" or "c++".
var langTag = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+#.-]*$`)

// ExtractCode returns the runnable code inside a model reply. When the
// reply contains a fenced block, the first block is used and a bare
// language tag on its first line is dropped; a block that is nothing but a
// tag yields no code. Without a fence the whole text is treated as code.
func ExtractCode(text string) string {
	if !strings.Contains(text, fence) {
		return text
	}
	parts := strings.Split(text, fence)
	block := parts[1]

	first, rest, found := strings.Cut(block, "\n")
	if !langTag.MatchString(strings.TrimSpace(first)) {
		return block
	}
	if !found {
		return ""
	}
	return rest
}
