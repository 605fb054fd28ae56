package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderMarkdown prints markdown with syntax highlighting, switching the
// lexer inside fenced code blocks.
func RenderMarkdown(content string, theme string) error {
	language := "markdown"
	inCodeBlock := false

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "```") {
			if !inCodeBlock {
				inCodeBlock = true
				fence := strings.TrimSpace(strings.TrimPrefix(line, "```"))
				if fence != "" {
					language = fence
				}
			} else {
				inCodeBlock = false
				language = "markdown"
			}
			fmt.Println(line)
			continue
		}

		var buf bytes.Buffer
		if err := quick.Highlight(&buf, line+"\n", language, "terminal256", theme); err != nil {
			return err
		}
		fmt.Print(buf.String())
	}
	return nil
}
