package topics

import "strings"

// Renderer turns a topic's raw content into what help prints. ext is the
// topic file's extension, such as ".md".
type Renderer interface {
	Render(content string, ext string) string
}

// PlainRenderer prints topics as written, ending on a newline.
type PlainRenderer struct{}

func (r *PlainRenderer) Render(content string, _ string) string {
	if content == "" || strings.HasSuffix(content, "\n") {
		return content
	}
	return content + "\n"
}
