package notifier

import (
	"strings"
	"time"

	"tradegate/internal/pkg/text"
)

const (
	maxStructuredMessageLen = 3800
	maxMessageLineLen       = 200

	fenceOpen  = "```\n"
	fenceClose = "```\n\n"
	elided     = "- ...\n"
)

// MessageSection is one titled block of bullet lines.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage is a Telegram alert: a header, fenced sections, a footer
// and a UTC timestamp.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown renders the message as Telegram Markdown. Every line is
// capped before it is placed, and section lines that do not fit in
// maxStructuredMessageLen are dropped, so the code fence is always closed.
func (m StructuredMessage) RenderMarkdown() string {
	var head, tail string
	if header := clean(m.Icon + " " + m.Title); header != "" {
		head = header + "\n\n"
	}
	if footer := clean(m.Footer); footer != "" {
		tail = footer + "\n"
	}
	if !m.Timestamp.IsZero() {
		tail += "Time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")
	}
	budget := maxStructuredMessageLen - len(head) - len(tail)
	return strings.TrimSpace(head + fenceSections(m.Sections, budget) + tail)
}

// fenceSections renders non-empty sections inside one code block no longer
// than budget bytes. It returns "" when nothing fits.
func fenceSections(secs []MessageSection, budget int) string {
	blocks := make([][]string, 0, len(secs))
	for _, sec := range secs {
		lines := make([]string, 0, len(sec.Lines)+1)
		for _, line := range sec.Lines {
			if c := clean(line); c != "" {
				lines = append(lines, "- "+c+"\n")
			}
		}
		if len(lines) == 0 {
			continue
		}
		if title := clean(sec.Title); title != "" {
			lines = append([]string{title + "\n"}, lines...)
		}
		blocks = append(blocks, lines)
	}
	room := budget - len(fenceOpen) - len(fenceClose) - len(elided)
	if len(blocks) == 0 || room <= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fenceOpen)
	used := 0
fill:
	for i, lines := range blocks {
		if i > 0 {
			lines = append([]string{"\n"}, lines...)
		}
		for _, line := range lines {
			if used+len(line) > room {
				b.WriteString(elided)
				break fill
			}
			b.WriteString(line)
			used += len(line)
		}
	}
	b.WriteString(fenceClose)
	return b.String()
}

// clean trims s, caps it at maxMessageLineLen and keeps it from closing the
// code fence early.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(text.Truncate(s, maxMessageLineLen), "```", "'''")
}
