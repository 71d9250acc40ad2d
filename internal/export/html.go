package export

import (
	"html"
	"regexp"
	"strings"
)

// The documents this renders come out of our own generator, so only that
// grammar is supported: headings, blockquotes, checkbox and bullet lists,
// ordered lists, pipe tables, bold key-value lines, and rules.

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reHTMLOrdered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	reHTMLCheck   = regexp.MustCompile(`^- \[([ xX])\]\s+(.+)$`)
)

type htmlWriter struct {
	out     strings.Builder
	inUL    bool
	inOL    bool
	inTable bool
	tableHd bool
}

// MarkdownToHTML converts generated document markdown to an HTML fragment.
func MarkdownToHTML(markdown string) string {
	w := &htmlWriter{}
	for _, line := range strings.Split(markdown, "\n") {
		w.line(strings.TrimRight(line, " \t"))
	}
	w.closeBlocks()
	return w.out.String()
}

func (w *htmlWriter) line(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		w.closeBlocks()
	case strings.HasPrefix(trimmed, "### "):
		w.closeBlocks()
		w.out.WriteString("<h3>" + inline(strings.TrimPrefix(trimmed, "### ")) + "</h3>\n")
	case strings.HasPrefix(trimmed, "## "):
		w.closeBlocks()
		w.out.WriteString("<h2>" + inline(strings.TrimPrefix(trimmed, "## ")) + "</h2>\n")
	case strings.HasPrefix(trimmed, "# "):
		w.closeBlocks()
		w.out.WriteString("<h1>" + inline(strings.TrimPrefix(trimmed, "# ")) + "</h1>\n")
	case trimmed == "---":
		w.closeBlocks()
		w.out.WriteString("<hr>\n")
	case strings.HasPrefix(trimmed, "> "):
		w.closeBlocks()
		w.out.WriteString("<blockquote><p>" + inline(strings.TrimPrefix(trimmed, "> ")) + "</p></blockquote>\n")
	case strings.HasPrefix(trimmed, "|"):
		w.tableLine(trimmed)
	case reHTMLCheck.MatchString(trimmed):
		match := reHTMLCheck.FindStringSubmatch(trimmed)
		w.openUL()
		mark := "&#9744;"
		if match[1] != " " {
			mark = "&#9745;"
		}
		w.out.WriteString("<li>" + mark + " " + inline(match[2]) + "</li>\n")
	case strings.HasPrefix(trimmed, "- "):
		w.openUL()
		w.out.WriteString("<li>" + inline(strings.TrimPrefix(trimmed, "- ")) + "</li>\n")
	case reHTMLOrdered.MatchString(trimmed):
		match := reHTMLOrdered.FindStringSubmatch(trimmed)
		w.openOL()
		w.out.WriteString("<li>" + inline(match[1]) + "</li>\n")
	default:
		w.closeBlocks()
		w.out.WriteString("<p>" + inline(trimmed) + "</p>\n")
	}
}

func (w *htmlWriter) tableLine(trimmed string) {
	cells := strings.Split(strings.Trim(trimmed, "|"), "|")
	separator := true
	for _, cell := range cells {
		if strings.Trim(strings.TrimSpace(cell), "-: ") != "" {
			separator = false
			break
		}
	}
	if separator {
		return
	}
	if !w.inTable {
		w.closeBlocks()
		w.out.WriteString("<table>\n")
		w.inTable = true
		w.tableHd = true
	}
	tag := "td"
	if w.tableHd {
		tag = "th"
		w.tableHd = false
	}
	w.out.WriteString("<tr>")
	for _, cell := range cells {
		w.out.WriteString("<" + tag + ">" + inline(strings.TrimSpace(cell)) + "</" + tag + ">")
	}
	w.out.WriteString("</tr>\n")
}

func (w *htmlWriter) openUL() {
	if w.inUL {
		return
	}
	w.closeBlocks()
	w.out.WriteString("<ul>\n")
	w.inUL = true
}

func (w *htmlWriter) openOL() {
	if w.inOL {
		return
	}
	w.closeBlocks()
	w.out.WriteString("<ol>\n")
	w.inOL = true
}

func (w *htmlWriter) closeBlocks() {
	if w.inUL {
		w.out.WriteString("</ul>\n")
		w.inUL = false
	}
	if w.inOL {
		w.out.WriteString("</ol>\n")
		w.inOL = false
	}
	if w.inTable {
		w.out.WriteString("</table>\n")
		w.inTable = false
	}
}

// inline escapes a text run and applies bold and full-line emphasis.
func inline(text string) string {
	escaped := html.EscapeString(text)
	escaped = reBold.ReplaceAllString(escaped, "<strong>$1</strong>")
	if strings.HasPrefix(escaped, "*") && strings.HasSuffix(escaped, "*") && len(escaped) > 2 && !strings.Contains(escaped, "<strong>") {
		escaped = "<em>" + strings.Trim(escaped, "*") + "</em>"
	}
	return escaped
}
