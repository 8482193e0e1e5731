package telegram

import (
	"regexp"
	"strings"
)

// Telegram's HTML parse mode supports only a handful of tags, so block
// markup is flattened: headings become bold lines and list items bullets.

var (
	reHeading = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	reBullet  = regexp.MustCompile(`^(\s*)[*+-]\s+(.*)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reItalic  = regexp.MustCompile(`\*([^*\s][^*]*?)\*|\b_([^_\s][^_]*?)_\b`)
	reLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

const bullet = "• "

// MarkdownToTelegramHTML converts a chat reply's Markdown to Telegram HTML.
func MarkdownToTelegramHTML(md string) string {
	return render(md, htmlStyle{})
}

// StripMarkdown returns md as plain text, for when Telegram rejects the HTML.
func StripMarkdown(md string) string {
	return render(md, plainStyle{})
}

// style decides how each construct is written out.
type style interface {
	fence(lang string, body []string) string
	heading(text string) string
	text(s string) string
	code(s string) string
}

func render(md string, st style) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if lang, ok := strings.CutPrefix(line, "```"); ok {
			var body []string
			for i++; i < len(lines) && !strings.HasPrefix(lines[i], "```"); i++ {
				body = append(body, lines[i])
			}
			out = append(out, st.fence(strings.TrimSpace(lang), body))
			continue
		}
		if m := reHeading.FindStringSubmatch(line); m != nil {
			out = append(out, st.heading(inline(m[1], st)))
			continue
		}
		if m := reBullet.FindStringSubmatch(line); m != nil {
			out = append(out, m[1]+bullet+inline(m[2], st))
			continue
		}
		out = append(out, inline(line, st))
	}
	return strings.Join(out, "\n")
}

// inline formats one line. Backticks split it into alternating text and
// code segments; an unmatched backtick is kept as text.
func inline(line string, st style) string {
	parts := strings.Split(line, "`")
	if len(parts)%2 == 0 {
		last := len(parts) - 1
		parts[last-1] += "`" + parts[last]
		parts = parts[:last]
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString(st.code(p))
		} else {
			b.WriteString(st.text(p))
		}
	}
	return b.String()
}

type htmlStyle struct{}

func (htmlStyle) fence(lang string, body []string) string {
	open := "<pre><code>"
	if lang != "" {
		open = `<pre><code class="language-` + escapeHTML(lang) + `">`
	}
	return open + escapeHTML(strings.Join(body, "\n")) + "</code></pre>"
}

func (htmlStyle) heading(text string) string { return "<b>" + text + "</b>" }

func (htmlStyle) code(s string) string { return "<code>" + escapeHTML(s) + "</code>" }

func (htmlStyle) text(s string) string {
	s = escapeHTML(s)
	s = reBold.ReplaceAllString(s, "<b>$1$2</b>")
	s = reItalic.ReplaceAllString(s, "<i>$1$2</i>")
	return reLink.ReplaceAllString(s, `<a href="$2">$1</a>`)
}

type plainStyle struct{}

func (plainStyle) fence(_ string, body []string) string { return strings.Join(body, "\n") }

func (plainStyle) heading(text string) string { return text }

func (plainStyle) code(s string) string { return s }

func (plainStyle) text(s string) string {
	s = reBold.ReplaceAllString(s, "$1$2")
	s = reItalic.ReplaceAllString(s, "$1$2")
	return reLink.ReplaceAllString(s, "$1 ($2)")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
