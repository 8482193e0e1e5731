package slackconn

import (
	"regexp"
	"strings"
)

var (
	reHeading = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	reBullet  = regexp.MustCompile(`^(\s*)[*+-]\s+(.*)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reItalic  = regexp.MustCompile(`\*([^*\s][^*]*?)\*`)
	reStrike  = regexp.MustCompile(`~~(.+?)~~`)
	reLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

// boldMark stands in for Slack's bold asterisk until italics are rewritten.
const boldMark = "\x00"

// MarkdownToMrkdwn converts a chat reply's Markdown to Slack mrkdwn.
// Code spans and fenced blocks are passed through untouched.
func MarkdownToMrkdwn(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))

	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if m := reHeading.FindStringSubmatch(line); m != nil {
			out = append(out, "*"+mrkdwnInline(m[1])+"*")
			continue
		}
		if m := reBullet.FindStringSubmatch(line); m != nil {
			out = append(out, m[1]+"• "+mrkdwnInline(m[2]))
			continue
		}
		out = append(out, mrkdwnInline(line))
	}
	return strings.Join(out, "\n")
}

func mrkdwnInline(line string) string {
	parts := strings.Split(line, "`")
	if len(parts)%2 == 0 {
		last := len(parts) - 1
		parts[last-1] += "`" + parts[last]
		parts = parts[:last]
	}
	for i := 0; i < len(parts); i += 2 {
		parts[i] = mrkdwnText(parts[i])
	}
	return strings.Join(parts, "`")
}

func mrkdwnText(s string) string {
	s = reBold.ReplaceAllString(s, boldMark+"$1$2"+boldMark)
	s = reItalic.ReplaceAllString(s, "_${1}_")
	s = strings.ReplaceAll(s, boldMark, "*")
	s = reStrike.ReplaceAllString(s, "~$1~")
	return reLink.ReplaceAllString(s, "<$2|$1>")
}
