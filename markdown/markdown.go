// Package markdown renders article bodies to HTML as templ components.
// It covers the Markdown subset authors use in articles: headings,
// paragraphs, lists, quotes, fenced code, rules, emphasis, inline code,
// links and images. Raw HTML in the source is always escaped.
package markdown

import (
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reHeading     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reOrderedItem = regexp.MustCompile(`^\d+[.)]\s+`)
	reRule        = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)

	reImage  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]*)\)`)
	reLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]*)\)`)
	reCode   = regexp.MustCompile("`([^`]+)`")
	reStrong = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reEm     = regexp.MustCompile(`\*([^*]+)\*|\b_([^_]+)_\b`)
)

// Markdown returns a component rendering src as HTML.
func Markdown(src string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Render(src))
		return err
	})
}

// Plaintext returns a component rendering src as escaped paragraphs. Blank
// lines separate paragraphs and single newlines become line breaks.
func Plaintext(src string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		src = strings.ReplaceAll(src, "\r\n", "\n")
		for _, para := range strings.Split(src, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			lines := strings.Split(para, "\n")
			for i, l := range lines {
				lines[i] = html.EscapeString(strings.TrimSpace(l))
			}
			b.WriteString("<p>")
			b.WriteString(strings.Join(lines, "<br/>"))
			b.WriteString("</p>")
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockCode
)

var closers = map[block]string{
	blockPara:    "</p>",
	blockList:    "</ul>",
	blockOrdered: "</ol>",
	blockQuote:   "</p></blockquote>",
	blockCode:    "</code></pre>",
}

type renderer struct {
	out  strings.Builder
	open block
}

func (r *renderer) close() {
	r.out.WriteString(closers[r.open])
	r.open = blockNone
}

// enter switches to blk, closing whatever block is open. It reports whether
// a new block was opened.
func (r *renderer) enter(blk block, opening string) bool {
	if r.open == blk {
		return false
	}
	r.close()
	r.out.WriteString(opening)
	r.open = blk
	return true
}

// Render converts src to HTML.
func Render(src string) string {
	r := &renderer{}
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		r.line(line)
	}
	r.close()
	return r.out.String()
}

func (r *renderer) line(line string) {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "```") {
		if r.open == blockCode {
			r.close()
			return
		}
		lang := strings.TrimSpace(trimmed[3:])
		opening := "<pre><code>"
		if lang != "" {
			opening = `<pre><code class="language-` + html.EscapeString(lang) + `">`
		}
		r.close()
		r.out.WriteString(opening)
		r.open = blockCode
		return
	}
	if r.open == blockCode {
		r.out.WriteString(html.EscapeString(line))
		r.out.WriteByte('\n')
		return
	}

	switch {
	case trimmed == "":
		r.close()
	case reRule.MatchString(trimmed):
		r.close()
		r.out.WriteString("<hr/>")
	case reHeading.MatchString(trimmed):
		m := reHeading.FindStringSubmatch(trimmed)
		level := strconv.Itoa(len(m[1]))
		r.close()
		r.out.WriteString("<h" + level + ">" + Inline(m[2]) + "</h" + level + ">")
	case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
		r.enter(blockList, "<ul>")
		r.out.WriteString("<li>" + Inline(trimmed[2:]) + "</li>")
	case reOrderedItem.MatchString(trimmed):
		r.enter(blockOrdered, "<ol>")
		r.out.WriteString("<li>" + Inline(reOrderedItem.ReplaceAllString(trimmed, "")) + "</li>")
	case strings.HasPrefix(trimmed, ">"):
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
		if !r.enter(blockQuote, "<blockquote><p>") {
			r.out.WriteByte(' ')
		}
		r.out.WriteString(Inline(text))
	default:
		if !r.enter(blockPara, "<p>") {
			r.out.WriteByte(' ')
		}
		r.out.WriteString(Inline(trimmed))
	}
}

// Inline escapes s and applies inline formatting.
func Inline(s string) string {
	s = html.EscapeString(s)

	// Code spans and generated tags are parked behind placeholders so
	// emphasis never rewrites their contents.
	var parked []string
	park := func(fragment string) string {
		parked = append(parked, fragment)
		return "\x00" + strconv.Itoa(len(parked)-1) + "\x00"
	}

	s = reCode.ReplaceAllStringFunc(s, func(m string) string {
		return park("<code>" + reCode.FindStringSubmatch(m)[1] + "</code>")
	})
	s = reImage.ReplaceAllStringFunc(s, func(m string) string {
		sub := reImage.FindStringSubmatch(m)
		src := SafeURL(sub[2])
		if src == "" {
			return sub[1]
		}
		return park(`<img src="` + src + `" alt="` + sub[1] + `" loading="lazy"/>`)
	})
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		sub := reLink.FindStringSubmatch(m)
		href := SafeURL(sub[2])
		if href == "" {
			return sub[1]
		}
		return park(`<a href="` + href + `">`) + sub[1] + park("</a>")
	})

	s = reStrong.ReplaceAllStringFunc(s, func(m string) string {
		sub := reStrong.FindStringSubmatch(m)
		return "<strong>" + sub[1] + sub[2] + "</strong>"
	})
	s = reEm.ReplaceAllStringFunc(s, func(m string) string {
		sub := reEm.FindStringSubmatch(m)
		return "<em>" + sub[1] + sub[2] + "</em>"
	})

	for i := len(parked) - 1; i >= 0; i-- {
		s = strings.Replace(s, "\x00"+strconv.Itoa(i)+"\x00", parked[i], 1)
	}
	return s
}

// SafeURL returns raw escaped for an attribute, or "" when its scheme is not
// allowed. Relative and fragment URLs pass.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil || u.Scheme == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	}
	return ""
}
