// Package htmlclean strips markup from fetched HTML so the remaining text can
// be tokenised.
package htmlclean

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// BlockElements are removed together with everything they contain.
var BlockElements = []string{"head", "style", "script", "noscript", "iframe", "svg"}

// entityPattern matches references html.UnescapeString could not decode.
var entityPattern = regexp.MustCompile(`&\S+?;`)

// filter copies markup through the tokenizer, dropping comments and whole
// elements. Kept tokens are written back byte for byte.
type filter struct {
	comments bool
	elements map[string]bool
}

func newFilter(comments bool, elements ...string) filter {
	f := filter{comments: comments, elements: make(map[string]bool, len(elements))}
	for _, name := range elements {
		f.elements[strings.ToLower(name)] = true
	}
	return f
}

// apply removes what f matches, leaving a space in its place. An element
// that is never closed runs to the end of src.
func (f filter) apply(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	b.Grow(len(src))

	var skip string
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())
		var name string
		if tt == html.StartTagToken || tt == html.EndTagToken {
			n, _ := z.TagName()
			name = string(n)
		}

		if skip != "" {
			switch {
			case tt == html.StartTagToken && name == skip:
				depth++
			case tt == html.EndTagToken && name == skip:
				if depth--; depth == 0 {
					skip = ""
					b.WriteByte(' ')
				}
			}
			continue
		}

		switch {
		case tt == html.CommentToken && f.comments:
			b.WriteByte(' ')
		case tt == html.StartTagToken && f.elements[name]:
			skip, depth = name, 1
		default:
			b.WriteString(raw)
		}
	}
}

// StripComments removes HTML comments.
func StripComments(src string) string {
	return newFilter(true).apply(src)
}

// StripElement removes every name element and its content, matching the tag
// name case-insensitively. Elements whose name merely starts with name are
// kept.
func StripElement(src, name string) string {
	return newFilter(false, name).apply(src)
}

// StripBlockElements removes comments and all BlockElements. Everything else
// is left as markup for link extraction.
func StripBlockElements(src string) string {
	return newFilter(true, BlockElements...).apply(src)
}

// StripTags keeps only text, replacing every tag, comment and doctype with a
// space. Character references in the text are left as written.
func StripTags(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	b.Grow(len(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		default:
			b.WriteByte(' ')
		}
	}
}

// StripEntities decodes known character references and drops any that are
// left undecoded.
func StripEntities(src string) string {
	return entityPattern.ReplaceAllString(html.UnescapeString(src), " ")
}

// StripHTML removes comments, block elements, tags and entities.
func StripHTML(src string) string {
	return StripEntities(StripTags(StripBlockElements(src)))
}
