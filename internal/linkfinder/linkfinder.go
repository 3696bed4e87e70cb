// Package linkfinder extracts absolute, normalised HTTP(S) links from the
// anchor tags of an HTML document.
package linkfinder

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ListURLs returns the href of every anchor in src resolved against base, in
// document order. Links that do not resolve to http or https are skipped.
// Duplicates are kept.
func ListURLs(base *url.URL, src string) []string {
	var links []string
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}
			for _, attr := range tok.Attr {
				if !strings.EqualFold(attr.Key, "href") {
					continue
				}
				if link, ok := Resolve(base, attr.Val); ok {
					links = append(links, link)
				}
				break
			}
		}
	}
}

// Resolve turns href into a normalised absolute URL relative to base.
func Resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if !IsHTTP(u) {
		return "", false
	}
	return Normalize(u), true
}

// IsHTTP reports whether u is an absolute http or https URL with a host.
func IsHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Normalize drops the fragment, lower-cases scheme and host and
// percent-encodes bytes that may not appear in a query.
func Normalize(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	n.RawQuery = encodeQuery(n.RawQuery)
	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

const upperhex = "0123456789ABCDEF"

func encodeQuery(q string) string {
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		c := q[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func shouldEscape(c byte) bool {
	if c <= ' ' || c >= 0x7f {
		return true
	}
	switch c {
	case '"', '<', '>', '\\', '^', '`', '{', '|', '}':
		return true
	}
	return false
}
