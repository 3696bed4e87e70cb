package linkfinder

import (
	"net/url"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestListURLs(t *testing.T) {
	base := mustParse(t, "https://Example.com/docs/guide/index.html")
	src := `<p>
<a href="intro.html#top">intro</a>
<A class="nav" HREF="/api/">api</A>
<a name="anchor-only">no href</a>
<a href="mailto:someone@example.com">mail</a>
<a href="javascript:void(0)">js</a>
<a href="http://Other.ORG">other</a>
<a href="../faq.html?q=go lang&x=1">faq</a>
<a href="intro.html">intro again</a>
<link href="/style.css">
</p>`

	got := ListURLs(base, src)
	want := []string{
		"https://example.com/docs/guide/intro.html",
		"https://example.com/api/",
		"http://other.org/",
		"https://example.com/docs/faq.html?q=go%20lang&x=1",
		"https://example.com/docs/guide/intro.html",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListURLs() =\n%v\nwant\n%v", got, want)
	}
}

func TestListURLsEmpty(t *testing.T) {
	if got := ListURLs(mustParse(t, "http://a.com/"), "<p>no links</p>"); len(got) != 0 {
		t.Errorf("ListURLs() = %v, want none", got)
	}
}

func TestResolveRejects(t *testing.T) {
	base := mustParse(t, "http://a.com/")
	for _, href := range []string{"", "   ", "ftp://a.com/file", "%zz"} {
		if got, ok := Resolve(base, href); ok {
			t.Errorf("Resolve(%q) = %q, want rejection", href, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://A.com/Path#frag", "http://a.com/Path"},
		{"https://a.com", "https://a.com/"},
		{"https://a.com/x?b=2&a=1", "https://a.com/x?b=2&a=1"},
	}
	for _, tt := range tests {
		if got := Normalize(mustParse(t, tt.in)); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
