package htmlclean

import (
	"strings"
	"testing"
)

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestStripComments(t *testing.T) {
	got := squash(StripComments("a<!-- one\ntwo -->b<!---->c"))
	if got != "a b c" {
		t.Errorf("StripComments() = %q", got)
	}
}

func TestStripElement(t *testing.T) {
	tests := []struct {
		name    string
		element string
		src     string
		want    string
	}{
		{"simple", "style", "x<style>body{}</style>y", "x y"},
		{"attributes and case", "script", `x<SCRIPT type="text/js">var a = "<b>";</script >y`, "x y"},
		{"multiline", "style", "x<style>\n.a{}\n</style>y", "x y"},
		{"prefix name kept", "head", "x<header>h</header>y", "x<header>h</header>y"},
		{"lazy between elements", "style", "<style>a</style>keep<style>b</style>", "keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := squash(StripElement(tt.src, tt.element)); got != tt.want {
				t.Errorf("StripElement() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripBlockElements(t *testing.T) {
	src := `<html><head><title>T</title></head><body><!-- <a href="/hidden">x</a> -->
<noscript>enable js</noscript><p>Hello <a href="/x">world</a></p><svg><text>v</text></svg></body></html>`
	got := StripBlockElements(src)
	for _, gone := range []string{"<title>", "hidden", "enable js", "<text>"} {
		if strings.Contains(got, gone) {
			t.Errorf("StripBlockElements() kept %q: %s", gone, got)
		}
	}
	if !strings.Contains(got, `<a href="/x">world</a>`) {
		t.Errorf("StripBlockElements() removed body links: %s", got)
	}
}

func TestStripTagsAndEntities(t *testing.T) {
	got := squash(StripHTML(`<p class="x">Fish &amp; chips&nbsp;cost &pound;5 &bogus; ok</p>`))
	want := "Fish & chips cost £5 ok"
	if got != squash(want) {
		t.Errorf("StripHTML() = %q, want %q", got, squash(want))
	}
}

func TestStripIsIdempotent(t *testing.T) {
	src := "<div>a &lt;b&gt; <i>c</i></div>"
	once := StripTags(src)
	if twice := StripTags(once); twice != once {
		t.Errorf("StripTags not idempotent: %q then %q", once, twice)
	}
}

func TestQuotedGreaterThanInAttribute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"anchor title", `<a title="x>junk">fox</a>`, "fox"},
		{"single quotes", `<img alt='a > b'>jump`, "jump"},
		{"script attribute", `<script data-x="1>2">var junk;</script>fox`, "fox"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := squash(StripHTML(tt.src)); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestStripElementNestingAndUnclosed(t *testing.T) {
	tests := []struct {
		name    string
		element string
		src     string
		want    string
	}{
		{"nested", "svg", "a<svg><g><svg>x</svg>y</g></svg>b", "a b"},
		{"self closing", "svg", "a<svg/>b", "a<svg/>b"},
		{"unclosed", "iframe", "a<iframe>b c", "a"},
		{"stray end tag kept", "head", "a</head>b", "a</head>b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := squash(StripElement(tt.src, tt.element)); got != tt.want {
				t.Errorf("StripElement() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripBlockElementsKeepsMarkupVerbatim(t *testing.T) {
	src := `<p data-q="a>b">Hi <A HREF="/Up">there</A></p>`
	if got := StripBlockElements(src); got != src {
		t.Errorf("StripBlockElements() = %q, want input unchanged", got)
	}
}
