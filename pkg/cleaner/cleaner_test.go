package cleaner

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// readTestdata reads a file from the testdata directory
func readTestdata(t *testing.T, filename string) []byte {
	t.Helper()
	path := filepath.Join("testdata", filename)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return data
}

// --- NoopCleaner Tests ---

func TestNoopCleaner_Clean(t *testing.T) {
	c := NewNoop()

	tests := []struct {
		name  string
		input string
	}{
		{"empty_string", ""},
		{"plain_text", "Hello, World!"},
		{"html_content", "<html><body><h1>Title</h1></body></html>"},
		{"whitespace", "  \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Clean([]byte(tt.input))
			if string(got) != tt.input {
				t.Errorf("Clean() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestNoopCleaner_Name(t *testing.T) {
	if got := NewNoop().Name(); got != "noop" {
		t.Errorf("Name() = %q, want %q", got, "noop")
	}
}

// --- Built-in Step Tests ---

func TestImageCacheBusters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"jpg", `<img src="a.jpg?12345">`, `<img src="a.jpg">`},
		{"jpeg_upper", `<img src="a.JPEG?9">`, `<img src="a.JPEG">`},
		{"png", `url(/x/y.png?1700000000)`, `url(/x/y.png)`},
		{"gif", `b.Gif?0 c.gif?77`, `b.Gif c.gif`},
		{"non_numeric_kept", `a.png?v=3`, `a.png?v=3`},
		{"other_extension_kept", `a.webp?123 page.html?123`, `a.webp?123 page.html?123`},
		{"digits_then_more", `a.jpg?12&w=400`, `a.jpg&w=400`},
		{"no_query", `a.jpg`, `a.jpg`},
	}

	c := ImageCacheBusters()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(c.Clean([]byte(tt.input))); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHiddenFormState(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"viewstate", `a<input type="hidden" name="__VIEWSTATE" value="xyz" />b`, "ab"},
		{"generator", `a<input type="hidden" name="__VIEWSTATEGENERATOR" value="CA0B">b`, "ab"},
		{"eventvalidation_lower", `a<INPUT TYPE="hidden" NAME="__eventvalidation" VALUE="q">b`, "ab"},
		{"other_hidden_kept", `<input type="hidden" name="csrf" value="1">`, `<input type="hidden" name="csrf" value="1">`},
		{"shortest_tag", `<input name="keep"><input name="__VIEWSTATE" value="v"><input name="also">`, `<input name="keep"><input name="also">`},
	}

	c := HiddenFormState()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(c.Clean([]byte(tt.input))); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScripts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"inline", `a<script>var x = 1;</script>b`, "ab"},
		{"attributes", `a<script type="module" src="/m.js"></script>b`, "ab"},
		{"multiline", "a<script>\nvar x = 1;\nvar y = 2;\n</script>b", "ab"},
		{"uppercase", "a<SCRIPT>x()</SCRIPT>b", "ab"},
		{"several_nonGreedy", "<script>1</script>keep<script>2</script>", "keep"},
		{"unterminated_kept", "a<script>never closed", "a<script>never closed"},
	}

	c := Scripts()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(c.Clean([]byte(tt.input))); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComments(t *testing.T) {
	c := Comments()

	got := string(c.Clean([]byte("a<!-- one -->b<!--\n two\n-->c")))
	if got != "abc" {
		t.Errorf("Clean() = %q, want %q", got, "abc")
	}
}

func TestWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only_space", " \t\r\n\v\f ", ""},
		{"collapse", "a  b\n\n\tc", "a b c"},
		{"trim", "\n  a b  \n", "a b"},
		{"nbsp_kept", "a\u00a0b", "a\u00a0b"},
	}

	c := Whitespace()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(c.Clean([]byte(tt.input))); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// --- Pipeline Tests ---

func TestBuiltins_Order(t *testing.T) {
	want := []string{"image-cache-busters", "hidden-form-state", "scripts", "comments", "whitespace"}

	got := Builtins()
	if len(got) != len(want) {
		t.Fatalf("expected %d builtins, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.Name() != want[i] {
			t.Errorf("builtin %d = %q, want %q", i, c.Name(), want[i])
		}
	}
}

func TestNormalize_RedactsNoise(t *testing.T) {
	raw := readTestdata(t, "webforms.html")

	got := string(Normalize(raw))

	for _, noise := range []string{
		"sessionToken", "dataLayer", "trackPageview", "<script", "<SCRIPT",
		"web-07", "<!--",
		"__VIEWSTATE", "__EVENTVALIDATION", "/wEPDwUKLTk2MzYxMjQ0OWRk",
		"?1700000000",
	} {
		if strings.Contains(got, noise) {
			t.Errorf("normalized content still contains %q", noise)
		}
	}

	for _, signal := range []string{
		"<title>Council Notices</title>",
		`src="/images/banner.JPG"`,
		`src="/images/logo.png?v=3"`,
		"Road closure on Elm Street from 3 March.",
	} {
		if !strings.Contains(got, signal) {
			t.Errorf("normalized content lost %q", signal)
		}
	}

	if strings.ContainsAny(got, "\n\t") {
		t.Error("normalized content should be a single line")
	}
	if strings.Contains(got, "  ") {
		t.Error("normalized content should not contain whitespace runs")
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := readTestdata(t, "webforms.html")
	extra := NewErase("date", regexp.MustCompile(`\d+ March`))

	first := Normalize(raw, extra)
	second := Normalize(raw, extra)
	if !bytes.Equal(first, second) {
		t.Error("Normalize() is not deterministic")
	}
}

func TestNormalize_WhitespaceLayoutInsensitive(t *testing.T) {
	compact := []byte("<html><body> <h1>News</h1> <p>Item one</p> </body></html>")
	spread := []byte("<html>\n  <body>\n\n    <h1>News</h1>\n\t<p>Item one</p>\n  </body>\n</html>\n")

	reflowed := []byte("<html><body>\n\n\t<h1>News</h1>\r\n   <p>Item one</p>\n</body></html>")

	if !bytes.Equal(Normalize(compact), Normalize(reflowed)) {
		t.Errorf("expected identical canonical content:\n%q\n%q", Normalize(compact), Normalize(reflowed))
	}
	// Whitespace between two tags collapses to one space but is not removed.
	if bytes.Equal(Normalize(compact), Normalize(spread)) {
		t.Error("expected a space between <html> and <body> to remain significant")
	}
}

func TestNormalize_ExtraRunsAfterBuiltins(t *testing.T) {
	// The extra pattern matches a single space, which only exists after the
	// whitespace step collapsed the newline run.
	extra := NewErase("single-space-between-words", regexp.MustCompile(`Hello World`))

	got := Normalize([]byte("Hello\n\n   World!"), extra)
	if string(got) != "!" {
		t.Errorf("Normalize() = %q, want %q", got, "!")
	}
}

func TestNormalize_ExtraOrderMatters(t *testing.T) {
	first := NewRegex("a-to-b", regexp.MustCompile(`a`), "b")
	second := NewErase("drop-b", regexp.MustCompile(`b`))

	if got := string(Normalize([]byte("abc"), first, second)); got != "c" {
		t.Errorf("a-to-b then drop-b = %q, want %q", got, "c")
	}
	if got := string(Normalize([]byte("abc"), second, first)); got != "bc" {
		t.Errorf("drop-b then a-to-b = %q, want %q", got, "bc")
	}
}

// --- ChainCleaner Tests ---

func TestChainCleaner_Empty(t *testing.T) {
	c := NewChain()

	input := "unchanged content"
	if got := string(c.Clean([]byte(input))); got != input {
		t.Errorf("Clean() = %q, want %q", got, input)
	}
}

func TestChainCleaner_Append_DoesNotMutate(t *testing.T) {
	base := NewChain(NewNoop())
	extended := base.Append(Whitespace())

	if base.Len() != 1 {
		t.Errorf("base chain length = %d, want 1", base.Len())
	}
	if extended.Len() != 2 {
		t.Errorf("extended chain length = %d, want 2", extended.Len())
	}
}

func TestChainCleaner_Name(t *testing.T) {
	tests := []struct {
		name     string
		cleaners []Cleaner
		want     string
	}{
		{"empty", []Cleaner{}, "chain()"},
		{"single", []Cleaner{NewNoop()}, "chain(noop)"},
		{"double", []Cleaner{NewNoop(), Whitespace()}, "chain(noop->whitespace)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewChain(tt.cleaners...).Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegexCleaner_Pattern(t *testing.T) {
	c := NewErase("x", regexp.MustCompile(`foo\d+`))
	if c.Pattern() != `foo\d+` {
		t.Errorf("Pattern() = %q", c.Pattern())
	}
}
