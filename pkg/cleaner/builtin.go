package cleaner

import (
	"bytes"
	"regexp"
)

// Noise patterns removed from every page, in pipeline order.
var (
	// A numeric query directly after an image extension is a cache buster.
	imageCacheBusterRe = regexp.MustCompile(`(?i)(\.(?:jpg|png|gif|jpeg))\?\d+`)

	// ASP.NET WebForms state carriers change on every request.
	hiddenFormStateRe = regexp.MustCompile(`(?i)<input[^>]+name="(?:__VIEWSTATE|__VIEWSTATEGENERATOR|__EVENTVALIDATION)"[^>]*>`)

	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)

	commentBlockRe = regexp.MustCompile(`(?s)<!--.*?-->`)

	// ASCII whitespace only; \s in RE2 does not include \v.
	whitespaceRunRe = regexp.MustCompile(`[\t\n\v\f\r ]+`)
)

// ImageCacheBusters strips "?123" suffixes after .jpg, .jpeg, .png and .gif,
// keeping the extension. Other query strings are untouched.
func ImageCacheBusters() Cleaner {
	return NewRegex("image-cache-busters", imageCacheBusterRe, "${1}")
}

// HiddenFormState removes the __VIEWSTATE, __VIEWSTATEGENERATOR and
// __EVENTVALIDATION input elements.
func HiddenFormState() Cleaner {
	return NewErase("hidden-form-state", hiddenFormStateRe)
}

// Scripts removes every <script> element including its body.
func Scripts() Cleaner {
	return NewErase("scripts", scriptBlockRe)
}

// Comments removes every <!-- --> block.
func Comments() Cleaner {
	return NewErase("comments", commentBlockRe)
}

// Whitespace collapses each whitespace run to one space and trims the ends.
func Whitespace() Cleaner {
	return NewFunc("whitespace", func(content []byte) []byte {
		return bytes.Trim(whitespaceRunRe.ReplaceAllLiteral(content, []byte(" ")), " ")
	})
}

// Builtins returns the fixed cleaning steps in the order they run.
func Builtins() []Cleaner {
	return []Cleaner{
		ImageCacheBusters(),
		HiddenFormState(),
		Scripts(),
		Comments(),
		Whitespace(),
	}
}

// Canonical returns the built-in pipeline followed by extra.
// Extra steps therefore operate on already normalized text.
func Canonical(extra ...Cleaner) *ChainCleaner {
	return NewChain(Builtins()...).Append(extra...)
}

// Normalize cleans raw with the built-in pipeline and then extra.
func Normalize(raw []byte, extra ...Cleaner) []byte {
	return Canonical(extra...).Clean(raw)
}
