package location

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces a directions step such as "Turn <b>left</b> onto
// <b>İstiklal Cd.</b><div>Pass by the bank</div>" to plain text. Block
// elements become a single separating space.
func StripHTML(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "div", "br", "p", "li":
				b.WriteByte(' ')
			}
		}
	}
}
