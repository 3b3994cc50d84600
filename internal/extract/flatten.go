package extract

import (
	"fmt"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FlattenBody flattens an email body into a single text stream that keeps
// hyperlink targets inline: every anchor is emitted as
// "<anchor text> [LINK: <href>]", interleaved with the other visible text in
// document order. This flattened text is the only input the completion
// service sees, so the link markers are what let it recover article URLs.
//
// When the email has no HTML part, or the HTML cannot be parsed, the plain
// text body is returned as-is.
func FlattenBody(email core.RawEmail) string {
	if email.HTMLBody == "" {
		return email.TextBody
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(email.HTMLBody))
	if err != nil {
		logger.Warn("Failed to parse HTML body, falling back to text", "subject", email.Subject)
		return email.TextBody
	}

	var parts []string
	for _, node := range doc.Selection.Nodes {
		collectText(node, &parts)
	}

	flattened := strings.Join(parts, " ")
	if strings.TrimSpace(flattened) == "" {
		return email.TextBody
	}
	return flattened
}

// collectText walks the node tree in document order. Anchors are emitted as a
// single "text [LINK: href]" unit and not descended into, so their text is
// not duplicated.
func collectText(node *html.Node, parts *[]string) {
	if node.Type == html.ElementNode {
		switch node.Data {
		case "script", "style", "head":
			return
		case "a":
			if href, ok := attr(node, "href"); ok && href != "" {
				text := strings.TrimSpace(nodeText(node))
				*parts = append(*parts, fmt.Sprintf("%s [LINK: %s]", text, href))
				return
			}
		}
	}

	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		} else {
			sb.WriteString(nodeText(child))
		}
	}
	return sb.String()
}

func attr(node *html.Node, name string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
