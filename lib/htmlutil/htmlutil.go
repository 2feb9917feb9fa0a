package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// cells are separated so adjacent <td> text doesn't run together
	if node.Type == html.ElementNode && (node.Data == "td" || node.Data == "th") {
		buffer.WriteByte(' ')
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText returns the visible text of a node with non printable runes
// removed and whitespace runs collapsed to single spaces.
func CleanText(node *html.Node) string {
	text := GetText(node)
	text = removeNonPrintable(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.Trim(text, " \t\n\r")
}

// RowTexts returns the cleaned text of every node in the selection, skipping
// empty ones.
func RowTexts(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		text := CleanText(n)
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
