package htmlutil

import (
	"bytes"
	"strings"

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// ScriptContaining returns the text of the first <script> element whose
// contents contain marker.
func ScriptContaining(doc *goquery.Document, marker string) (string, bool) {
	for _, script := range doc.Find("script").Nodes {
		text := GetText(script)
		if !strings.Contains(text, marker) {
			continue
		}
		return text, true
	}
	return "", false
}

// FormInputs collects the name/value pairs of every input of the first form
// in the document. Inputs missing either attribute are skipped.
func FormInputs(doc *goquery.Document) map[string]string {
	fields := map[string]string{}
	doc.Find("form").First().Find("input").Each(func(_ int, s *goquery.Selection) {
		name, hasName := s.Attr("name")
		value, hasValue := s.Attr("value")
		if !hasName || !hasValue {
			return
		}
		fields[name] = value
	})
	return fields
}
