package worker

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from an article field, collapsing whitespace runs
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// firstText returns the first field that is non-blank once stripped
func firstText(fields ...string) string {
	for _, f := range fields {
		if t := plainText(f); t != "" {
			return t
		}
	}
	return ""
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
