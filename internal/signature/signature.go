// Package signature computes a structural, content-independent hash of a
// page's DOM shape, used as the cache key for selector plans.
package signature

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxElements = 200

// Compute parses html and returns the MD5 hex digest of the structural
// signature: the first 200 elements in document order, each rendered as
// "tag:sorted.class.tokens", joined with "|". The result is invariant to
// text content, whitespace, attribute order, and class-token order, and
// sensitive to tag/class structure.
func Compute(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var parts []string
	doc.Find("*").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxElements {
			return false
		}
		node := sel.Get(0)
		classes := classTokens(sel)
		parts = append(parts, node.Data+":"+strings.Join(classes, "."))
		return true
	})

	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}

func classTokens(sel *goquery.Selection) []string {
	class, _ := sel.Attr("class")
	if class == "" {
		return nil
	}
	tokens := strings.Fields(class)
	sort.Strings(tokens)
	return tokens
}
