package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// styleProperty reads one property from the inline style attribute.
func styleProperty(sel *goquery.Selection, property string) (string, bool) {
	style, ok := sel.Attr("style")
	if !ok {
		return "", false
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// setStyleProperty writes one property into the inline style attribute,
// replacing an existing declaration for the same property and preserving the
// order of the others.
func setStyleProperty(sel *goquery.Selection, property, value string) {
	style, _ := sel.Attr("style")

	var decls []string
	replaced := false
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, found := strings.Cut(decl, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), property) {
			if !replaced {
				decls = append(decls, property+": "+value)
				replaced = true
			}
			continue
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}

	sel.SetAttr("style", strings.Join(decls, "; "))
}
