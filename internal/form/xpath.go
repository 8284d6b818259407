package form

import (
	"strings"
)

// normalizeSpace collapses whitespace runs to one space and trims, like
// XPath's normalize-space()
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// literal quotes s as an XPath string literal. XPath 1.0 has no escape
// sequence, so text holding both quote kinds is built with concat().
func literal(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

func textEquals(text string) string {
	return "normalize-space(text())=" + literal(text)
}

// menuOptionXPath matches an entry of an opened dropdown listbox
func menuOptionXPath(value string) string {
	return `//div[@role="option"]//span[` + textEquals(value) + `]`
}

// visibleOptionXPath matches an always-rendered option in any of the three
// shapes forms use: radio row (by value attribute or by label text),
// label-wrapped option, list-item option
func visibleOptionXPath(value string) string {
	v := literal(value)
	shapes := []string{
		`//div[contains(@role, "radio") and (normalize-space(@data-value)=` + v + ` or normalize-space(@aria-label)=` + v + `)]`,
		`//div[@role="radio"][.//span[` + textEquals(value) + `]]`,
		`//label//span[` + textEquals(value) + `]`,
		`//div[@role="listitem"]//span[` + textEquals(value) + `]`,
	}
	return strings.Join(shapes, " | ")
}

// buttonXPath matches a role=button container whose label is exactly label
func buttonXPath(label string) string {
	return `//div[@role="button"][.//*[` + textEquals(label) + `]]`
}

func confirmationXPath(texts []string) string {
	shapes := make([]string, 0, len(texts))
	for _, t := range texts {
		shapes = append(shapes, `//div[contains(text(), `+literal(t)+`)]`)
	}
	return strings.Join(shapes, " | ")
}

func anotherResponseXPath(label string) string {
	return `//a[contains(text(), ` + literal(label) + `)] | ` + buttonXPath(label)
}
