package crawler

import "strings"

// Kind is the interaction style of a question
type Kind string

const (
	KindText      Kind = "text"      // single-line input
	KindParagraph Kind = "paragraph" // textarea
	KindDropdown  Kind = "dropdown"  // listbox opened by a click
	KindChoice    Kind = "choice"    // radio or checkbox options always rendered
	KindOther     Kind = "other"
)

// FormMap is the analyzed structure of a live form
type FormMap struct {
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Question is one question block of the form
type Question struct {
	Locator string   `json:"locator"` // CSS selector of the control to fill or open
	Title   string   `json:"title"`
	Kind    Kind     `json:"kind"`
	Options []string `json:"options,omitempty"`
}

// Has reports whether locator belongs to one of the crawled questions
func (m *FormMap) Has(locator string) bool {
	for _, q := range m.Questions {
		if q.Locator == locator {
			return true
		}
	}
	return false
}

// kindOf classifies a control from its tag, ARIA role and input type
func kindOf(tag, role, inputType string) Kind {
	tag = strings.ToLower(tag)
	switch {
	case tag == "textarea":
		return KindParagraph
	case tag == "input" && (inputType == "radio" || inputType == "checkbox"):
		return KindChoice
	case tag == "input":
		return KindText
	case tag == "select" || role == "listbox":
		return KindDropdown
	case role == "radiogroup" || role == "group" || role == "radio" || role == "checkbox":
		return KindChoice
	default:
		return KindOther
	}
}
