package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		tag, role, typ string
		want           Kind
	}{
		{"INPUT", "", "text", KindText},
		{"input", "", "", KindText},
		{"input", "", "radio", KindChoice},
		{"textarea", "", "", KindParagraph},
		{"div", "listbox", "", KindDropdown},
		{"select", "", "", KindDropdown},
		{"div", "radiogroup", "", KindChoice},
		{"div", "", "", KindOther},
	}
	for _, c := range cases {
		require.Equal(t, c.want, kindOf(c.tag, c.role, c.typ), "%s/%s/%s", c.tag, c.role, c.typ)
	}
}

func TestFormMapHas(t *testing.T) {
	m := &FormMap{Questions: []Question{{Locator: "#unit"}, {Locator: "#name"}}}
	require.True(t, m.Has("#name"))
	require.False(t, m.Has("#other"))
}
