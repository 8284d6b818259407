package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

const questionPage = `<html><head><title>Cadastro</title></head><body><form>
<fieldset><legend>Nome *</legend><input id="name" type="text"></fieldset>
<fieldset><legend>Unidade</legend><select id="unit"><option>Norte</option><option>Sul</option></select></fieldset>
</form></body></html>`

func TestCrawlLeavesPageUsable(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a browser")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no browser found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		w.Write([]byte(questionPage))
	}))
	defer srv.Close()

	u, err := launcher.New().Bin(bin).Headless(true).NoSandbox(true).Launch()
	require.NoError(t, err)
	b := rod.New().ControlURL(u)
	require.NoError(t, b.Connect())
	defer b.Close()
	page, err := b.Page(proto.TargetCreateTarget{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m, err := Crawl(ctx, page, srv.URL, Options{Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.Equal(t, "Cadastro", m.Title)
	require.Len(t, m.Questions, 2)
	require.Equal(t, "#name", m.Questions[0].Locator)
	require.Equal(t, "Nome", m.Questions[0].Title)
	require.Equal(t, []string{"Norte", "Sul"}, m.Questions[1].Options)

	// the bounded waits inside Crawl must not outlive it
	require.NoError(t, page.GetContext().Err())
	res, err := page.Eval(`() => document.querySelectorAll('fieldset').length`)
	require.NoError(t, err)
	require.Equal(t, 2, res.Value.Int())
}
