package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserGetter loads each URL in a stealth page of a shared headless browser and returns
// the rendered body text. Browsers show a JSON response as plain text, so envelope decoding
// works the same as with HTTPGetter.
type BrowserGetter struct {
	browser *rod.Browser
	timeout time.Duration
}

// NewBrowserGetter launches a browser. Close must be called to release it.
func NewBrowserGetter(headless bool, timeout time.Duration) (*BrowserGetter, error) {
	controlURL, err := launcher.New().Headless(headless).Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, errors.Wrap(err, "connect browser")
	}
	return &BrowserGetter{browser: browser, timeout: timeout}, nil
}

func (g *BrowserGetter) Get(ctx context.Context, rawURL string, cookies ...*http.Cookie) ([]byte, error) {
	page, err := stealth.Page(g.browser)
	if err != nil {
		return nil, errors.Wrap(err, "open page")
	}
	defer page.Close()

	page = page.Context(ctx)
	if g.timeout > 0 {
		page = page.Timeout(g.timeout)
	}

	if len(cookies) > 0 {
		params := make([]*proto.NetworkCookieParam, 0, len(cookies))
		for _, c := range cookies {
			params = append(params, &proto.NetworkCookieParam{Name: c.Name, Value: c.Value, URL: rawURL})
		}
		if err := page.SetCookies(params); err != nil {
			return nil, errors.Wrap(err, "set cookies")
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		return nil, errors.Wrapf(err, "navigate %s", rawURL)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errors.Wrapf(err, "wait load %s", rawURL)
	}

	body, err := page.Element("body")
	if err != nil {
		return nil, errors.Wrap(err, "find body")
	}
	text, err := body.Text()
	if err != nil {
		return nil, errors.Wrap(err, "read body text")
	}
	return []byte(text), nil
}

func (g *BrowserGetter) Close() error {
	return g.browser.Close()
}
