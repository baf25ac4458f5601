package yhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"CatalogScraper/internal/metrics"
	"CatalogScraper/pkg/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	testListingFormat = "http://listing.test/c%s/p%d"
	testPriceURL      = "http://price.test/truestock"
	testPlaceholder   = "http://image.yihaodianimg.com/search/global/images/blank.gif"
)

var listingURLRegex = regexp.MustCompile(`^http://listing\.test/c(\w+)/p(\d+)$`)

// fakeGetter routes requests to a handler and records every URL it was asked for.
type fakeGetter struct {
	mu      sync.Mutex
	calls   []string
	cookies []*http.Cookie
	handler func(rawURL string) ([]byte, error)
}

func (f *fakeGetter) Get(ctx context.Context, rawURL string, cookies ...*http.Cookie) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.cookies = append(f.cookies, cookies...)
	f.mu.Unlock()
	return f.handler(rawURL)
}

func (f *fakeGetter) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfigs() (config.ScraperConfig, config.YhdConfig) {
	cfg := config.Default()
	cfg.Yhd.ListingURLFormat = testListingFormat
	cfg.Yhd.PriceURL = testPriceURL
	return cfg.Scraper, cfg.Yhd
}

func newTestScraper(getter *fakeGetter, workers int) (*YhdScraper, *metrics.Metrics) {
	scraperConf, yhdConf := testConfigs()
	m := metrics.NewNop()
	return New(getter, scraperConf, yhdConf, workers, testLogger(), m), m
}

// entry renders one listing entry in the origin's markup.
func entry(id, name, price string) string {
	return fmt.Sprintf(`<li class="producteg" id="producteg_%s">
  <div class="itemBox">
    <a class="img" href="/item/%s"><img src="%s" original="http://img.test/%s.jpg"/></a>
    <a class="title" href="http://item.yhd.com/item/%s" title="ignored">%s</a>
    <p class="price"><span>¥<strong>%s</strong></span></p>
  </div>
</li>`, id, id, testPlaceholder, id, id, name, price)
}

func listingHTML(totalPages int, entries ...string) string {
	return fmt.Sprintf(`<div class="search_list"><ul>%s</ul></div><div class="turnPage"><span class="pageOp">共%d页 到第<input/>页</span></div>`,
		strings.Join(entries, "\n"), totalPages)
}

func emptyHTML() string {
	return `<div class="emptyResultTips mb">抱歉，没有找到相关的商品</div>`
}

func envelope(t testing.TB, fragment string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{"value": fragment})
	require.NoError(t, err)
	return body
}

func mustDoc(t testing.TB, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	return doc
}

// pageOf extracts category and page from a test listing URL.
func pageOf(rawURL string) (string, int, bool) {
	m := listingURLRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return "", 0, false
	}
	page, _ := strconv.Atoi(m[2])
	return m[1], page, true
}

// priceIDs returns the productIds query values of a test price URL.
func priceIDs(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return u.Query()["productIds"]
}

// echoPrices answers a price request with a fixed price for every id it is asked about.
func echoPrices(rawURL string, price string) []byte {
	var items []string
	for _, id := range priceIDs(rawURL) {
		items = append(items, fmt.Sprintf(`{"productId":%q,"productPrice":%s}`, id, price))
	}
	return []byte("[" + strings.Join(items, ",") + "]")
}
