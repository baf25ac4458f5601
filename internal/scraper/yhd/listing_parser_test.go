package yhd

import (
	"strings"
	"testing"

	"CatalogScraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmptyResult(t *testing.T) {
	assert.True(t, IsEmptyResult(mustDoc(t, emptyHTML())))
	assert.False(t, IsEmptyResult(mustDoc(t, listingHTML(3, entry("1", "Widget", "9.90")))))
}

func TestParseTotalPages(t *testing.T) {
	pages, err := ParseTotalPages(mustDoc(t, `<span class="pageOp">共12页</span>`))
	require.NoError(t, err)
	assert.Equal(t, 12, pages)

	pages, err = ParseTotalPages(mustDoc(t, listingHTML(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestParseTotalPages_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		fragment string
		piece    string
	}{
		{"Missing Indicator", `<div>no pager</div>`, "total pages element (span.pageOp)"},
		{"Pattern Mismatch", `<span class="pageOp">page 1 of 12</span>`, "total pages"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTotalPages(mustDoc(t, tc.fragment))
			require.ErrorIs(t, err, models.ErrStructure)

			var parseErr *models.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.piece, parseErr.Piece)
		})
	}
}

func TestParseListing(t *testing.T) {
	parser := NewListingParser(testPlaceholder)
	doc := mustDoc(t, listingHTML(1,
		entry("1001", "Widget<!--promo-->", "128.50"),
		entry("1002", "Gadget &amp; Co", "¥ 9.90"),
	))

	products, err := parser.ParseListing(doc)
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "1001", first.ID)
	assert.Equal(t, "Widget", first.Name)
	assert.Equal(t, "http://item.yhd.com/item/1001", first.URL)
	// placeholder src falls back to the original attribute
	assert.Equal(t, "http://img.test/1001.jpg", first.ImageURL)
	assert.Equal(t, "128.5", first.Price.String())
	assert.Equal(t, SourceSite, first.SourceSite)

	assert.Equal(t, "Gadget & Co", products[1].Name)
	assert.Equal(t, "9.9", products[1].Price.String())
}

func TestParseListing_NoEntries(t *testing.T) {
	products, err := NewListingParser(testPlaceholder).ParseListing(mustDoc(t, listingHTML(1)))
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestParseListing_Idempotent(t *testing.T) {
	parser := NewListingParser(testPlaceholder)
	fragment := listingHTML(1, entry("1", "A", "1.00"), entry("2", "B", "2.00"), entry("3", "C", "3.00"))

	byID := func(t *testing.T) map[string]models.Product {
		products, err := parser.ParseListing(mustDoc(t, fragment))
		require.NoError(t, err)
		out := make(map[string]models.Product)
		for _, p := range products {
			out[p.ID] = p
		}
		return out
	}

	assert.Equal(t, byID(t), byID(t))
}

func TestParseListing_KeepsRealImageSource(t *testing.T) {
	fragment := strings.Replace(entry("7", "Widget", "1.00"), testPlaceholder, "http://img.test/real.jpg", 1)

	products, err := NewListingParser(testPlaceholder).ParseListing(mustDoc(t, listingHTML(1, fragment)))
	require.NoError(t, err)
	assert.Equal(t, "http://img.test/real.jpg", products[0].ImageURL)
}

func TestParseListing_PlaceholderIsCaseInsensitive(t *testing.T) {
	fragment := strings.Replace(entry("7", "Widget", "1.00"), testPlaceholder, strings.ToUpper(testPlaceholder), 1)

	products, err := NewListingParser(testPlaceholder).ParseListing(mustDoc(t, listingHTML(1, fragment)))
	require.NoError(t, err)
	assert.Equal(t, "http://img.test/7.jpg", products[0].ImageURL)
}

func TestParseListing_StructuralFailures(t *testing.T) {
	good := entry("5", "Widget", "1.00")
	testCases := []struct {
		name  string
		entry string
		piece string
	}{
		{"Missing Id", strings.Replace(good, `id="producteg_5"`, "", 1), "product id (li[id] is empty)"},
		{"Malformed Id", strings.Replace(good, `id="producteg_5"`, `id="product-five"`, 1), "product id"},
		{"Missing Title Link", strings.Replace(good, `class="title"`, `class="name"`, 1), "title link (li > div > a.title)"},
		{"Blank Name", strings.Replace(good, ">Widget<", ">  <", 1), "product name"},
		{"Missing Href", strings.Replace(good, `href="http://item.yhd.com/item/5"`, "", 1), "product url"},
		{"Missing Image", strings.Replace(good, `<img src=`, `<span src=`, 1), "image element (li > div > a > img)"},
		{"Placeholder Without Fallback", strings.Replace(good, `original="http://img.test/5.jpg"`, "", 1), "product image url"},
		{"Missing Price Element", strings.Replace(good, "<strong>1.00</strong>", "1.00", 1), "price element (li > div > p.price strong)"},
		{"Unparseable Price", strings.Replace(good, "<strong>1.00</strong>", "<strong>call us</strong>", 1), "price"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := mustDoc(t, listingHTML(1, entry("1", "Fine", "2.00"), tc.entry))

			products, err := NewListingParser(testPlaceholder).ParseListing(doc)
			assert.Nil(t, products)
			require.ErrorIs(t, err, models.ErrStructure)
			assert.Contains(t, err.Error(), "listing entry 1")

			var parseErr *models.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.piece, parseErr.Piece)
		})
	}
}

func TestParseProductID(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"producteg_12345", "12345"},
		{"producteg_007", "7"},
		{"producteg_12_34", "34"},
		{"item_55_sku_678", "678"},
		{"x_9", "9"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			id, err := parseProductID(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}

	_, err := parseProductID("producteg_abc")
	assert.ErrorIs(t, err, models.ErrStructure)
}

func TestInnerTextKeepsComments(t *testing.T) {
	doc := mustDoc(t, `<a class="title">Widget <!--hot--><b>Pro</b></a>`)
	assert.Equal(t, "Widget <!--hot-->Pro", innerText(doc.Find("a.title")))
}
