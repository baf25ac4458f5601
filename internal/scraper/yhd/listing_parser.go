package yhd

import (
	"regexp"
	"strconv"
	"strings"

	"CatalogScraper/internal/models"
	"CatalogScraper/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"golang.org/x/net/html"
)

const (
	emptyResultSelector = "div.emptyResultTips.mb"
	pageIndicatorSel    = "span.pageOp"
	listingEntrySel     = "li.producteg"

	totalPagesPattern = `共(\d+)页`

	productIDPrefix  = "producteg_"
	productIDPattern = `_(\d+)`
)

var (
	totalPagesRegex = regexp.MustCompile(totalPagesPattern)
	productIDRegex  = regexp.MustCompile(productIDPattern)
)

// IsEmptyResult reports whether the fragment is the "no products in this category" page.
func IsEmptyResult(doc *goquery.Document) bool {
	return doc.Find(emptyResultSelector).Length() > 0
}

// ParseTotalPages reads the page count from the "共N页" indicator on the first listing page.
func ParseTotalPages(doc *goquery.Document) (int, error) {
	node := doc.Find(pageIndicatorSel).First()
	if node.Length() == 0 {
		return 0, &models.ParseError{Piece: "total pages element (" + pageIndicatorSel + ")"}
	}

	text := node.Text()
	m := totalPagesRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, &models.ParseError{Piece: "total pages", Input: text, Pattern: totalPagesPattern}
	}
	pages, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &models.ParseError{Piece: "total pages", Input: text, Pattern: totalPagesPattern}
	}
	return pages, nil
}

// ListingParser turns listing entries into products.
type ListingParser struct {
	placeholderImageURL string
}

func NewListingParser(placeholderImageURL string) *ListingParser {
	return &ListingParser{placeholderImageURL: placeholderImageURL}
}

// ParseListing parses every listing entry of the document. The first malformed entry aborts
// the whole page; nothing is skipped silently.
func (p *ListingParser) ParseListing(doc *goquery.Document) ([]models.Product, error) {
	entries := doc.Find(listingEntrySel)
	products := make([]models.Product, 0, entries.Length())

	var parseErr error
	entries.EachWithBreak(func(i int, li *goquery.Selection) bool {
		product, err := p.parseProduct(li)
		if err != nil {
			parseErr = errors.Wrapf(err, "listing entry %d", i)
			return false
		}
		products = append(products, product)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return products, nil
}

func (p *ListingParser) parseProduct(li *goquery.Selection) (models.Product, error) {
	id, err := parseProductID(li.AttrOr("id", ""))
	if err != nil {
		return models.Product{}, err
	}

	blocks := li.ChildrenFiltered("div")

	// The title attribute breaks on names that contain quotes, so the link text is used.
	titleLink := blocks.ChildrenFiltered("a.title").First()
	if titleLink.Length() == 0 {
		return models.Product{}, &models.ParseError{Piece: "title link (li > div > a.title)"}
	}
	rawName := innerText(titleLink)
	name := utils.ParseNameFromString(rawName)
	if name == "" {
		return models.Product{}, &models.ParseError{Piece: "product name", Input: rawName}
	}

	productURL := strings.TrimSpace(titleLink.AttrOr("href", ""))
	if productURL == "" {
		return models.Product{}, &models.ParseError{Piece: "product url", Input: outerHTML(titleLink)}
	}

	img := blocks.ChildrenFiltered("a").ChildrenFiltered("img").First()
	if img.Length() == 0 {
		return models.Product{}, &models.ParseError{Piece: "image element (li > div > a > img)"}
	}
	imageURL := strings.TrimSpace(img.AttrOr("src", ""))
	if imageURL == "" || strings.EqualFold(imageURL, p.placeholderImageURL) {
		imageURL = strings.TrimSpace(img.AttrOr("original", ""))
	}
	if imageURL == "" {
		return models.Product{}, &models.ParseError{Piece: "product image url", Input: outerHTML(img)}
	}

	// The listing is cached at the origin, so this price may be stale until reconciled.
	priceTag := blocks.ChildrenFiltered("p.price").Find("strong").First()
	if priceTag.Length() == 0 {
		return models.Product{}, &models.ParseError{Piece: "price element (li > div > p.price strong)"}
	}
	price, err := utils.ParsePriceFromString(priceTag.Text())
	if err != nil {
		return models.Product{}, err
	}

	return models.NewProduct(id, name, productURL, imageURL, price, SourceSite)
}

// parseProductID accepts "producteg_<digits>" or, failing that, the last "_<digits>" run.
func parseProductID(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", &models.ParseError{Piece: "product id (li[id] is empty)"}
	}

	if strings.HasPrefix(value, productIDPrefix) {
		if n, err := strconv.ParseUint(value[len(productIDPrefix):], 10, 64); err == nil {
			return strconv.FormatUint(n, 10), nil
		}
	}

	matches := productIDRegex.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return "", &models.ParseError{Piece: "product id", Input: value, Pattern: productIDPattern}
	}
	return matches[len(matches)-1][1], nil
}

// innerText concatenates descendant text and keeps comments as <!--...-->, which the origin
// leaves inside product names.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.CommentNode:
			b.WriteString("<!--")
			b.WriteString(n.Data)
			b.WriteString("-->")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func outerHTML(sel *goquery.Selection) string {
	s, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return s
}
