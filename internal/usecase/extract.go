package usecase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/pkg/utils"
)

const nearbyTextLimit = 100

// Primary content regions in priority order; only the first match is used.
var contentRegions = []string{"article", "main", "#content", ".content", "body"}

const textBlocks = "h1, h2, h3, h4, h5, h6, p"

// Extract parses rendered HTML into PageData. It performs no I/O and returns
// the same result for the same input.
func Extract(html, baseURL string) (*entity.PageData, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	data := &entity.PageData{
		URL:             baseURL,
		Title:           pageTitle(doc),
		MetaDescription: description,
		Content:         extractContent(doc),
		Images:          []entity.Image{},
	}

	data.Images = append(data.Images, extractFavicons(doc, base)...)
	data.Images = append(data.Images, extractImages(doc, base)...)

	return data, nil
}

// pageTitle prefers the document title over any <title> nested in inline SVG.
func pageTitle(doc *goquery.Document) string {
	title := doc.Find("head > title").First()
	if title.Length() == 0 {
		title = doc.Find("title").Not("svg title").First()
	}
	return strings.TrimSpace(title.Text())
}

func extractContent(doc *goquery.Document) string {
	region := doc.Selection
	for _, selector := range contentRegions {
		if match := doc.Find(selector).First(); match.Length() > 0 {
			region = match
			break
		}
	}

	var blocks []string
	region.Find(textBlocks).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s.Text())
	})

	return collapseWhitespace(strings.Join(blocks, "\n"))
}

func extractFavicons(doc *goquery.Document, base *url.URL) []entity.Image {
	var images []entity.Image
	doc.Find(`link[rel*="icon"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, strings.TrimSpace(href))
		if err != nil {
			return
		}
		images = append(images, entity.Image{
			URL:  abs,
			Type: entity.ImageTypeFavicon,
			Context: entity.ImageContext{
				Rel:      attr(s, "rel"),
				MimeType: attr(s, "type"),
			},
		})
	})
	return images
}

func extractImages(doc *goquery.Document, base *url.URL) []entity.Image {
	var images []entity.Image
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if strings.TrimSpace(src) == "" {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, strings.TrimSpace(src))
		if err != nil {
			return
		}

		img := entity.Image{
			URL:    abs,
			Width:  dimension(s, "width"),
			Height: dimension(s, "height"),
			Type:   entity.ImageTypeOther,
			Context: entity.ImageContext{
				Alt:       attr(s, "alt"),
				ClassName: attr(s, "class"),
				ID:        attr(s, "id"),
			},
		}

		if parent := s.Parent(); parent.Length() > 0 {
			img.Context.ParentClasses = attr(parent, "class")
			if text := truncateRunes(strings.TrimSpace(parent.Text()), nearbyTextLimit); text != "" {
				img.Context.NearbyText = &text
			}
		}

		images = append(images, img)
	})
	return images
}

// attr returns nil when the attribute is absent and a pointer to its value,
// possibly empty, when present.
func attr(s *goquery.Selection, name string) *string {
	v, ok := s.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

// dimension reads the leading decimal digits of a width or height attribute.
// Missing, unparseable and non-positive values are all reported as absent.
func dimension(s *goquery.Selection, name string) *int {
	raw, ok := s.Attr(name)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
