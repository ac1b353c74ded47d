package entity

// ImageType is the provisional tag assigned to an image during extraction.
type ImageType string

const (
	// ImageTypeLogo is never assigned by extraction; logos are identified
	// later by image classification.
	ImageTypeLogo    ImageType = "logo"
	ImageTypeFavicon ImageType = "favicon"
	ImageTypeOther   ImageType = "other"
)

// ImageContext holds the markup surrounding an image candidate. A nil field
// means the attribute was absent; a pointer to "" means it was present but empty.
type ImageContext struct {
	Alt           *string `json:"alt,omitempty"`
	ClassName     *string `json:"className,omitempty"`
	ID            *string `json:"id,omitempty"`
	ParentClasses *string `json:"parentClasses,omitempty"`
	NearbyText    *string `json:"nearbyText,omitempty"`
	Rel           *string `json:"rel,omitempty"`
	MimeType      *string `json:"mimeType,omitempty"`
}

// Image is a logo or favicon candidate found on a page.
type Image struct {
	URL     string       `json:"url"`
	Width   *int         `json:"width,omitempty"`
	Height  *int         `json:"height,omitempty"`
	Type    ImageType    `json:"type"`
	Context ImageContext `json:"context"`
}

// PageData is the structured representation of a rendered page.
type PageData struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	MetaDescription string  `json:"metaDescription"`
	Content         string  `json:"content"`
	Images          []Image `json:"images"`
}
