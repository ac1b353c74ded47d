package entity

import "time"

// ImageClassification is the language model's verdict on which image
// candidates are the site's logo and favicons, best match first.
type ImageClassification struct {
	Logos    []string `json:"logos"`
	Favicons []string `json:"favicons"`
}

// ResponseMeta mirrors the page metadata returned to callers.
type ResponseMeta struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CachedAt    time.Time `json:"cachedAt"`
}

// ResponseData is the externally visible result of the pipeline and the cached value.
type ResponseData struct {
	Meta     ResponseMeta `json:"meta"`
	Summary  string       `json:"summary"`
	Logos    []string     `json:"logos"`
	Favicons []string     `json:"favicons"`
}
