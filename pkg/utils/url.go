package utils

import (
	"errors"
	"net/url"
)

// ErrInvalidTargetURL is returned by ParseTargetURL for anything that is not an absolute http(s) URL.
var ErrInvalidTargetURL = errors.New("target URL must be an absolute http or https URL")

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// ParseTargetURL validates a page URL submitted by a caller.
func ParseTargetURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidTargetURL
	}
	return u, nil
}
