package login

import (
	"fmt"
	"net/url"
	"strings"
)

// Params holds the key/value pairs found in a redirect URL's query or fragment
type Params map[string]string

// Get returns the value for key, or "" if absent
func (p Params) Get(key string) string {
	return p[key]
}

// ParseRedirect extracts the parameters that follow the first '?' or '#' in
// rawURL. Everything after that delimiter is treated as one query string.
// Instagram's trailing "#_" marker is dropped first so it doesn't end up on
// whichever value comes last.
func ParseRedirect(rawURL string) (Params, error) {
	i := strings.IndexAny(rawURL, "?#")
	if i < 0 {
		return nil, &Error{
			Kind:   KindMalformedRedirectURL,
			RawURL: rawURL,
			Reason: "no query or fragment",
		}
	}

	params := make(Params)
	rest := strings.TrimSuffix(rawURL[i+1:], "#_")
	for _, pair := range strings.Split(rest, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, &Error{Kind: KindMalformedRedirectURL, RawURL: rawURL, Err: fmt.Errorf("bad key %q: %w", k, err)}
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, &Error{Kind: KindMalformedRedirectURL, RawURL: rawURL, Err: fmt.Errorf("bad value for %q: %w", key, err)}
		}
		// first occurrence wins
		if _, ok := params[key]; !ok {
			params[key] = value
		}
	}
	return params, nil
}

// CleanCode drops the "#_" marker Instagram appends to codes
func CleanCode(code string) string {
	return strings.ReplaceAll(code, "#_", "")
}
