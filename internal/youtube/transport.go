package youtube

import "net/http"

// apiKeyTransport adds the project API key as the "key" query parameter.
// option.WithAPIKey is ignored once a custom HTTP client is supplied.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

// withAPIKey returns a shallow copy of c whose requests carry key.
func withAPIKey(c *http.Client, key string) *http.Client {
	if key == "" {
		return c
	}
	if c == nil {
		c = http.DefaultClient
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out := *c
	out.Transport = &apiKeyTransport{key: key, base: base}
	return &out
}
