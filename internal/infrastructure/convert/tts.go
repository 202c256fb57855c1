package convert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSynthesizer calls an external text-to-speech service that accepts a
// form-encoded POST and answers with an mp3 stream.
type HTTPSynthesizer struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSynthesizer(endpoint string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("tts service: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
