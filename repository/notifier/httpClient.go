package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"library/util/httpx"
)

type httpRepo struct {
	url    string
	client *http.Client
}

// NewHTTP posts event batches to the configured webhook. An empty URL yields
// a no-op sender so local setups run without a receiver.
func NewHTTP(url string) Repo {
	if url == "" {
		return noopRepo{}
	}
	return &httpRepo{url: url, client: httpx.Client()}
}

func (r *httpRepo) Deliver(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	b, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook failed: %s", resp.Status)
	}
	return nil
}

type noopRepo struct{}

func (noopRepo) Deliver([]Event) error { return nil }
