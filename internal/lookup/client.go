package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"adresboek/internal/domain"
)

// HTTPClient implements Gateway against the lookup service's HTTP contract:
//
//	GET {base}/api/getAddresses?postcode={postcode}&streetnumber={houseNumber}
//	-> { "status": "ok"|"error", "errormessage"?: string, "details"?: [...] }
//
// The client enforces a request timeout so a hung upstream cannot park a
// workflow session in Searching forever.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Status       string             `json:"status"`
	ErrorMessage string             `json:"errormessage"`
	Details      []domain.Candidate `json:"details"`
}

// Search queries the lookup service. Candidates come back without a house
// number; the caller stamps it from the search form.
func (c *HTTPClient) Search(ctx context.Context, postcode, houseNumber string) ([]domain.Candidate, error) {
	endpoint := fmt.Sprintf("%s/api/getAddresses?postcode=%s&streetnumber=%s",
		c.baseURL, url.QueryEscape(postcode), url.QueryEscape(houseNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup service returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	if body.Status == "error" {
		return nil, Error{Message: body.ErrorMessage}
	}

	return body.Details, nil
}
