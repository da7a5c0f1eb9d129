package open_er

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
)

const resultSuccess = "success"

// latestResponse is the body of GET /v6/latest/{base}.
type latestResponse struct {
	Result             string             `json:"result"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	Rates              map[string]float64 `json:"rates"`
	ErrorType          string             `json:"error-type,omitempty"`
}

type HTTPClient struct {
	client *http.Client
	now    func() time.Time
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{},
		now:    time.Now,
	}
}

// ApiClient fetches the latest rate table. The table is stamped with the local
// fetch time, not the provider's publication time.
func (c *HTTPClient) ApiClient(ctx context.Context, url string) (*entities.RateTable, error) {
	const op = "open_er.ApiClient"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, op+": create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, op+": get")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(entities.ErrBadStatus, "%s: %s", op, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, op+": read body")
	}

	var result latestResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, op+": json unmarshal")
	}

	if result.Result != resultSuccess {
		return nil, errors.Wrapf(entities.ErrAPIResult, "%s: result=%q error-type=%q", op, result.Result, result.ErrorType)
	}

	if len(result.Rates) == 0 {
		return nil, errors.Wrap(entities.ErrMissingRates, op)
	}

	base := result.BaseCode
	if base == "" {
		base = "USD"
	}

	return entities.NewRateTable(base, result.Rates, c.now()), nil
}
