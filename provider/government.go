package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/logger"
	"github.com/patrickmn/go-cache"
)

// GovProvider queries the government personalization endpoint over HTTP GET.
// Successful lookups are cached so repeated verifications of the same
// document do not hammer the upstream service.
type GovProvider struct {
	Params *config.ProviderParams
	client *http.Client
	cache  *cache.Cache
}

func NewGovProvider(cfg *config.ProviderParams) *GovProvider {
	logger.Info("using government identity provider",
		logger.LoggerOptions{Key: "base_url", Data: cfg.BaseURL},
	)
	return &GovProvider{
		Params: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

type lookupEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    *IdentityRecord `json:"data"`
}

/*
Lookup fetches the citizen record for a personal and document number pair.

Inputs:

  - ctx (context.Context): controls the request deadline together with the
    configured client timeout.
  - personalNumber (string): 14 digit personal identification number.
  - documentNumber (string): document number including its series prefix.

Outputs:

  - record (*IdentityRecord): the structured record served by the endpoint.
  - error: config.ErrIdentityNotFound when the endpoint reports no record,
    a transport or decoding error otherwise.
*/
func (p *GovProvider) Lookup(ctx context.Context, personalNumber, documentNumber string) (*IdentityRecord, error) {
	cacheKey := fmt.Sprintf("%s:%s", personalNumber, documentNumber)
	if cached, found := p.cache.Get(cacheKey); found {
		return cached.(*IdentityRecord), nil
	}

	endpoint := fmt.Sprintf("%s/compress?imie=%s&ps=%s",
		p.Params.BaseURL, url.QueryEscape(personalNumber), url.QueryEscape(documentNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("provider request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider request error: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider request error: %w", err)
	}

	envelope, err := parseLookupResponse(body)
	if err != nil {
		return nil, err
	}
	if envelope.Status != 1 || envelope.Data == nil {
		if envelope.Message != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrIdentityNotFound, envelope.Message)
		}
		return nil, config.ErrIdentityNotFound
	}

	p.cache.Set(cacheKey, envelope.Data, cache.DefaultExpiration)
	return envelope.Data, nil
}

// parseLookupResponse unwraps the lookup envelope. The upstream service
// occasionally double encodes its payload, returning a JSON string that
// itself contains the envelope.
func parseLookupResponse(body []byte) (*lookupEnvelope, error) {
	var nested string
	if err := json.Unmarshal(body, &nested); err == nil {
		body = []byte(nested)
	}

	envelope := &lookupEnvelope{}
	if err := json.Unmarshal(body, envelope); err != nil {
		return nil, fmt.Errorf("provider response error: %w", err)
	}
	return envelope, nil
}
