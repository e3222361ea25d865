package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CountryInfo 解析出来的国家
type CountryInfo struct {
	Code string `json:"code"` // ISO 3166-1 alpha-2
	Name string `json:"name"`
}

// Client Google Maps Geocoding API 客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Lookup 把自由文本地址解析成国家。
// 返回 (nil, nil) 表示 API 正常响应但没有国家结果（确认的负结果，可以缓存）；
// 返回 error 表示传输层或服务端故障（可重试，不应缓存）。
func (c *Client) Lookup(ctx context.Context, address string) (*CountryInfo, error) {
	params := url.Values{}
	params.Set("address", address)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + "/maps/api/geocode/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode api error (%d)", resp.StatusCode)
	}

	var result geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	if result.Status != "OK" || len(result.Results) == 0 {
		return nil, nil
	}

	for _, component := range result.Results[0].AddressComponents {
		for _, t := range component.Types {
			if t == "country" {
				return &CountryInfo{
					Code: component.ShortName,
					Name: component.LongName,
				}, nil
			}
		}
	}

	// 响应里没有国家成分，同样是确认的负结果
	return nil, nil
}
