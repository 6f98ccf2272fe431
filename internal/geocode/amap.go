package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// AMapClient looks up addresses through the AMap (高德) geocoding web API.
type AMapClient struct {
	key        string
	httpClient *http.Client
	baseURL    string
}

// NewAMapClient creates an AMap geocoding client. The timeout bounds every
// lookup; a timed-out lookup surfaces as an error and is treated as
// unresolved by the resolver.
func NewAMapClient(key string, timeout time.Duration) *AMapClient {
	return &AMapClient{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://restapi.amap.com/v3/geocode/geo",
	}
}

func (c *AMapClient) Name() string { return "amap" }

// Lookup queries the API for the address's best-match coordinate. An empty
// result set yields ok == false with no error; non-success API status,
// transport failures, and unparseable responses yield an error.
func (c *AMapClient) Lookup(ctx context.Context, address string) (domain.Coordinate, bool, error) {
	params := url.Values{
		"key":     {c.key},
		"address": {address},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("amap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinate{}, false, fmt.Errorf("amap API error: status %d: %s", resp.StatusCode, body)
	}

	var amapResp response
	if err := json.NewDecoder(resp.Body).Decode(&amapResp); err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("decode response: %w", err)
	}

	if amapResp.Status != "1" {
		return domain.Coordinate{}, false, fmt.Errorf("amap status %s: %s", amapResp.Status, amapResp.Info)
	}
	if len(amapResp.Geocodes) == 0 {
		return domain.Coordinate{}, false, nil
	}

	coord, err := parseLocation(amapResp.Geocodes[0].Location)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("amap geocode for %q: %w", address, err)
	}
	return coord, true, nil
}

// parseLocation converts AMap's "lon,lat" location string to a coordinate.
func parseLocation(loc string) (domain.Coordinate, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("malformed location %q", loc)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("malformed longitude in %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("malformed latitude in %q", loc)
	}
	coord := domain.Coordinate{Lat: lat, Lon: lon}
	if !coord.Valid() {
		return domain.Coordinate{}, fmt.Errorf("location %q out of range", loc)
	}
	return coord, nil
}

// AMap API response types.

type response struct {
	Status   string    `json:"status"` // "1" on success
	Info     string    `json:"info"`
	Geocodes []geocode `json:"geocodes"`
}

type geocode struct {
	Location string `json:"location"` // "lon,lat"
}
