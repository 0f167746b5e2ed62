package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kass/go-skytrack/pkg/models"
)

// Upstream yields the raw POIs of one bounding box. Implementations return
// an error on failure; degradation policy lives in the Store.
type Upstream interface {
	FetchBox(ctx context.Context, box models.BoundingBox) ([]models.POI, error)
}

// Client queries an Overpass-compatible geospatial service for the POIs
// inside a bounding box.
type Client struct {
	endpoint string
	selector string
	timeout  int
	client   *http.Client
}

// NewClient creates a Client for the given Overpass endpoint. selector is
// the node selector without the bbox clause, e.g.
// `node["amenity"="fast_food"]["brand"="Burger King"]`. timeout is the
// query timeout in seconds, forwarded to the service and enforced locally
// with headroom for transport overhead.
func NewClient(endpoint, selector string, timeout int) *Client {
	if timeout <= 0 {
		timeout = 25
	}
	return &Client{
		endpoint: endpoint,
		selector: selector,
		timeout:  timeout,
		client:   &http.Client{Timeout: time.Duration(timeout+5) * time.Second},
	}
}

type overpassElement struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// FetchBox runs one bbox-constrained query and maps the returned elements
// into POIs. Elements with invalid coordinates are dropped individually.
func (c *Client) FetchBox(ctx context.Context, box models.BoundingBox) ([]models.POI, error) {
	query := fmt.Sprintf("[out:json][timeout:%d];%s(%f,%f,%f,%f);out;",
		c.timeout, c.selector, box.South, box.West, box.North, box.East)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding upstream response: %w", err)
	}

	pois := make([]models.POI, 0, len(decoded.Elements))
	for _, el := range decoded.Elements {
		c := models.Coordinate{Lat: el.Lat, Lon: el.Lon}
		if !c.Valid() {
			continue
		}
		pois = append(pois, models.POI{
			ID:         strconv.FormatInt(el.ID, 10),
			Coordinate: c,
			Name:       el.Tags["name"],
			Address:    joinAddress(el.Tags["addr:housenumber"], el.Tags["addr:street"]),
			City:       el.Tags["addr:city"],
			State:      el.Tags["addr:state"],
			Source:     "live",
		})
	}
	return pois, nil
}

func joinAddress(housenumber, street string) string {
	if housenumber == "" {
		return street
	}
	if street == "" {
		return housenumber
	}
	return housenumber + " " + street
}
