// Package weather looks up the current Buenos Aires weather and turns it
// into a drink recommendation for the menu.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"

	// Above this temperature the recommendation flips to a cold drink.
	coldDrinkThreshold = 22.0
)

type Recommendation struct {
	TemperatureC float64 `json:"temperature"`
	Suggestion   string  `json:"recommendation"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Recommend(ctx context.Context) (Recommendation, error) {
	url := c.BaseURL + "/v1/forecast?latitude=-34.6&longitude=-58.4&current_weather=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Recommendation{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Recommendation{}, fmt.Errorf("weather lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Recommendation{}, fmt.Errorf("weather lookup: status %d", resp.StatusCode)
	}

	var body struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
		} `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Recommendation{}, fmt.Errorf("weather lookup: %w", err)
	}

	return Recommendation{
		TemperatureC: body.CurrentWeather.Temperature,
		Suggestion:   SuggestionFor(body.CurrentWeather.Temperature),
	}, nil
}

func SuggestionFor(tempC float64) string {
	if tempC > coldDrinkThreshold {
		return "Una bebida fría como un licuado"
	}
	return "Un café caliente"
}
