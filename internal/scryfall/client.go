// Package scryfall resolves card names against the Scryfall API.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.scryfall.com"

// Scryfall asks clients to keep 50-100ms between requests.
const requestInterval = 100 * time.Millisecond

type imageURIs struct {
	Normal string `json:"normal"`
}

type cardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text"`
	Power      string     `json:"power"`
	Toughness  string     `json:"toughness"`
	ImageURIs  *imageURIs `json:"image_uris"`
}

// card is the subset of a Scryfall card object the catalog keeps.
type card struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost"`
	CMC        float64    `json:"cmc"`
	TypeLine   string     `json:"type_line"`
	Layout     string     `json:"layout"`
	OracleText string     `json:"oracle_text"`
	Power      string     `json:"power"`
	Toughness  string     `json:"toughness"`
	Rarity     string     `json:"rarity"`
	ImageURIs  *imageURIs `json:"image_uris"`
	CardFaces  []cardFace `json:"card_faces"`
}

func (c card) template() cards.Template {
	t := cards.Template{
		Name:      c.Name,
		Text:      c.OracleText,
		Power:     c.Power,
		Toughness: c.Toughness,
		Type:      c.TypeLine,
		Layout:    c.Layout,
		ManaCost:  c.ManaCost,
		CMC:       c.CMC,
		Rarity:    c.Rarity,
	}
	if c.ImageURIs != nil {
		t.Images = &cards.Images{Normal: c.ImageURIs.Normal}
	}
	for _, f := range c.CardFaces {
		face := cards.Face{
			Name:      f.Name,
			Text:      f.OracleText,
			Power:     f.Power,
			Toughness: f.Toughness,
			Type:      f.TypeLine,
			ManaCost:  f.ManaCost,
		}
		if f.ImageURIs != nil {
			face.Images = &cards.Images{Normal: f.ImageURIs.Normal}
		}
		t.CardFaces = append(t.CardFaces, face)
	}
	return t
}

// Client implements cards.Resolver over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *time.Ticker
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: time.NewTicker(requestInterval),
		logger:  logger,
	}
}

// Close stops the request limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

func (c *Client) Named(ctx context.Context, name string) (cards.Template, error) {
	q := url.Values{"exact": {name}}
	return c.get(ctx, "/cards/named?"+q.Encode())
}

func (c *Client) ByMultiverseID(ctx context.Context, id int) (cards.Template, error) {
	return c.get(ctx, "/cards/multiverse/"+strconv.Itoa(id))
}

func (c *Client) get(ctx context.Context, path string) (cards.Template, error) {
	select {
	case <-c.limiter.C:
	case <-ctx.Done():
		return cards.Template{}, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return cards.Template{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mtg-horde-go")

	resp, err := c.http.Do(req)
	if err != nil {
		return cards.Template{}, fmt.Errorf("scryfall request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return cards.Template{}, fmt.Errorf("%w: %s", cards.ErrCardNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return cards.Template{}, fmt.Errorf("scryfall returned %s for %s", resp.Status, path)
	}

	var body card
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return cards.Template{}, fmt.Errorf("failed to decode scryfall card: %w", err)
	}
	c.logger.Debug("scryfall card fetched", zap.String("name", body.Name))
	return body.template(), nil
}
