package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Entity labels produced by the title model.
const (
	LabelTeam   = "Team"
	LabelPlayer = "Player"
	LabelMinute = "Minute"
)

// NERResult is the model's view of a title. Every field may be empty.
type NERResult struct {
	Home   string
	Away   string
	Player string
	Minute string
}

// Teams returns the team pair in Teams shape.
func (r NERResult) Teams() Teams {
	return Teams{Home: r.Home, Away: r.Away, Minute: r.Minute}
}

// Entity is one labelled span.
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Recognizer labels title spans. NERClient is the HTTP implementation.
type Recognizer interface {
	Entities(ctx context.Context, title string) ([]Entity, error)
}

// NER runs the recognizer and maps its entities: the first team is home, the second away;
// player and minute are kept only when exactly one such entity exists.
func NER(ctx context.Context, recognizer Recognizer, title string) (NERResult, error) {
	if recognizer == nil {
		return NERResult{}, nil
	}
	entities, err := recognizer.Entities(ctx, title)
	if err != nil {
		return NERResult{}, err
	}
	return ResultFromEntities(entities), nil
}

func ResultFromEntities(entities []Entity) NERResult {
	var teams, players, minutes []string
	for _, e := range entities {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		switch e.Label {
		case LabelTeam:
			teams = append(teams, text)
		case LabelPlayer:
			players = append(players, text)
		case LabelMinute:
			minutes = append(minutes, text)
		}
	}
	if len(teams) == 0 {
		return NERResult{}
	}

	out := NERResult{Home: teams[0]}
	if len(teams) > 1 {
		out.Away = teams[1]
	}
	if len(players) == 1 {
		out.Player = players[0]
	}
	if len(minutes) == 1 {
		out.Minute = minutes[0]
	}
	return out
}

// NERClient calls a model server: POST {"text": title} -> {"entities": [{"label", "text"}]}.
type NERClient struct {
	endpointURL string
	client      *http.Client
}

func NewNERClient(endpoint string, timeout time.Duration) (*NERClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid NER endpoint %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NERClient{
		endpointURL: parsed.String(),
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (c *NERClient) Entities(ctx context.Context, title string) ([]Entity, error) {
	if c == nil {
		return nil, fmt.Errorf("ner client is nil")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	body, err := json.Marshal(nerRequest{Text: title})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send ner request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ner response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ner endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed nerResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	return parsed.Entities, nil
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []Entity `json:"entities"`
}
