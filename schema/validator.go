package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fixture_event.schema.json
var fixtureEventSchemaJSON string

//go:embed reddit_post.schema.json
var redditPostSchemaJSON string

// Payload kinds accepted by Validate.
const (
	KindFixtureEvent = "fixture_event"
	KindRedditPost   = "reddit_post"
)

// FixtureEvent is the part of a provider event every later stage relies on.
type FixtureEvent struct {
	ID             int64 `json:"id"`
	StartTimestamp int64 `json:"startTimestamp"`
	HomeTeam       struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"awayTeam"`
	Status struct {
		Type string `json:"type"`
	} `json:"status"`
}

type RedditPost struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Permalink  string  `json:"permalink"`
	Title      string  `json:"title"`
	URL        *string `json:"url,omitempty"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Flair      *string `json:"link_flair_text,omitempty"`
}

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*jsonschema.Schema
	compileErr      error
)

// ValidateFixtureEvent checks one element of a provider "events" array.
func ValidateFixtureEvent(payload json.RawMessage) (*FixtureEvent, error) {
	var ev FixtureEvent
	if err := validateInto(KindFixtureEvent, payload, &ev); err != nil {
		return nil, err
	}
	if ev.HomeTeam.ID == ev.AwayTeam.ID {
		return nil, fmt.Errorf("homeTeam and awayTeam must differ")
	}
	if strings.TrimSpace(ev.HomeTeam.Name) == "" || strings.TrimSpace(ev.AwayTeam.Name) == "" {
		return nil, fmt.Errorf("team names must not be empty")
	}
	return &ev, nil
}

// ValidateRedditPost checks the data object of a t3 listing child.
func ValidateRedditPost(payload json.RawMessage) (*RedditPost, error) {
	var post RedditPost
	if err := validateInto(KindRedditPost, payload, &post); err != nil {
		return nil, err
	}
	if strings.TrimSpace(post.Title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if post.URL != nil {
		if err := validateURI("url", *post.URL); err != nil {
			return nil, err
		}
	}
	return &post, nil
}

// Validate dispatches on kind. An empty kind is detected from the payload keys.
func Validate(kind string, payload json.RawMessage) (string, error) {
	if strings.TrimSpace(kind) == "" {
		detected, err := DetectKind(payload)
		if err != nil {
			return "", err
		}
		kind = detected
	}
	switch kind {
	case KindFixtureEvent:
		_, err := ValidateFixtureEvent(payload)
		return kind, err
	case KindRedditPost:
		_, err := ValidateRedditPost(payload)
		return kind, err
	default:
		return kind, fmt.Errorf("unknown payload kind %q", kind)
	}
}

// DetectKind guesses the payload kind from its top-level keys.
func DetectKind(payload json.RawMessage) (string, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(payload, &keys); err != nil {
		return "", fmt.Errorf("decode payload JSON: %w", err)
	}
	if _, ok := keys["startTimestamp"]; ok {
		return KindFixtureEvent, nil
	}
	if _, ok := keys["permalink"]; ok {
		return KindRedditPost, nil
	}
	return "", fmt.Errorf("cannot detect payload kind")
}

func validateInto(kind string, payload json.RawMessage, out any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(kind)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func loadSchema(kind string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		resources := map[string]string{
			KindFixtureEvent: fixtureEventSchemaJSON,
			KindRedditPost:   redditPostSchemaJSON,
		}
		compiled := make(map[string]*jsonschema.Schema, len(resources))
		for name, doc := range resources {
			file := name + ".schema.json"
			if err := compiler.AddResource(file, strings.NewReader(doc)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", file, err)
				return
			}
			schema, err := compiler.Compile(file)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", file, err)
				return
			}
			compiled[name] = schema
		}
		compiledSchemas = compiled
	})

	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiledSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("schema %q not initialized", kind)
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
