package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

// TweetNotifier posts a tweet signed with the rule's own credentials.
type TweetNotifier struct {
	apiURL  string
	timeout time.Duration
}

func NewTweetNotifier(apiURL string, timeout time.Duration) *TweetNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TweetNotifier{apiURL: strings.TrimRight(apiURL, "/"), timeout: timeout}
}

func (n *TweetNotifier) Deliver(ctx context.Context, d Delivery) error {
	r := d.Rule
	if r.ConsumerKey == "" || r.AccessToken == "" {
		return fmt.Errorf("tweet rule %d has no credentials", r.ID)
	}
	config := oauth1.NewConfig(r.ConsumerKey, r.ConsumerSecret)
	client := config.Client(ctx, oauth1.NewToken(r.AccessToken, r.AccessTokenSecret))
	client.Timeout = n.timeout

	if err := postJSON(ctx, client, n.apiURL+"/tweets", map[string]string{"text": d.Message}); err != nil {
		return fmt.Errorf("tweet: %w", err)
	}
	return nil
}
