// Package userclient is the chat service's HTTP client for the user
// directory. Failures degrade to a placeholder profile so chat flows never
// break on a directory outage.
package userclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/quickchat/internal/model"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

// GetUser fetches a profile by id. The caller is expected to substitute
// model.UnknownUser on error.
func (c *Client) GetUser(ctx context.Context, id string) (model.UserPublic, error) {
	u := c.baseURL + "/internal/users/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("userclient: new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("userclient: get %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.UserPublic{}, fmt.Errorf("userclient: get %s: status %d", id, resp.StatusCode)
	}
	var p model.UserPublic
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return model.UserPublic{}, fmt.Errorf("userclient: decode %s: %w", id, err)
	}
	return p, nil
}
