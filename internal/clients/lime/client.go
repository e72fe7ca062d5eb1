// Package lime fetches agent profile tags from the lime service. Agent
// searches scope decision trees by these tags instead of the widget's
// configured tree set.
package lime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/utils"
)

type Client interface {
	GetAgentTags(ctx context.Context, causerID int) ([]string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("LIME_URL", "", log)), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing LIME_URL")
	}
	apiKey := strings.TrimSpace(utils.GetEnv("LIME_API_KEY", "", nil))
	if apiKey == "" {
		return nil, fmt.Errorf("missing LIME_API_KEY")
	}
	timeout := utils.GetEnvAsInt("LIME_TIMEOUT_SECONDS", 10, log)

	return &client{
		log:        log.With("service", "LimeClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

type agentTagsEnvelope struct {
	Data []string `json:"data"`
}

func (c *client) GetAgentTags(ctx context.Context, causerID int) ([]string, error) {
	url := c.baseURL + "/api/v2/agent/profile/" + strconv.Itoa(causerID) + "/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lime agent tags: status %d: %s", resp.StatusCode, string(raw))
	}

	var env agentTagsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("lime decode error: %w", err)
	}
	return env.Data, nil
}
