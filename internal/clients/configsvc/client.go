// Package configsvc calls the deployment configuration service to
// resolve search widgets by deployment id.
package configsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VonteruManoj/GenMan/internal/cache"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/search"
	"github.com/VonteruManoj/GenMan/internal/utils"
)

type Client interface {
	// GetSearchWidgetByDeploymentID resolves the widget configured for a
	// deployment. Returns nil when the widget is missing or inactive.
	GetSearchWidgetByDeploymentID(ctx context.Context, orgID int, deploymentID string) (*search.SearchWidget, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
}

func NewClient(log *logger.Logger, c cache.Cache) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("CONFIG_SVC_URL", "", log)), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing CONFIG_SVC_URL")
	}
	timeout := utils.GetEnvAsInt("CONFIG_SVC_TIMEOUT_SECONDS", 10, log)
	ttl := utils.GetEnvAsInt("CONFIG_SVC_CACHE_TTL_SECONDS", 60, log)

	return &client{
		log:        log.With("service", "ConfigSvcClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		cache:      c,
		cacheTTL:   time.Duration(ttl) * time.Second,
	}, nil
}

type widgetEnvelope struct {
	Data *search.SearchWidget `json:"data"`
}

func (c *client) GetSearchWidgetByDeploymentID(ctx context.Context, orgID int, deploymentID string) (*search.SearchWidget, error) {
	key := "config-svc:search-widget:" + strconv.Itoa(orgID) + ":" + deploymentID

	widget, err := cache.Remember(ctx, c.cache, key, c.cacheTTL, func(ctx context.Context) (*search.SearchWidget, error) {
		return c.fetchWidget(ctx, orgID, deploymentID)
	})
	if err != nil {
		return nil, err
	}
	if widget == nil || !widget.Active {
		return nil, nil
	}
	return widget, nil
}

func (c *client) fetchWidget(ctx context.Context, orgID int, deploymentID string) (*search.SearchWidget, error) {
	url := c.baseURL + "/config-svc/search-widgets/deployments/" + deploymentID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Org-Id", strconv.Itoa(orgID))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("config-svc: status %d: %s", resp.StatusCode, string(raw))
	}

	var env widgetEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("config-svc decode error: %w", err)
	}
	return env.Data, nil
}
