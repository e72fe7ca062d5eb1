// Package connectorsvc lists an org's configured content connectors
// from the connectors service.
package connectorsvc

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
	// GetAllConnectors returns the org's active connectors with their
	// connector type attached.
	GetAllConnectors(ctx context.Context, orgID int) ([]search.Connector, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
}

func NewClient(log *logger.Logger, c cache.Cache) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("CONNECTOR_SVC_URL", "", log)), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing CONNECTOR_SVC_URL")
	}
	timeout := utils.GetEnvAsInt("CONNECTOR_SVC_TIMEOUT_SECONDS", 10, log)
	ttl := utils.GetEnvAsInt("CONNECTOR_SVC_CACHE_TTL_SECONDS", 60, log)

	return &client{
		log:        log.With("service", "ConnectorSvcClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		cache:      c,
		cacheTTL:   time.Duration(ttl) * time.Second,
	}, nil
}

type connectorTypesEnvelope struct {
	Data []search.ConnectorType `json:"data"`
}

type connectorsEnvelope struct {
	Data []search.Connector `json:"data"`
}

func (c *client) GetAllConnectors(ctx context.Context, orgID int) ([]search.Connector, error) {
	key := "connector-svc:connectors:" + strconv.Itoa(orgID)

	return cache.Remember(ctx, c.cache, key, c.cacheTTL, func(ctx context.Context) ([]search.Connector, error) {
		return c.fetchConnectors(ctx, orgID)
	})
}

// fetchConnectors walks active connector types, then each type's
// connectors, keeping only active ones.
func (c *client) fetchConnectors(ctx context.Context, orgID int) ([]search.Connector, error) {
	var typesEnv connectorTypesEnvelope
	if err := c.get(ctx, orgID, "/connector-svc/connector-types", &typesEnv); err != nil {
		return nil, err
	}

	connectors := []search.Connector{}
	for _, ct := range typesEnv.Data {
		if !ct.Active {
			continue
		}
		ct := ct

		var connEnv connectorsEnvelope
		path := "/connector-svc/connector-types/" + strconv.Itoa(ct.ID) + "/connectors"
		if err := c.get(ctx, orgID, path, &connEnv); err != nil {
			return nil, err
		}
		for _, conn := range connEnv.Data {
			if !conn.Active {
				continue
			}
			conn.ConnectorType = &ct
			connectors = append(connectors, conn)
		}
	}
	return connectors, nil
}

func (c *client) get(ctx context.Context, orgID int, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Org-Id", strconv.Itoa(orgID))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("connector-svc %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("connector-svc decode error: %w", err)
	}
	return nil
}
