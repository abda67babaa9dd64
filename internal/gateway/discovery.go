package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

const metadataCacheTTL = 30 * time.Minute

type metadataCacheEntry struct {
	rsMeta    *oauthwire.ProtectedResourceMetadata
	asMeta    *oauthwire.AuthorizationServerMetadata
	fetchedAt time.Time
}

// Discoverer resolves an upstream RS's protected-resource and authorization-server
// metadata, deduplicating concurrent lookups per origin with singleflight the
// same way the teacher's oauth.Client deduplicates its own metadata fetches.
type Discoverer struct {
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]*metadataCacheEntry

	group singleflight.Group

	fallbackRSMeta string
}

// NewDiscoverer builds a Discoverer. fallbackRSMeta is the configured PRM
// URL consulted when the unauthenticated probe fails to yield one.
func NewDiscoverer(fallbackRSMeta string) *Discoverer {
	return &Discoverer{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		cache:          make(map[string]*metadataCacheEntry),
		fallbackRSMeta: fallbackRSMeta,
	}
}

// Discover runs the gateway's discovery state machine: probe the upstream RS
// unauthenticated, parse the WWW-Authenticate challenge, fetch RS metadata
// (RFC 9728), then AS metadata (RFC 8414) for the first advertised
// authorization server.
func (d *Discoverer) Discover(ctx context.Context, upstream, probePath string) (*oauthwire.ProtectedResourceMetadata, *oauthwire.AuthorizationServerMetadata, error) {
	rsMeta, err := d.discoverRSMetadata(ctx, upstream, probePath)
	if err != nil {
		return nil, nil, err
	}

	if len(rsMeta.AuthorizationServers) == 0 {
		return nil, nil, fmt.Errorf("protected resource metadata has no authorization_servers")
	}
	asOrigin := rsMeta.AuthorizationServers[0]

	asMeta, err := d.fetchASMetadata(ctx, asOrigin)
	if err != nil {
		return nil, nil, err
	}

	return rsMeta, asMeta, nil
}

func (d *Discoverer) discoverRSMetadata(ctx context.Context, upstream, probePath string) (*oauthwire.ProtectedResourceMetadata, error) {
	key := "rs:" + upstream
	if cached := d.cachedRS(key); cached != nil {
		return cached, nil
	}

	result, err, _ := d.group.Do(key, func() (interface{}, error) {
		if cached := d.cachedRS(key); cached != nil {
			return cached, nil
		}
		return d.doDiscoverRSMetadata(ctx, upstream, probePath)
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauthwire.ProtectedResourceMetadata), nil
}

func (d *Discoverer) doDiscoverRSMetadata(ctx context.Context, upstream, probePath string) (*oauthwire.ProtectedResourceMetadata, error) {
	probeURL := strings.TrimSuffix(upstream, "/") + probePath

	metadataURL := d.fallbackRSMeta
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err == nil {
		resp, probeErr := d.httpClient.Do(req)
		if probeErr == nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				params := oauthwire.ParseWWWAuthenticate(resp.Header.Get("WWW-Authenticate"))
				if params.IsBearerChallenge() && params.ResourceMetadataURL != "" {
					metadataURL = params.ResourceMetadataURL
				}
			}
		} else {
			logging.Debug("gateway", "discovery probe failed for %s: %v", probeURL, probeErr)
		}
	}

	if metadataURL == "" {
		return nil, fmt.Errorf("discovery failed: no resource_metadata from probe and no fallback RS_META configured")
	}

	meta, err := d.fetchRSMetadataDocument(ctx, metadataURL)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	entry := &metadataCacheEntry{rsMeta: meta, fetchedAt: time.Now()}
	d.mu.Lock()
	d.cache["rs:"+upstream] = entry
	d.mu.Unlock()

	return meta, nil
}

func (d *Discoverer) fetchRSMetadataDocument(ctx context.Context, url string) (*oauthwire.ProtectedResourceMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch protected resource metadata: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var meta oauthwire.ProtectedResourceMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("parse protected resource metadata: %w", err)
	}
	return &meta, nil
}

func (d *Discoverer) fetchASMetadata(ctx context.Context, asOrigin string) (*oauthwire.AuthorizationServerMetadata, error) {
	key := "as:" + asOrigin
	if cached := d.cachedAS(key); cached != nil {
		return cached, nil
	}

	result, err, _ := d.group.Do(key, func() (interface{}, error) {
		if cached := d.cachedAS(key); cached != nil {
			return cached, nil
		}
		return d.doFetchASMetadata(ctx, asOrigin)
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauthwire.AuthorizationServerMetadata), nil
}

func (d *Discoverer) doFetchASMetadata(ctx context.Context, asOrigin string) (*oauthwire.AuthorizationServerMetadata, error) {
	wellKnown := asOrigin
	if !strings.HasSuffix(wellKnown, "/.well-known/oauth-authorization-server") {
		wellKnown = strings.TrimSuffix(asOrigin, "/") + "/.well-known/oauth-authorization-server"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch authorization server metadata: status=%d", resp.StatusCode)
	}

	var meta oauthwire.AuthorizationServerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("parse authorization server metadata: %w", err)
	}

	d.mu.Lock()
	d.cache["as:"+asOrigin] = &metadataCacheEntry{asMeta: &meta, fetchedAt: time.Now()}
	d.mu.Unlock()

	return &meta, nil
}

func (d *Discoverer) cachedRS(key string) *oauthwire.ProtectedResourceMetadata {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[key]
	if !ok || time.Since(entry.fetchedAt) >= metadataCacheTTL {
		return nil
	}
	return entry.rsMeta
}

func (d *Discoverer) cachedAS(key string) *oauthwire.AuthorizationServerMetadata {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[key]
	if !ok || time.Since(entry.fetchedAt) >= metadataCacheTTL {
		return nil
	}
	return entry.asMeta
}
