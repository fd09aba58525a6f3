package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/fatumlabs/fatum/internal/application/domain"
	"github.com/fatumlabs/fatum/internal/application/ports"
	"github.com/fatumlabs/fatum/internal/logger"
)

const (
	// maxWalkAttempts bounds the backwards round walk for a single pulse.
	maxWalkAttempts = 5
	// maxBulkFailures bounds tolerated transport failures during a bulk fetch.
	maxBulkFailures = 10
)

// curbyHTTPClient implements ports.RandomnessBeacon against the CURBy
// public randomness beacon HTTP API.
type curbyHTTPClient struct {
	client    *nethttp.Client
	baseURL   string
	chainName string

	// Chain ID is resolved once per client lifetime and never expires.
	mu           sync.Mutex
	chainIDCache string
}

// NewCurbyHTTPAdapter is the constructor used from main.go. The timeout
// bounds every beacon round-trip so a slow service cannot stall callers.
func NewCurbyHTTPAdapter(baseURL, chainName string, timeout time.Duration) ports.RandomnessBeacon {
	return &curbyHTTPClient{
		client:    &nethttp.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		chainName: chainName,
	}
}

// Wire shapes. The beacon nests content-addressed identifiers under a
// "/" key, and pulse randomness under payload.randomness."/".bytes.
type chainResponse struct {
	Cid  cidRef    `json:"cid"`
	Data chainData `json:"data"`
}

type cidRef struct {
	Slash string `json:"/"`
}

type chainData struct {
	Content chainContent `json:"content"`
}

type chainContent struct {
	Meta chainMeta `json:"meta"`
}

type chainMeta struct {
	Name *string `json:"name"`
}

type pulseResponse struct {
	Data pulseData `json:"data"`
}

type pulseData struct {
	Content pulseContent `json:"content"`
}

type pulseContent struct {
	Payload pulsePayload `json:"payload"`
}

type pulsePayload struct {
	Stage      string             `json:"stage"`
	Round      uint64             `json:"round"`
	Randomness *randomnessWrapper `json:"randomness"`
}

type randomnessWrapper struct {
	Slash randomnessBytes `json:"/"`
}

type randomnessBytes struct {
	Bytes string `json:"bytes"`
}

// ResolveChain finds the configured chain by name in the beacon's chain
// listing and caches its identifier.
func (c *curbyHTTPClient) ResolveChain(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainIDCache != "" {
		return c.chainIDCache, nil
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/api/chains", c.baseURL))
	if err != nil {
		return "", err
	}

	var chains []chainResponse
	if err := json.Unmarshal(body, &chains); err != nil {
		return "", fmt.Errorf("parse chains list: %w", err)
	}

	for _, chain := range chains {
		if chain.Data.Content.Meta.Name != nil && *chain.Data.Content.Meta.Name == c.chainName {
			c.chainIDCache = chain.Cid.Slash
			return c.chainIDCache, nil
		}
	}

	return "", fmt.Errorf("%q: %w", c.chainName, domain.ErrChainNotFound)
}

// FetchLatestRound returns the most recent pulse on the chain.
func (c *curbyHTTPClient) FetchLatestRound(ctx context.Context, chainID string) (domain.Pulse, error) {
	return c.fetchPulse(ctx, fmt.Sprintf("%s/api/chains/%s/pulses/latest", c.baseURL, chainID))
}

// FetchRound returns the pulse at a specific round. A stage other than
// "randomness" or an absent payload yields a pulse without bytes, not
// an error.
func (c *curbyHTTPClient) FetchRound(ctx context.Context, chainID string, round domain.Round) (domain.Pulse, error) {
	return c.fetchPulse(ctx, fmt.Sprintf("%s/api/chains/%s/pulses/%d", c.baseURL, chainID, round))
}

func (c *curbyHTTPClient) fetchPulse(ctx context.Context, url string) (domain.Pulse, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return domain.Pulse{}, err
	}

	var resp pulseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Pulse{}, fmt.Errorf("parse pulse: %w", err)
	}

	payload := resp.Data.Content.Payload
	pulse := domain.Pulse{
		Round: domain.Round(payload.Round),
		Stage: payload.Stage,
	}

	if payload.Stage != domain.StageRandomness || payload.Randomness == nil {
		return pulse, nil
	}

	bytes, err := decodeRandomness(payload.Randomness.Slash.Bytes)
	if err != nil {
		// A malformed payload is attributable to this round only.
		return pulse, fmt.Errorf("decode randomness for round %d: %w", payload.Round, err)
	}
	pulse.Bytes = bytes
	return pulse, nil
}

// FetchSinglePulse walks backwards from the latest round, returning the
// first usable payload found within the attempt window.
func (c *curbyHTTPClient) FetchSinglePulse(ctx context.Context) (domain.Pulse, error) {
	chainID, err := c.ResolveChain(ctx)
	if err != nil {
		return domain.Pulse{}, err
	}

	latest, err := c.FetchLatestRound(ctx, chainID)
	if err != nil {
		return domain.Pulse{}, fmt.Errorf("fetch latest pulse: %w", err)
	}

	round := latest.Round
	for attempt := 0; attempt < maxWalkAttempts; attempt++ {
		pulse, err := c.FetchRound(ctx, chainID, round)
		if err != nil {
			// Per-round failure; keep walking.
			logger.Debug("Pulse fetch failed for round %d: %v", round, err)
		} else if pulse.Usable() {
			return pulse, nil
		}

		if round == 0 {
			break
		}
		round--
	}

	return domain.Pulse{}, domain.ErrNoUsableEntropy
}

// FetchBulkRandomness accumulates decoded payloads walking backwards
// through rounds until at least minBytes have been collected.
func (c *curbyHTTPClient) FetchBulkRandomness(ctx context.Context, minBytes int) ([]byte, error) {
	chainID, err := c.ResolveChain(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := c.FetchLatestRound(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("fetch latest pulse: %w", err)
	}

	logger.Debug("Starting bulk fetch: goal %d bytes, starting round %d", minBytes, latest.Round)

	buffer := make([]byte, 0, minBytes)
	round := latest.Round
	failures := 0

	for len(buffer) < minBytes {
		pulse, err := c.FetchRound(ctx, chainID, round)
		if err != nil {
			logger.Warn("Bulk fetch failed for round %d: %v", round, err)
			failures++
		} else if pulse.Usable() {
			buffer = append(buffer, pulse.Bytes...)
		}

		if failures > maxBulkFailures {
			return nil, fmt.Errorf("too many failures fetching randomness: %w", domain.ErrNoUsableEntropy)
		}
		if round == 0 {
			if len(buffer) < minBytes {
				return nil, fmt.Errorf("reached round 0 short of %d bytes: %w", minBytes, domain.ErrNoUsableEntropy)
			}
			break
		}
		round--
	}

	return buffer, nil
}

func (c *curbyHTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("beacon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("beacon returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read beacon response: %w", err)
	}
	return body, nil
}

// decodeRandomness pads the payload to a multiple of 4 characters with
// '=' before standard base64 decoding.
func decodeRandomness(encoded string) ([]byte, error) {
	for len(encoded)%4 != 0 {
		encoded += "="
	}
	return base64.StdEncoding.DecodeString(encoded)
}
