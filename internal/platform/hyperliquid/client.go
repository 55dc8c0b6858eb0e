// Package hyperliquid is the REST client for the Hyperliquid exchange API.
// It implements the account gateway (info endpoint) and the order submitter
// (signed exchange endpoint) against a single base URL.
package hyperliquid

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/hlcopy/hlcopybot/internal/domain"
)

// Client talks to the Hyperliquid info and exchange endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	privateKey *ecdsa.PrivateKey
	testnet    bool

	// slippagePercent bounds the IOC order price around the mid price.
	slippagePercent float64

	metaMu    sync.Mutex
	metaCache map[string]assetInfo // coin -> index + decimals, fetched once
}

// assetInfo is the cached per-coin metadata needed to build order wires.
type assetInfo struct {
	Index      int
	SzDecimals int
}

// NewClient creates a Hyperliquid REST client.
//
// baseURL is the API root, e.g. "https://api.hyperliquid.xyz".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:          logger.With(slog.String("component", "hyperliquid")),
		slippagePercent: 5.0,
	}
}

// SetPrivateKey loads the hex-encoded secp256k1 signing key (with or without
// 0x prefix) used for exchange actions.
func (c *Client) SetPrivateKey(hexKey string) error {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return fmt.Errorf("hyperliquid: parse private key: %w", err)
	}
	c.privateKey = key
	return nil
}

// SetTestnet switches action signing to the testnet source.
func (c *Client) SetTestnet(testnet bool) {
	c.testnet = testnet
}

// SetSlippagePercent overrides the default 5% IOC price bound.
func (c *Client) SetSlippagePercent(p float64) {
	if p >= 0 {
		c.slippagePercent = p
	}
}

// FetchSnapshot performs one clearinghouseState round-trip for the given
// wallet and derives the cycle's account snapshot from it. Transport failures
// and non-2xx responses wrap domain.ErrUpstreamUnavailable; undecodable or
// misshapen payloads wrap domain.ErrMalformedUpstream. Either way the caller
// aborts the cycle.
func (c *Client) FetchSnapshot(ctx context.Context, wallet string) (domain.AccountSnapshot, error) {
	body, err := c.doInfo(ctx, map[string]string{
		"type": "clearinghouseState",
		"user": wallet,
	})
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("hyperliquid: fetch account state: %w", err)
	}

	var state clearinghouseState
	if err := json.Unmarshal(body, &state); err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("hyperliquid: decode account state: %w: %w", domain.ErrMalformedUpstream, err)
	}

	positions, err := extractOpenPositions(state)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("hyperliquid: %w", err)
	}

	return domain.AccountSnapshot{
		Equity:    resolveEquity(state),
		Positions: positions,
	}, nil
}

// resolveEquity returns the account value, falling back to the withdrawable
// balance when the primary field is absent, zero, or unparsable. Everything
// failing resolves to 0, which the sizer treats as insufficient funds.
func resolveEquity(state clearinghouseState) float64 {
	equity, err := strconv.ParseFloat(state.MarginSummary.AccountValue, 64)
	if err != nil {
		equity = 0
	}
	if equity <= 0 {
		if w, err := strconv.ParseFloat(state.Withdrawable, 64); err == nil {
			equity = w
		}
	}
	return equity
}

// extractOpenPositions converts assetPositions entries into open positions.
// Entries with zero net size contribute nothing; the sign of szi selects the
// direction and the magnitude is always positive.
func extractOpenPositions(state clearinghouseState) ([]domain.OpenPosition, error) {
	var positions []domain.OpenPosition
	for _, entry := range state.AssetPositions {
		szi, err := strconv.ParseFloat(entry.Position.Szi, 64)
		if err != nil {
			return nil, fmt.Errorf("parse position size for %s: %w: %w",
				entry.Position.Coin, domain.ErrMalformedUpstream, err)
		}
		if szi == 0 {
			continue
		}

		side := domain.SideLong
		size := szi
		if szi < 0 {
			side = domain.SideShort
			size = -szi
		}

		positions = append(positions, domain.OpenPosition{
			Coin: entry.Position.Coin,
			Side: side,
			Size: size,
		})
	}
	return positions, nil
}

// allMids returns the current mid price per coin as reported by the venue.
func (c *Client) allMids(ctx context.Context) (map[string]string, error) {
	body, err := c.doInfo(ctx, map[string]string{"type": "allMids"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: fetch mids: %w", err)
	}

	var mids map[string]string
	if err := json.Unmarshal(body, &mids); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode mids: %w: %w", domain.ErrMalformedUpstream, err)
	}
	return mids, nil
}

// assetInfoFor returns the asset index and size decimals for a coin. The meta
// universe is fetched once and cached for the process lifetime: perp listings
// change rarely enough that a restart is an acceptable refresh.
func (c *Client) assetInfoFor(ctx context.Context, coin string) (assetInfo, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	if c.metaCache == nil {
		body, err := c.doInfo(ctx, map[string]string{"type": "meta"})
		if err != nil {
			return assetInfo{}, fmt.Errorf("hyperliquid: fetch meta: %w", err)
		}

		var meta metaResponse
		if err := json.Unmarshal(body, &meta); err != nil {
			return assetInfo{}, fmt.Errorf("hyperliquid: decode meta: %w: %w", domain.ErrMalformedUpstream, err)
		}

		c.metaCache = make(map[string]assetInfo, len(meta.Universe))
		for i, asset := range meta.Universe {
			c.metaCache[asset.Name] = assetInfo{Index: i, SzDecimals: asset.SzDecimals}
		}
	}

	info, ok := c.metaCache[coin]
	if !ok {
		return assetInfo{}, fmt.Errorf("hyperliquid: unknown coin %q", coin)
	}
	return info, nil
}

// doInfo posts a JSON payload to the /info endpoint and returns the raw body.
func (c *Client) doInfo(ctx context.Context, payload any) ([]byte, error) {
	return c.doPost(ctx, "/info", payload)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d: %s",
			domain.ErrUpstreamUnavailable, resp.StatusCode, truncate(respBody, 256))
	}

	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
