package hyperliquid

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hlcopy/hlcopybot/internal/domain"
)

// Submit implements domain.OrderSubmitter. It converts the USD notional into
// a token size at the current mid price, applies the requested leverage
// best-effort, and places an aggressively priced IOC limit order (the venue's
// market-equivalent). Every failure is returned to the caller; the leverage
// retry ladder lives in the reconciliation engine, not here.
func (c *Client) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if c.privateKey == nil {
		return domain.OrderResult{}, errors.New("hyperliquid: no signing key configured")
	}
	if !req.Side.Valid() {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: invalid side %q", req.Side)
	}
	if req.NotionalUSD <= 0 {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: non-positive notional %f", req.NotionalUSD)
	}

	info, err := c.assetInfoFor(ctx, req.Coin)
	if err != nil {
		return domain.OrderResult{}, err
	}

	mids, err := c.allMids(ctx)
	if err != nil {
		return domain.OrderResult{}, err
	}
	midStr, ok := mids[req.Coin]
	if !ok {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: no mid price for %q", req.Coin)
	}
	mid, err := decimal.NewFromString(midStr)
	if err != nil || !mid.IsPositive() {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: bad mid price %q for %s: %w",
			midStr, req.Coin, domain.ErrMalformedUpstream)
	}

	isBuy := req.Side == domain.SideLong

	size := decimal.NewFromFloat(req.NotionalUSD).Div(mid).Round(int32(info.SzDecimals))
	if !size.IsPositive() {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: notional %.2f too small for %s at mid %s",
			req.NotionalUSD, req.Coin, mid)
	}

	price := slippagePrice(mid, isBuy, c.slippagePercent, info.SzDecimals)

	// Leverage application is best-effort: a rejection here (margin tier,
	// existing isolated position) should not abort the order attempt.
	if err := c.updateLeverage(ctx, info.Index, req.Leverage); err != nil {
		c.logger.WarnContext(ctx, "leverage update failed, placing order anyway",
			slog.String("coin", req.Coin),
			slog.Int("leverage", req.Leverage),
			slog.String("error", err.Error()),
		)
	}

	cloid := newCloid()
	action := orderAction{
		Type: "order",
		Orders: []orderWire{{
			Asset:      info.Index,
			IsBuy:      isBuy,
			LimitPx:    price.String(),
			Size:       size.String(),
			ReduceOnly: false,
			Type:       orderTypeWire{Limit: limitTif{Tif: "Ioc"}},
			Cloid:      cloid,
		}},
		Grouping: "na",
	}

	statuses, err := c.postAction(ctx, action)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if len(statuses) == 0 {
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: empty order status: %w", domain.ErrMalformedUpstream)
	}

	st := statuses[0]
	switch {
	case st.Error != "":
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: order rejected: %s", st.Error)
	case st.Filled != nil:
		filled, _ := strconv.ParseFloat(st.Filled.TotalSz, 64)
		avg, _ := strconv.ParseFloat(st.Filled.AvgPx, 64)
		return domain.OrderResult{
			OrderID:     strconv.FormatInt(st.Filled.Oid, 10),
			ClientOrder: cloid,
			FilledSize:  filled,
			AvgPrice:    avg,
		}, nil
	case st.Resting != nil:
		// An IOC order should never rest, but treat a resting ack as placed.
		return domain.OrderResult{
			OrderID:     strconv.FormatInt(st.Resting.Oid, 10),
			ClientOrder: cloid,
		}, nil
	default:
		return domain.OrderResult{}, fmt.Errorf("hyperliquid: unrecognized order status: %w", domain.ErrMalformedUpstream)
	}
}

// updateLeverage sets cross leverage for the asset ahead of an order.
func (c *Client) updateLeverage(ctx context.Context, asset, leverage int) error {
	action := leverageAction{
		Type:     "updateLeverage",
		Asset:    asset,
		IsCross:  true,
		Leverage: leverage,
	}

	_, err := c.postAction(ctx, action)
	return err
}

// postAction signs an exchange action and posts it, returning the per-order
// statuses of an "ok" response and an error otherwise.
func (c *Client) postAction(ctx context.Context, action any) ([]orderStatus, error) {
	nonce := uint64(time.Now().UnixMilli())

	sig, err := signL1Action(c.privateKey, action, nonce, c.testnet)
	if err != nil {
		return nil, err
	}

	body, err := c.doPost(ctx, "/exchange", exchangeRequest{
		Action:       action,
		Nonce:        nonce,
		Signature:    sig,
		VaultAddress: nil,
	})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: post exchange action: %w", err)
	}

	var resp exchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode exchange response: %w: %w", domain.ErrMalformedUpstream, err)
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("hyperliquid: exchange action failed: %s", truncate(body, 256))
	}

	return resp.Response.Data.Statuses, nil
}

// slippagePrice returns the IOC limit price: mid shifted by the slippage
// bound in the aggressive direction, trimmed to 5 significant figures and the
// venue's per-asset decimal limit, matching the venue's price validation.
func slippagePrice(mid decimal.Decimal, isBuy bool, slippagePercent float64, szDecimals int) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + slippagePercent/100)
	if !isBuy {
		factor = decimal.NewFromFloat(1 - slippagePercent/100)
	}
	px := mid.Mul(factor)

	// 5 significant figures via float round-trip, then the decimal cap.
	f, _ := px.Float64()
	rounded, err := decimal.NewFromString(strconv.FormatFloat(f, 'g', 5, 64))
	if err != nil {
		rounded = px
	}

	maxDecimals := int32(6 - szDecimals)
	if maxDecimals < 0 {
		maxDecimals = 0
	}
	return rounded.Round(maxDecimals)
}

// newCloid returns a fresh 16-byte client order id in the venue's 0x-hex form.
func newCloid() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}
