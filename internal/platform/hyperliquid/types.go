package hyperliquid

// Wire types for the Hyperliquid REST API. Numeric fields arrive as strings;
// conversion to typed values happens in the client so shape problems surface
// as malformed-upstream errors instead of silent zeroes.

// marginSummary is the account-level margin block of clearinghouseState.
type marginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

// assetPosition is one entry of the assetPositions list.
type assetPosition struct {
	Type     string `json:"type"`
	Position struct {
		Coin     string `json:"coin"`
		Szi      string `json:"szi"`
		EntryPx  string `json:"entryPx"`
		Leverage struct {
			Type  string `json:"type"`
			Value int    `json:"value"`
		} `json:"leverage"`
		MarginUsed     string `json:"marginUsed"`
		UnrealizedPnl  string `json:"unrealizedPnl"`
		LiquidationPx  string `json:"liquidationPx"`
		PositionValue  string `json:"positionValue"`
		ReturnOnEquity string `json:"returnOnEquity"`
	} `json:"position"`
}

// clearinghouseState is the response to an {"type":"clearinghouseState"} info
// request.
type clearinghouseState struct {
	MarginSummary  marginSummary   `json:"marginSummary"`
	Withdrawable   string          `json:"withdrawable"`
	AssetPositions []assetPosition `json:"assetPositions"`
}

// metaAsset is one perp asset descriptor from the meta universe.
type metaAsset struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
}

// metaResponse is the response to an {"type":"meta"} info request.
type metaResponse struct {
	Universe []metaAsset `json:"universe"`
}

// limitTif wraps the time-in-force for a limit order wire.
type limitTif struct {
	Tif string `msgpack:"tif" json:"tif"`
}

// orderTypeWire selects the order type. Only limit orders exist on the wire;
// a market order is an aggressively priced IOC limit.
type orderTypeWire struct {
	Limit limitTif `msgpack:"limit" json:"limit"`
}

// orderWire is one order inside an order action. Field order matters: the
// action signature is computed over the msgpack encoding, which must match
// the canonical a/b/p/s/r/t/c layout byte for byte.
type orderWire struct {
	Asset      int           `msgpack:"a" json:"a"`
	IsBuy      bool          `msgpack:"b" json:"b"`
	LimitPx    string        `msgpack:"p" json:"p"`
	Size       string        `msgpack:"s" json:"s"`
	ReduceOnly bool          `msgpack:"r" json:"r"`
	Type       orderTypeWire `msgpack:"t" json:"t"`
	Cloid      string        `msgpack:"c" json:"c"`
}

// orderAction is the exchange action that places orders.
type orderAction struct {
	Type     string      `msgpack:"type" json:"type"`
	Orders   []orderWire `msgpack:"orders" json:"orders"`
	Grouping string      `msgpack:"grouping" json:"grouping"`
}

// leverageAction is the exchange action that sets leverage for an asset.
type leverageAction struct {
	Type     string `msgpack:"type" json:"type"`
	Asset    int    `msgpack:"asset" json:"asset"`
	IsCross  bool   `msgpack:"isCross" json:"isCross"`
	Leverage int    `msgpack:"leverage" json:"leverage"`
}

// rsvSignature is the signature block of an exchange request.
type rsvSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// exchangeRequest is the POST /exchange envelope.
type exchangeRequest struct {
	Action       any          `json:"action"`
	Nonce        uint64       `json:"nonce"`
	Signature    rsvSignature `json:"signature"`
	VaultAddress *string      `json:"vaultAddress"`
}

// orderStatus is one per-order status in an exchange response.
type orderStatus struct {
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Filled *struct {
		Oid     int64  `json:"oid"`
		TotalSz string `json:"totalSz"`
		AvgPx   string `json:"avgPx"`
	} `json:"filled,omitempty"`
	Error string `json:"error,omitempty"`
}

// exchangeResponse is the POST /exchange response envelope.
type exchangeResponse struct {
	Status   string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []orderStatus `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}
