package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type identityKey struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

type contractDataParams struct {
	ContractID string      `json:"contractId"`
	Network    Network     `json:"network"`
	Key        identityKey `json:"key"`
}

type eventsParams struct {
	Network     Network  `json:"network"`
	ContractIDs []string `json:"contractIds"`
	Cursor      string   `json:"cursor,omitempty"`
}

// ContractEventsPage is one page of the gateway's event feed.
type ContractEventsPage struct {
	// Events is never nil; an empty page decodes to an empty slice.
	Events []json.RawMessage `json:"events"`
	// Cursor is the token to resume the feed from. Empty when the gateway
	// supplied none.
	Cursor string `json:"cursor,omitempty"`
}

// GetIdentityState fetches the on-ledger identity record for address from
// the trust registry contract. The payload is returned as-is; interpreting
// it is the caller's concern.
func (c *Client) GetIdentityState(ctx context.Context, address string) (json.RawMessage, error) {
	if strings.TrimSpace(address) == "" {
		return nil, &Error{Kind: KindConfig, Message: "address is required"}
	}
	return c.Call(ctx, "getContractData", contractDataParams{
		ContractID: c.cfg.ContractID,
		Network:    c.cfg.Network,
		Key:        identityKey{Type: "identity", Address: address},
	})
}

// GetContractEvents fetches one page of the trust registry's event feed.
// Pass the Cursor from the previous page to resume; pass "" to start from
// the beginning.
func (c *Client) GetContractEvents(ctx context.Context, cursor string) (*ContractEventsPage, error) {
	params := eventsParams{
		Network:     c.cfg.Network,
		ContractIDs: []string{c.cfg.ContractID},
		Cursor:      cursor,
	}
	result, attempts, err := c.call(ctx, "getEvents", params)
	if err != nil {
		return nil, err
	}

	var feed struct {
		Events       []json.RawMessage `json:"events"`
		LatestCursor *string           `json:"latestCursor"`
		Cursor       *string           `json:"cursor"`
	}
	if err := json.Unmarshal(result, &feed); err != nil {
		return nil, &Error{
			Kind:     KindParse,
			Message:  fmt.Sprintf("decode events feed: %v", err),
			Attempts: attempts,
			Cause:    err,
		}
	}

	page := &ContractEventsPage{Events: feed.Events}
	if page.Events == nil {
		page.Events = []json.RawMessage{}
	}
	// latestCursor wins over the older cursor field when both are present.
	switch {
	case feed.LatestCursor != nil:
		page.Cursor = *feed.LatestCursor
	case feed.Cursor != nil:
		page.Cursor = *feed.Cursor
	}
	return page, nil
}
