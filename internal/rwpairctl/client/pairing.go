package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
)

// IssueToken requests a fresh pairing token for a pending device
func (c *Client) IssueToken(ctx context.Context, req *v1alpha1.PairingTokenRequest) (*v1alpha1.PairingTokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1alpha1/pairing/tokens", req)
	if err != nil {
		return nil, err
	}

	var token v1alpha1.PairingTokenResponse
	if err := decodeResponse(resp, &token); err != nil {
		return nil, fmt.Errorf("error issuing pairing token: %w", err)
	}
	return &token, nil
}

// GetPairingStatus reads the current status of a pairing token. Unknown
// and expired tokens are reported in the body with a 200, so any error
// here means the server could not be asked.
func (c *Client) GetPairingStatus(ctx context.Context, token string) (v1alpha1.PairingStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1alpha1/pairing/tokens/"+token, nil)
	if err != nil {
		return "", err
	}

	var status v1alpha1.PairingStatusResponse
	if err := decodeResponse(resp, &status); err != nil {
		return "", fmt.Errorf("error checking pairing status: %w", err)
	}
	return status.Status, nil
}

// Redeem consumes a pairing token on behalf of a secondary device.
// Redemption failures carry a reason in the response body alongside a
// 4xx status, so those decode into an unsuccessful RedeemResponse
// rather than an error.
func (c *Client) Redeem(ctx context.Context, req *v1alpha1.RedeemRequest) (*v1alpha1.RedeemResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1alpha1/pairing/redeem", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK,
		http.StatusNotFound,
		http.StatusGone,
		http.StatusConflict:
		var result v1alpha1.RedeemResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("error decoding redemption response: %w", err)
		}
		return &result, nil
	default:
		return nil, handleResponse(resp)
	}
}
