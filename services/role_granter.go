package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RoleGranter performs the actual Discord role grant. Implemented by the
// bot gateway client; the core only ever talks to this interface so no
// Discord dependency leaks into the ledger.
type RoleGranter interface {
	GrantRole(ctx context.Context, discordUserID, discordGuildID, discordRoleID int64) error
}

// GatewayRoleGranter posts grants to the bot gateway. Fire-and-forget from
// the core's perspective: failures are reported to the caller (the outbox
// worker), which logs and retries on its own schedule.
type GatewayRoleGranter struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewGatewayRoleGranter(baseURL, token string) *GatewayRoleGranter {
	return &GatewayRoleGranter{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GrantRole calls POST /roles/grant on the gateway.
func (c *GatewayRoleGranter) GrantRole(ctx context.Context, discordUserID, discordGuildID, discordRoleID int64) error {
	url := fmt.Sprintf("%s/roles/grant", c.BaseURL)

	reqBody := map[string]any{
		"user_id":  discordUserID,
		"guild_id": discordGuildID,
		"role_id":  discordRoleID,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway grant returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
