package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vidfriends/vidclient/internal/models"
)

// tokenEnvelope covers every token response shape the backend produces:
// fields at the top level or nested under "data".
type tokenEnvelope struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	UserID       json.RawMessage `json:"userId"`
	Data         *struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		UserID       json.RawMessage `json:"userId"`
	} `json:"data"`
}

// ParseTokens extracts credentials from an auth response body. Top-level
// fields win over fields under "data". A refresh_token cookie is used when
// the body carries no refresh token.
func ParseTokens(resp *Response) (models.SessionTokens, error) {
	var env tokenEnvelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return models.SessionTokens{}, fmt.Errorf("decode token response: %w", err)
		}
	}

	tokens := models.SessionTokens{
		AccessToken:  env.AccessToken,
		RefreshToken: env.RefreshToken,
		UserID:       rawID(env.UserID),
	}
	if env.Data != nil {
		if tokens.AccessToken == "" {
			tokens.AccessToken = env.Data.AccessToken
		}
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = env.Data.RefreshToken
		}
		if tokens.UserID == "" {
			tokens.UserID = rawID(env.Data.UserID)
		}
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = cookieValue(resp.Header, "refresh_token")
	}
	return tokens, nil
}

// rawID accepts ids sent as JSON strings or numbers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func cookieValue(header http.Header, name string) string {
	resp := http.Response{Header: header}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
