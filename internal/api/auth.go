package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// AccountMode selects between personal and business bookkeeping
type AccountMode string

const (
	AccountModeIndividual   AccountMode = "individual"
	AccountModeOrganization AccountMode = "company"
)

// ParseAccountMode accepts the wire values plus "organization" as an alias
func ParseAccountMode(s string) (AccountMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual":
		return AccountModeIndividual, nil
	case "company", "organization":
		return AccountModeOrganization, nil
	}
	return "", fmt.Errorf("invalid account mode %q: must be individual or organization", s)
}

// IdentityID is the server's user id. The backend sends a number; stored
// identities may carry a string, so both decode.
type IdentityID string

func (id *IdentityID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = IdentityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding identity id: %w", err)
	}
	*id = IdentityID(n.String())
	return nil
}

// Identity is the authenticated user as the backend describes it
type Identity struct {
	ID               IdentityID  `json:"id"`
	Email            string      `json:"email"`
	DisplayName      string      `json:"full_name,omitempty"`
	AccountMode      AccountMode `json:"account_type,omitempty"`
	OrganizationName string      `json:"company_name,omitempty"`
	CreatedAt        string      `json:"created_at,omitempty"`
}

// AuthResponse is returned by the login and signup endpoints
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        Identity `json:"user"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	DisplayName      string      `json:"full_name"`
	AccountMode      AccountMode `json:"account_type"`
	OrganizationName *string     `json:"company_name"`
}

// IdentityPatch is a partial identity update. Nil fields are not sent.
// ClearOrganization sends an explicit null company name.
type IdentityPatch struct {
	DisplayName       *string
	Email             *string
	AccountMode       *AccountMode
	OrganizationName  *string
	ClearOrganization bool
}

func (p IdentityPatch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any)
	if p.DisplayName != nil {
		fields["full_name"] = *p.DisplayName
	}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.AccountMode != nil {
		fields["account_type"] = *p.AccountMode
	}
	if p.OrganizationName != nil {
		fields["company_name"] = *p.OrganizationName
	} else if p.ClearOrganization {
		fields["company_name"] = nil
	}
	return json.Marshal(fields)
}

// Login exchanges credentials through the password-grant endpoint
func (g *Gateway) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := g.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := g.decode(req, &resp); err != nil {
		return nil, asAuthError(err)
	}
	return &resp, nil
}

// Signup registers a new account
func (g *Gateway) Signup(ctx context.Context, signup SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := g.sendJSON(ctx, http.MethodPost, "/auth/signup", signup, &resp); err != nil {
		return nil, asAuthError(err)
	}
	return &resp, nil
}

// UpdateMe applies a partial identity update and returns the full updated identity
func (g *Gateway) UpdateMe(ctx context.Context, patch IdentityPatch) (*Identity, error) {
	var identity Identity
	if err := g.sendJSON(ctx, http.MethodPut, "/auth/me", patch, &identity); err != nil {
		return nil, asAuthError(err)
	}
	return &identity, nil
}

// asAuthError converts a rejected response into an AuthError. Network failures stay
// transport errors.
func asAuthError(err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode != 0 {
		return &AuthError{StatusCode: transportErr.StatusCode, Detail: transportErr.Detail}
	}
	return err
}

// String renders the id for use in storage keys
func (id IdentityID) String() string {
	return string(id)
}

// Int returns the numeric id when the backend issued one
func (id IdentityID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}
