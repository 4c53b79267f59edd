package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleOAuth wraps the authorization-code dance against Google and turns the
// userinfo payload into a GoogleProfile the auth core understands.
type GoogleOAuth struct {
	cfg *oauth2.Config
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL builds the consent-screen redirect for the given CSRF state.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// FetchProfile exchanges the callback code and fetches the userinfo document.
func (g *GoogleOAuth) FetchProfile(ctx context.Context, code string) (GoogleProfile, error) {
	token, err := g.cfg.Exchange(ctx, code)

	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	client := g.cfg.Client(ctx, token)

	resp, err := client.Get(googleUserInfoURL)

	if err != nil {
		return GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if err != nil {
		return GoogleProfile{}, err
	}

	var info struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}

	if err := json.Unmarshal(body, &info); err != nil {
		return GoogleProfile{}, err
	}

	if info.Sub == "" {
		return GoogleProfile{}, errors.New("userinfo missing subject")
	}

	p := GoogleProfile{
		ID:         info.Sub,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}

	if info.Email != "" {
		p.Emails = []string{info.Email}
	}

	if info.Picture != "" {
		p.Photos = []string{info.Picture}
	}

	return p, nil
}
