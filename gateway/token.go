package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"ticketbooth/entity"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenFields struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

var errNoAccessToken = errors.New("response carries no access token")

// parseTokenResponse accepts both shapes the API uses for tokens:
// {"access_token": ...} and {"data": {"access_token": ...}}.
func parseTokenResponse(body []byte) (entity.Credentials, error) {
	var resp struct {
		tokenFields
		Data *tokenFields `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return entity.Credentials{}, fmt.Errorf("could not decode token response: %w", err)
	}

	fields := resp.tokenFields
	if fields.AccessToken == "" && resp.Data != nil {
		fields = *resp.Data
	}

	if fields.AccessToken == "" {
		return entity.Credentials{}, errNoAccessToken
	}

	return entity.Credentials{
		AccessToken:  fields.AccessToken,
		RefreshToken: fields.RefreshToken,
	}, nil
}
