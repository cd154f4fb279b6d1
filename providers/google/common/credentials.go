package common

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
)

// ServiceAccount is the identifying part of a service account key file.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func ParseServiceAccount(raw string) (ServiceAccount, error) {
	var account ServiceAccount
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &account); err != nil {
		return ServiceAccount{}, credentialError(err, "google: service account json is invalid")
	}
	if strings.TrimSpace(account.ClientEmail) == "" {
		return ServiceAccount{}, credentialError(nil, "google: service account client_email is required")
	}
	if strings.TrimSpace(account.PrivateKey) == "" {
		return ServiceAccount{}, credentialError(nil, "google: service account private_key is required")
	}
	return account, nil
}

// JWTConfig builds the two-legged JWT flow for the key file. A non-empty
// subject impersonates that user through domain-wide delegation.
func JWTConfig(raw string, subject string, scopes ...string) (*jwt.Config, error) {
	if _, err := ParseServiceAccount(raw); err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}
	cfg, err := google.JWTConfigFromJSON([]byte(strings.TrimSpace(raw)), normalizeScopes(scopes)...)
	if err != nil {
		return nil, credentialError(err, "google: parse service account")
	}
	cfg.Subject = strings.TrimSpace(subject)
	return cfg, nil
}

func TokenSource(ctx context.Context, cfg core.GoogleConfig, scopes ...string) (oauth2.TokenSource, error) {
	jwtConfig, err := JWTConfig(cfg.ServiceAccountJSON, cfg.Subject, scopes...)
	if err != nil {
		return nil, err
	}
	return jwtConfig.TokenSource(ctx), nil
}

// ClientOptions returns the options shared by the Calendar and Tasks
// services. The token source is built once and reused by both.
func ClientOptions(ctx context.Context, cfg core.GoogleConfig, scopes ...string) ([]option.ClientOption, error) {
	source, err := TokenSource(ctx, cfg, scopes...)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(nil, source))}, nil
}

func credentialError(source error, message string) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, goerrors.CategoryBadInput)
	} else {
		err = goerrors.Wrap(source, goerrors.CategoryBadInput, message+": "+source.Error())
	}
	return err.WithCode(http.StatusBadRequest).WithTextCode(core.PlannerErrorBadInput)
}
