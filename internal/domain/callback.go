package domain

import (
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type CallbackKind string

const (
	CallbackOAuthSuccess     CallbackKind = "oauth_success"
	CallbackOAuthError       CallbackKind = "oauth_error"
	CallbackPasswordRecovery CallbackKind = "password_recovery"
	CallbackUnrecognized     CallbackKind = "unrecognized"
)

// UnknownRecoveryEmail is the sentinel used when a recovery callback carries
// no email. A placeholder address is never invented.
const UnknownRecoveryEmail = "unknown"

// CallbackEvent is the classified form of one incoming callback URI.
// Produced once per URI, consumed exactly once by the dispatcher.
type CallbackEvent struct {
	Kind             CallbackKind
	AccessToken      string
	RefreshToken     string
	Email            string
	ErrorCode        string
	ErrorDescription string
	RawURI           string
}

// ClassifyCallback parses a callback URI into a tagged event. Pure, no I/O.
//
// Credentials arrive in the URI fragment, implicit-grant style: a URI with
// no fragment is unrecognized regardless of what precedes it. A fragment
// carrying an error key classifies as an error even when leftover OAuth
// params from a prior attempt are also present.
func ClassifyCallback(uri string) CallbackEvent {
	hash := strings.Index(uri, "#")
	if hash == -1 {
		return CallbackEvent{Kind: CallbackUnrecognized, RawURI: uri}
	}

	params := parseFragmentParams(uri[hash+1:])

	if _, ok := params["error"]; ok {
		code := params["error_code"]
		if code == "" {
			code = params["error"]
		}
		return CallbackEvent{
			Kind:             CallbackOAuthError,
			ErrorCode:        code,
			ErrorDescription: params["error_description"],
			RawURI:           uri,
		}
	}

	if params["type"] == "recovery" || strings.Contains(uri, "recovery") {
		token := params["access_token"]
		return CallbackEvent{
			Kind:        CallbackPasswordRecovery,
			AccessToken: token,
			Email:       recoveryEmail(params["email"], token),
			RawURI:      uri,
		}
	}

	if token, ok := params["access_token"]; ok {
		return CallbackEvent{
			Kind:         CallbackOAuthSuccess,
			AccessToken:  token,
			RefreshToken: params["refresh_token"],
			RawURI:       uri,
		}
	}

	return CallbackEvent{Kind: CallbackUnrecognized, RawURI: uri}
}

// parseFragmentParams reads a flat key-value set from a fragment segment:
// &-separated, =-valued, URL-decoded. Malformed pairs are skipped rather
// than failing the whole fragment.
func parseFragmentParams(fragment string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(fragment, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil || decodedKey == "" {
			continue
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		params[decodedKey] = decodedValue
	}
	return params
}

// recoveryEmail resolves the email for a recovery event. The fragment param
// wins; otherwise the recovery token itself usually carries an email claim,
// which is read without signature verification since it only pre-fills a
// form. Failing both, the explicit unknown sentinel is returned.
func recoveryEmail(fromParams, token string) string {
	if fromParams != "" {
		return fromParams
	}
	if email := emailClaim(token); email != "" {
		return email
	}
	return UnknownRecoveryEmail
}

func emailClaim(token string) string {
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}

	email, _ := claims["email"].(string)
	return email
}
