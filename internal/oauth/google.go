// oauth реализует вход через Google: построение ссылки авторизации,
// обмен кода на токен и получение профиля, а также подписанный state.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pribylovaa/authenticator/internal/config"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrExchange — провайдер отклонил код или вернул некорректный профиль.
var ErrExchange = errors.New("oauth exchange failed")

// UserInfo — профиль пользователя Google.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Google — OAuth2-клиент Google.
type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// GoogleOption настраивает Google (тесты подменяют endpoint'ы).
type GoogleOption func(*Google)

// WithEndpoints задаёт адреса авторизации, токена и профиля.
func WithEndpoints(authURL, tokenURL, userInfoURL string) GoogleOption {
	return func(g *Google) {
		g.cfg.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
		g.userInfoURL = userInfoURL
	}
}

// NewGoogle создаёт клиента по конфигурации.
func NewGoogle(c config.GoogleOAuthConfig, opts ...GoogleOption) *Google {
	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		userInfoURL: defaultUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// AuthCodeURL возвращает адрес страницы согласия Google.
func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange меняет код на токен и запрашивает профиль.
func (g *Google) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	const op = "oauth.google.Exchange"

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := g.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: %w: userinfo status %d", op, ErrExchange, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchange, err)
	}

	if info.Email == "" {
		return nil, fmt.Errorf("%s: %w: empty email", op, ErrExchange)
	}

	return &info, nil
}
