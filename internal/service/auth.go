package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/sumire/guildcloner/internal/domain"
)

const discordAuthorizeURL = "https://discord.com/oauth2/authorize"

// UserStore defines the user data access interface consumed by AuthService.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
}

// AuthConfig holds OAuth configuration.
type AuthConfig struct {
	DiscordClientID     string
	DiscordClientSecret string
	DiscordAPIBase      string
	DiscordCDNBase      string
	JWTSecret           string
	FrontendURL         string
}

// AuthService handles authentication logic.
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	discord   *oauth2.Config
	apiBase   string
	cdnBase   string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, cfg AuthConfig) *AuthService {
	apiBase := strings.TrimRight(cfg.DiscordAPIBase, "/")
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JWTSecret),
		discord: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   discordAuthorizeURL,
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes:      []string{"identify", "email"},
			RedirectURL: cfg.FrontendURL + "/auth/discord/callback",
		},
		apiBase: apiBase,
		cdnBase: strings.TrimRight(cfg.DiscordCDNBase, "/"),
	}
}

// DiscordAuthURL returns the Discord OAuth authorization URL.
func (s *AuthService) DiscordAuthURL(state string) string {
	return s.discord.AuthCodeURL(state)
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DiscordCallback exchanges the authorization code and returns a JWT pair.
func (s *AuthService) DiscordCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	token, err := s.discord.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("discord token exchange: %w", err)
	}

	userInfo, err := s.fetchDiscordUserInfo(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch discord user info: %w", err)
	}

	displayName := userInfo.GlobalName
	if displayName == "" {
		displayName = userInfo.Username
	}

	user, err := s.users.Upsert(ctx, domain.User{
		Provider:    domain.AuthProviderDiscord,
		ProviderID:  userInfo.ID,
		Email:       userInfo.Email,
		DisplayName: displayName,
		AvatarURL:   s.avatarURL(userInfo),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert discord user: %w", err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// ValidateToken validates a JWT access token and returns the user ID.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	return s.parseToken(tokenString, "access")
}

// RefreshAccessToken validates a refresh token and returns a new token pair.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	userID, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(userID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) parseToken(tokenString, wantType string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s token: %v", domain.ErrUnauthorized, wantType, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrUnauthorized
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != wantType {
		return 0, domain.ErrUnauthorized
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, domain.ErrUnauthorized
	}

	return int64(userIDFloat), nil
}

func (s *AuthService) generateTokenPair(userID int64) (*TokenPair, error) {
	now := time.Now()

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	})
	accessStr, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"type": "refresh",
		"iat":  now.Unix(),
		"exp":  now.Add(7 * 24 * time.Hour).Unix(),
	})
	refreshStr, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

type discordUserInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

func (s *AuthService) fetchDiscordUserInfo(ctx context.Context, token *oauth2.Token) (*discordUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.discord.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord user info returned status %d", resp.StatusCode)
	}

	var info discordUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

func (s *AuthService) avatarURL(info *discordUserInfo) *string {
	if info.Avatar == "" || s.cdnBase == "" {
		return nil
	}
	u := fmt.Sprintf("%s/avatars/%s/%s.png", s.cdnBase, info.ID, info.Avatar)
	return &u
}
