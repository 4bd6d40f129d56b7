package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
)

const (
	ImgurAccessTokenKey  = "imgurAccessToken"
	ImgurRefreshTokenKey = "imgurRefreshToken"
)

var errImgurForbidden = errors.New("imgur: forbidden")

// TokenStore persists the image host's rotating credentials.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetConfigurations(ctx context.Context, pairs []models.ConfigurationPair) error
}

// ImgurStorage uploads to an Imgur account. Its OAuth tokens live in the
// TokenStore; a 403 from the API triggers one refresh and one retry.
type ImgurStorage struct {
	oauth      *oauth2.Config
	tokens     TokenStore
	album      string
	apiBase    string
	HTTPClient *http.Client

	mu sync.Mutex
}

type imgurImage struct {
	ID         string `json:"id"`
	Link       string `json:"link"`
	DeleteHash string `json:"deletehash"`
}

type imgurResponse struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
}

func NewImgurStorage(clientID, clientSecret, album string, tokens TokenStore) *ImgurStorage {
	return &ImgurStorage{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://api.imgur.com/oauth2/authorize",
				TokenURL:  "https://api.imgur.com/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens:  tokens,
		album:   album,
		apiBase: "https://api.imgur.com/3",
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *ImgurStorage) StoreFile(ctx context.Context, data []byte, name string) (string, error) {
	var img imgurImage
	err := s.withToken(ctx, func(token string) error {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", name)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		_ = mw.WriteField("type", "file")
		if s.album != "" {
			_ = mw.WriteField("album", s.album)
		}
		if err := mw.Close(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/image", &body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return s.do(req, token, &img)
	})
	if err != nil {
		return "", err
	}
	if img.Link == "" {
		return "", fmt.Errorf("imgur: upload of %s returned no link", name)
	}
	return img.Link, nil
}

// GetFileID extracts the image id from an i.imgur.com link.
func (s *ImgurStorage) GetFileID(url string) string {
	if !strings.Contains(url, "imgur.com/") {
		return ""
	}
	base := path.Base(url)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (s *ImgurStorage) DeleteFile(ctx context.Context, id string) error {
	return s.withToken(ctx, func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.apiBase+"/image/"+id, nil)
		if err != nil {
			return err
		}
		return s.do(req, token, nil)
	})
}

// withToken runs call with the stored access token and, if the API answers
// 403, once more with a freshly refreshed one.
func (s *ImgurStorage) withToken(ctx context.Context, call func(token string) error) error {
	token, err := s.tokens.Get(ctx, ImgurAccessTokenKey)
	if err != nil {
		return fmt.Errorf("imgur: access token: %w", err)
	}

	err = call(token)
	if !errors.Is(err, errImgurForbidden) {
		return err
	}

	zap.L().Info("imgur rejected access token, refreshing")
	if token, err = s.refresh(ctx, token); err != nil {
		return err
	}
	return call(token)
}

// refresh exchanges the stored refresh token and persists the new pair.
// Concurrent callers that lost the race reuse the token the winner stored.
func (s *ImgurStorage) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, err := s.tokens.Get(ctx, ImgurAccessTokenKey); err == nil && current != stale {
		return current, nil
	}

	refreshToken, err := s.tokens.Get(ctx, ImgurRefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("imgur: refresh token: %w", err)
	}

	octx := context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	tok, err := s.oauth.TokenSource(octx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("imgur: refresh: %w", err)
	}

	err = s.tokens.SetConfigurations(ctx, []models.ConfigurationPair{
		{Key: ImgurAccessTokenKey, Value: tok.AccessToken},
		{Key: ImgurRefreshTokenKey, Value: tok.RefreshToken},
	})
	if err != nil {
		return "", fmt.Errorf("imgur: persist tokens: %w", err)
	}
	return tok.AccessToken, nil
}

func (s *ImgurStorage) do(req *http.Request, token string, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+token)

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return errImgurForbidden
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("imgur %s %s http %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	var env imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("imgur %s %s failed with status %d", req.Method, req.URL.Path, env.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
