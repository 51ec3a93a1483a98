// Package transport provides the concrete request and stream layers:
// a JSON REST client for the request/response API and a websocket
// client for the live event stream.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"convo/auth"
	"convo/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// APIError is a request that completed with a non-2xx status. Message
// carries the server's error payload when one was provided.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// UserMessage makes the server-provided description available for
// direct display.
func (e *APIError) UserMessage() string {
	return e.Message
}

// API implements the request layer over HTTP with JSON bodies. The
// bearer token returned by sign-up/login is retained and attached to
// every subsequent request.
type API struct {
	base string
	http *http.Client
	log  *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewAPI(baseURL string, timeout time.Duration, log *slog.Logger) (*API, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	return &API{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// Token returns the retained bearer token, empty before login.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// SetToken seeds a previously persisted bearer token.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// userPayload is the wire shape of a user. Token is only populated on
// the sign-up and login responses.
type userPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Token     string    `json:"token,omitempty"`
}

type messagePayload struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (a *API) CurrentSession(ctx context.Context) (domain.User, error) {
	var payload userPayload
	if err := a.do(ctx, http.MethodGet, "/api/auth/check", nil, &payload); err != nil {
		return domain.User{}, err
	}
	return toUser(payload), nil
}

func (a *API) SignUp(ctx context.Context, req auth.SignUpRequest) (domain.User, error) {
	return a.authenticate(ctx, "/api/auth/signup", req)
}

func (a *API) LogIn(ctx context.Context, req auth.LogInRequest) (domain.User, error) {
	return a.authenticate(ctx, "/api/auth/login", req)
}

// authenticate posts credentials and retains the bearer token carried
// by the response.
func (a *API) authenticate(ctx context.Context, path string, body any) (domain.User, error) {
	var payload userPayload
	if err := a.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return domain.User{}, err
	}
	if payload.Token != "" {
		a.SetToken(payload.Token)
	}
	return toUser(payload), nil
}

func (a *API) LogOut(ctx context.Context) error {
	if err := a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	a.SetToken("")
	return nil
}

func (a *API) UpdateProfile(ctx context.Context, patch auth.ProfilePatch) (domain.User, error) {
	var payload userPayload
	if err := a.do(ctx, http.MethodPut, "/api/auth/update-profile", patch, &payload); err != nil {
		return domain.User{}, err
	}
	return toUser(payload), nil
}

func (a *API) ListContacts(ctx context.Context) ([]domain.User, error) {
	var payloads []userPayload
	if err := a.do(ctx, http.MethodGet, "/api/messages/users", nil, &payloads); err != nil {
		return nil, err
	}
	return lo.Map(payloads, func(p userPayload, _ int) domain.User { return toUser(p) }), nil
}

func (a *API) GetHistory(ctx context.Context, userID string) ([]domain.Message, error) {
	var payloads []messagePayload
	path := "/api/messages/" + url.PathEscape(userID)
	if err := a.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(payloads))
	for _, p := range payloads {
		msg, err := toMessage(p)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (a *API) SendMessage(ctx context.Context, recipientID, content string) (domain.Message, error) {
	var payload messagePayload
	path := "/api/messages/send/" + url.PathEscape(recipientID)
	if err := a.do(ctx, http.MethodPost, path, sendMessageRequest{Content: content}, &payload); err != nil {
		return domain.Message{}, err
	}
	return toMessage(payload)
}

// do issues one JSON request. Non-2xx responses are decoded into an
// APIError carrying the server's {message} payload when present.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := a.base + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	a.log.Debug("request completed",
		"method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func toUser(p userPayload) domain.User {
	return domain.User{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}

func toMessage(p messagePayload) (domain.Message, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parsing message id: %w", err)
	}
	return domain.Message{
		ID:          id,
		SenderID:    p.SenderID,
		RecipientID: p.RecipientID,
		Content:     p.Content,
		CreatedAt:   p.CreatedAt,
	}, nil
}
