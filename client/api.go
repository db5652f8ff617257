package client

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const cookieName = "jwt"

// API calls the REST surface on behalf of one user.
type API struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Token is the session credential obtained at signup or login.
func (a *API) Token() string {
	return a.token
}

func (a *API) Signup(ctx context.Context, fullName, email, password string) (domain.PublicUser, error) {
	var user domain.PublicUser
	body := map[string]string{"fullName": fullName, "email": email, "password": password}
	resp, err := a.do(ctx, http.MethodPost, "/api/auth/signup", body, &user)
	if err != nil {
		return domain.PublicUser{}, err
	}
	a.keepToken(resp)
	return user, nil
}

func (a *API) Login(ctx context.Context, email, password string) (domain.PublicUser, error) {
	var user domain.PublicUser
	body := map[string]string{"email": email, "password": password}
	resp, err := a.do(ctx, http.MethodPost, "/api/auth/login", body, &user)
	if err != nil {
		return domain.PublicUser{}, err
	}
	a.keepToken(resp)
	return user, nil
}

func (a *API) Users(ctx context.Context) ([]domain.PublicUser, error) {
	var users []domain.PublicUser
	_, err := a.do(ctx, http.MethodGet, "/api/messages/users", nil, &users)
	return users, err
}

func (a *API) Conversation(ctx context.Context, otherID string) ([]event.Envelope, error) {
	var messages []event.Envelope
	_, err := a.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(otherID), nil, &messages)
	return messages, err
}

func (a *API) Send(ctx context.Context, otherID, text, image string) (event.Envelope, error) {
	var env event.Envelope
	body := map[string]string{"text": text}
	if image != "" {
		body["image"] = image
	}
	_, err := a.do(ctx, http.MethodPost, "/api/messages/send/"+url.PathEscape(otherID), body, &env)
	return env, err
}

func (a *API) DeleteConversation(ctx context.Context, otherID string) (int, error) {
	var res struct {
		Message      string `json:"message"`
		DeletedCount int    `json:"deletedCount"`
	}
	_, err := a.do(ctx, http.MethodDelete, "/api/messages/chat/"+url.PathEscape(otherID), nil, &res)
	return res.DeletedCount, err
}

func (a *API) Search(ctx context.Context, otherID, query string) ([]event.Envelope, error) {
	var messages []event.Envelope
	path := "/api/messages/search/" + url.PathEscape(otherID) + "?q=" + url.QueryEscape(query)
	_, err := a.do(ctx, http.MethodGet, path, nil, &messages)
	return messages, err
}

func (a *API) keepToken(resp *http.Response) {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.Value != "" {
			a.token = c.Value
		}
	}
}

func (a *API) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &failure)
		return resp, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, failure.Message)
	}
	if out != nil && len(data) > 0 {
		if err = json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}
