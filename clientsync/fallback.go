package clientsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

// Fallback is the REST client used when no live channel is up: reads for
// resynchronization, writes for delivery. Fallback sends are never
// appended optimistically; the affected conversation is reloaded instead.
type Fallback struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewFallback(baseURL, token string) *Fallback {
	return &Fallback{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login exchanges credentials for a token and the account it belongs to.
func Login(baseURL, email, password string) (string, domain.User, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", domain.User{}, err
	}
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", domain.User{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", domain.User{}, fmt.Errorf("login rejected: %s", resp.Status)
	}

	var s session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", domain.User{}, err
	}
	return s.Token, s.User, nil
}

func (f *Fallback) Conversations() ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := f.get("/api/conversations", &conversations)
	return conversations, err
}

func (f *Fallback) Messages(conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := f.get("/api/conversations/"+conversationID+"/messages", &messages)
	return messages, err
}

func (f *Fallback) PostMessage(conversationID, body string) (domain.Message, error) {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return domain.Message{}, err
	}
	req, err := http.NewRequest(http.MethodPost,
		f.baseURL+"/api/conversations/"+conversationID+"/messages", bytes.NewReader(payload))
	if err != nil {
		return domain.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var message domain.Message
	return message, f.do(req, http.StatusCreated, &message)
}

func (f *Fallback) MarkRead(messageID string) error {
	req, err := http.NewRequest(http.MethodPut, f.baseURL+"/api/messages/"+messageID+"/read", nil)
	if err != nil {
		return err
	}
	return f.do(req, http.StatusOK, nil)
}

func (f *Fallback) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	return f.do(req, http.StatusOK, out)
}

func (f *Fallback) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
