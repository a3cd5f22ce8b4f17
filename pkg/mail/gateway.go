package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is a single transactional email
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Gateway sends transactional mail through the provider's HTTP API
type Gateway struct {
	apiURL      string
	apiKey      string
	senderName  string
	senderEmail string
	mode        string // "dev" logs instead of sending
	client      *http.Client
}

// Config holds configuration for the mail gateway
type Config struct {
	APIURL      string
	APIKey      string
	SenderName  string
	SenderEmail string
	Mode        string
}

// NewGateway creates a new mail gateway client
func NewGateway(config Config) *Gateway {
	return &Gateway{
		apiURL:      config.APIURL,
		apiKey:      config.APIKey,
		senderName:  config.SenderName,
		senderEmail: config.SenderEmail,
		mode:        config.Mode,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendRequest is the provider's wire format
type sendRequest struct {
	From    sender      `json:"from"`
	To      []recipient `json:"to"`
	Subject string      `json:"subject"`
	Text    string      `json:"text"`
}

type sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type recipient struct {
	Email string `json:"email"`
}

// sendResponse is the provider's response format
type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	ErrCode string `json:"errCode"`
}

// Send delivers a message to all recipients.
// In dev mode the message is logged and reported as sent.
func (g *Gateway) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	if g.mode != "production" {
		logrus.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Info("Mail gateway in dev mode, not sending")
		return nil
	}

	recipients := make([]recipient, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, recipient{Email: to})
	}

	payload := sendRequest{
		From:    sender{Name: g.senderName, Email: g.senderEmail},
		To:      recipients,
		Subject: msg.Subject,
		Text:    msg.Body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	url := fmt.Sprintf("%s/send", g.apiURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mail response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail sending failed with status %d: %s", resp.StatusCode, string(body))
	}

	var sendResp sendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return fmt.Errorf("failed to parse mail response: %w", err)
	}

	if sendResp.Status != "" && sendResp.Status != "success" {
		return fmt.Errorf("mail sending failed: %s (error code: %s)", sendResp.Comment, sendResp.ErrCode)
	}

	return nil
}

// GetName returns the name of this mail gateway
func (g *Gateway) GetName() string {
	return "HTTP Mail Gateway"
}
