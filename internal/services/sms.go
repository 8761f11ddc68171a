package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
	"golang.org/x/sync/errgroup"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
)

const (
	smsFanOutLimit     = 5
	defaultSMSRegion   = "US"
	maxSMSMessageRunes = 1600
)

// SMSSender delivers one text message to an E.164 number
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type BlastResult struct {
	Success      bool `json:"success"`
	SuccessCount int  `json:"successCount"`
	ErrorCount   int  `json:"errorCount"`
}

// SMSRelay fans a message out to every customer phone of an owner
type SMSRelay struct {
	repo   database.Repository
	sender SMSSender
	log    *logrus.Logger
	region string
}

func NewSMSRelay(repo database.Repository, sender SMSSender, log *logrus.Logger) *SMSRelay {
	return &SMSRelay{repo: repo, sender: sender, log: log, region: defaultSMSRegion}
}

// FormatE164 formats a stored phone for the SMS API
func FormatE164(phone, region string) (string, error) {
	num, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", err
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// Blast sends message to every customer. Individual delivery failures are
// counted, not returned.
func (r *SMSRelay) Blast(ctx context.Context, ownerID, message string) (*BlastResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, newValidationError(CodeInvalidRequest, "message is required", "message")
	}
	if len([]rune(message)) > maxSMSMessageRunes {
		return nil, newValidationError(CodeInvalidRequest, fmt.Sprintf("message must be at most %d characters", maxSMSMessageRunes), "message")
	}

	owner, err := r.repo.GetOwner(ctx, ownerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	if !owner.HasSMSFeature {
		return nil, ErrSMSDisabled
	}
	if r.sender == nil {
		return nil, ErrSMSDisabled
	}

	phones, err := r.repo.ListCustomerPhones(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer phones: %w", err)
	}

	var sent, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(smsFanOutLimit)
	for _, phone := range phones {
		g.Go(func() error {
			to, err := FormatE164(phone, r.region)
			if err == nil {
				err = r.sender.Send(gctx, to, message)
			}
			if err != nil {
				atomic.AddInt64(&failed, 1)
				logger.LogError(r.log, "SMSRelay", "Blast", "Error sending SMS", logrus.Fields{"owner_id": ownerID, "phone": phone}, err)
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	_ = g.Wait()

	result := &BlastResult{
		Success:      failed == 0,
		SuccessCount: int(sent),
		ErrorCount:   int(failed),
	}
	r.log.WithFields(logrus.Fields{
		"owner_id":   ownerID,
		"recipients": len(phones),
		"sent":       result.SuccessCount,
		"failed":     result.ErrorCount,
	}).Info("📨 SMS blast finished")
	return result, nil
}

// TwilioSender posts to the Twilio Messages REST endpoint
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr twilioError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("twilio returned status %d: %s (code %d)", resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}
	return nil
}
