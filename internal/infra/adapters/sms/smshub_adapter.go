package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.SMSVendorAdapter = (*SMSHubAdapter)(nil)

// SMSHubAdapter talks the smshub handler_api protocol: one GET per action,
// colon-separated plain-text responses.
type SMSHubAdapter struct {
	apiKey string
	base   string
	client *http.Client
}

func NewSMSHubAdapter(apiKey, baseURL string) (*SMSHubAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("smshub api key empty")
	}
	if baseURL == "" {
		baseURL = "https://smshub.org/stubs/handler_api.php"
	}
	return &SMSHubAdapter{
		apiKey: apiKey,
		base:   baseURL,
		client: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (s *SMSHubAdapter) call(ctx context.Context, params url.Values) (string, error) {
	params.Set("api_key", s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(string(body))
	switch out {
	case "BAD_KEY":
		return "", errors.New("smshub: bad api key")
	case "NO_BALANCE":
		return "", domain.ErrVendorBalance
	case "NO_NUMBERS":
		return "", domain.ErrUnreachable
	}
	return out, nil
}

func (s *SMSHubAdapter) Balance(ctx context.Context) (float64, error) {
	out, err := s.call(ctx, url.Values{"action": {"getBalance"}})
	if err != nil {
		return 0, err
	}
	// ACCESS_BALANCE:123.45
	parts := strings.SplitN(out, ":", 2)
	if len(parts) != 2 || parts[0] != "ACCESS_BALANCE" {
		return 0, fmt.Errorf("smshub: unexpected balance response %q", out)
	}
	return strconv.ParseFloat(parts[1], 64)
}

func (s *SMSHubAdapter) RentNumber(ctx context.Context, service, country string) (*adapter.RentedNumber, error) {
	out, err := s.call(ctx, url.Values{
		"action":  {"getNumber"},
		"service": {service},
		"country": {country},
	})
	if err != nil {
		return nil, err
	}
	// ACCESS_NUMBER:id:79001234567
	parts := strings.SplitN(out, ":", 3)
	if len(parts) != 3 || parts[0] != "ACCESS_NUMBER" {
		return nil, fmt.Errorf("smshub: unexpected number response %q", out)
	}
	return &adapter.RentedNumber{TZID: parts[1], Number: "+" + parts[2]}, nil
}

// PollCode asks for the activation status until a code arrives or the
// timeout lapses. domain.ErrNotFound means "keep waiting" to the caller.
func (s *SMSHubAdapter) PollCode(ctx context.Context, tzid string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		out, err := s.call(ctx, url.Values{"action": {"getStatus"}, "id": {tzid}})
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(out, "STATUS_OK:") {
			return strings.TrimPrefix(out, "STATUS_OK:"), nil
		}
		if out == "STATUS_CANCEL" {
			return "", domain.ErrUnreachable
		}
		if time.Now().After(deadline) {
			return "", domain.ErrNotFound
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *SMSHubAdapter) Confirm(ctx context.Context, tzid string) error {
	_, err := s.call(ctx, url.Values{"action": {"setStatus"}, "id": {tzid}, "status": {"6"}})
	return err
}

func (s *SMSHubAdapter) Cancel(ctx context.Context, tzid string) error {
	_, err := s.call(ctx, url.Values{"action": {"setStatus"}, "id": {tzid}, "status": {"8"}})
	return err
}
