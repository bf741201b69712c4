package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ExternalHandler checks media hosted outside the label's own bucket.
type ExternalHandler struct {
	HttpClient Requestor
}

func (e *ExternalHandler) Exists(ctx context.Context, url string) (bool, error) {
	if e.HttpClient == nil {
		return false, errors.New("http client cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := e.HttpClient.Do(req)
	if err != nil {
		return false, err
	}
	if resp.Body != nil {
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logrus.WithError(err).Error("Error closing response body")
			}
		}()
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status code received: %v", resp.StatusCode)
	}
}
