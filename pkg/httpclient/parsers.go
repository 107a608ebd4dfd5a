package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseOpenAIHeaders extracts rate-limit info from OpenAI-style response
// headers.
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	for _, header := range []string{"x-ratelimit-reset-tokens", "x-ratelimit-reset-requests"} {
		if resetStr := headers.Get(header); resetStr != "" {
			if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
				info.ResetTime = resetTime
				break
			}
		}
	}

	if remaining := headers.Get("x-ratelimit-remaining-requests"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil {
			info.RequestsRemaining = n
		}
	}
	if remaining := headers.Get("x-ratelimit-remaining-tokens"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil {
			info.TokensRemaining = n
		}
	}

	return info
}
