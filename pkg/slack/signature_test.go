package slack

import (
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func signedHeader(secret string, at time.Time, body []byte) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderSignature, Sign(secret, ts, body))
	return h
}

func TestSign_KnownVector(t *testing.T) {
	// Example request from Slack's signing documentation.
	body := []byte("token=xyzz0WbapA4vBCDEFasx0q6G&team_id=T1DC2JH3J&team_domain=testteamnow&channel_id=G8PSS9T3V&channel_name=foobar&user_id=U2CERLKJA&user_name=roadrunner&command=%2Fwebhook-collect&text=&response_url=https%3A%2F%2Fhooks.slack.com%2Fcommands%2FT1DC2JH3J%2F397700885554%2F96rGlfmibIGlgcZRskXaIFfN&trigger_id=398738663015.47445629121.803a0bc887a14d10d2c447fce8b6703c")
	got := Sign("8f742231b10e8888abcd99yyyzzz85a5", "1531420618", body)
	want := "v0=a2114d57b48eac39b9ad189dd8316235a7b4a8d21a10bd27519666489c69b503"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte("text=4521&response_url=https%3A%2F%2Fexample.com")

	tests := []struct {
		name    string
		header  func() http.Header
		wantErr error
	}{
		{
			name:   "valid",
			header: func() http.Header { return signedHeader("secret", now, body) },
		},
		{
			name:   "within skew",
			header: func() http.Header { return signedHeader("secret", now.Add(-4*time.Minute), body) },
		},
		{
			name:    "missing headers",
			header:  func() http.Header { return http.Header{} },
			wantErr: ErrMissingHeaders,
		},
		{
			name: "missing signature",
			header: func() http.Header {
				h := signedHeader("secret", now, body)
				h.Del(HeaderSignature)
				return h
			},
			wantErr: ErrMissingHeaders,
		},
		{
			name:    "stale",
			header:  func() http.Header { return signedHeader("secret", now.Add(-6*time.Minute), body) },
			wantErr: ErrStaleTimestamp,
		},
		{
			name:    "future",
			header:  func() http.Header { return signedHeader("secret", now.Add(6*time.Minute), body) },
			wantErr: ErrStaleTimestamp,
		},
		{
			name: "malformed timestamp",
			header: func() http.Header {
				h := signedHeader("secret", now, body)
				h.Set(HeaderTimestamp, "yesterday")
				return h
			},
			wantErr: ErrStaleTimestamp,
		},
		{
			name:    "wrong secret",
			header:  func() http.Header { return signedHeader("other", now, body) },
			wantErr: ErrInvalidSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify("secret", tt.header(), body, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	now := time.Now()
	h := signedHeader("secret", now, []byte("text=1"))
	if err := Verify("secret", h, []byte("text=2"), now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
