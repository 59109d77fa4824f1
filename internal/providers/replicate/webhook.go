package replicate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// WebhookTolerance bounds how old a signed delivery may be.
const WebhookTolerance = 5 * time.Minute

var (
	ErrWebhookHeaders   = errors.New("replicate: missing webhook signature headers")
	ErrWebhookTimestamp = errors.New("replicate: webhook timestamp outside tolerance")
	ErrWebhookSignature = errors.New("replicate: webhook signature mismatch")
)

// VerifyWebhook checks a delivery signed with the "whsec_" secret. The signed
// content is "<webhook-id>.<webhook-timestamp>.<body>" and the signature
// header may list several space-separated "v1,<base64>" entries.
func VerifyWebhook(secret string, header http.Header, body []byte, now time.Time) error {
	id := header.Get("webhook-id")
	ts := header.Get("webhook-timestamp")
	sigs := header.Get("webhook-signature")
	if id == "" || ts == "" || sigs == "" {
		return ErrWebhookHeaders
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrWebhookTimestamp
	}
	sent := time.Unix(unix, 0)
	if now.Sub(sent) > WebhookTolerance || sent.Sub(now) > WebhookTolerance {
		return ErrWebhookTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return errors.New("replicate: invalid webhook secret")
	}
	expected := Sign(key, id, ts, body)
	for _, entry := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrWebhookSignature
}

// Sign computes the base64 v1 signature of a delivery.
func Sign(key []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
