// internal/api/handlers/signer.go
package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// URLSigner mints and verifies the time-limited, self-authenticating result
// URLs handed back to clients. The link grants read access to exactly one
// stored artifact until its expiry; no API key is needed to follow it.
type URLSigner struct {
	secret  []byte
	baseURL string
}

func NewURLSigner(secret, baseURL string) *URLSigner {
	return &URLSigner{secret: []byte(secret), baseURL: baseURL}
}

// Sign produces a presigned download URL for the task's result artifact.
func (s *URLSigner) Sign(taskID string, ttl time.Duration, now time.Time) string {
	expires := now.Add(ttl).Unix()
	return fmt.Sprintf("%s/api/results/%s?expires=%d&sig=%s",
		s.baseURL, taskID, expires, s.signature(taskID, expires))
}

// Verify checks the signature and expiry carried in a download request.
func (s *URLSigner) Verify(taskID, expiresParam, sig string, now time.Time) bool {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > expires {
		return false
	}
	expected := s.signature(taskID, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *URLSigner) signature(taskID string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", taskID, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
