package signature

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// HeaderSignature carries the hex-encoded Ed25519 signature.
	HeaderSignature = "X-Signature-Ed25519"

	// HeaderTimestamp carries the timestamp that was signed with the body.
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	ErrMissingCredentials = errors.New("signature: missing signature or timestamp")
	ErrInvalidSignature   = errors.New("signature: invalid signature")
)

// Result describes how a request was authenticated.
type Result struct {
	Canonicalized bool // verified against the compacted body, not the raw bytes
	Bypassed      bool // verification disabled by configuration
}

// Verifier checks inbound requests against the application public key.
type Verifier struct {
	key    ed25519.PublicKey
	bypass bool
	logger *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithBypass disables verification. Only for local testing.
func WithBypass(bypass bool) Option {
	return func(v *Verifier) { v.bypass = bypass }
}

// WithLogger sets the logger used for the non-canonical body warning.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewVerifier builds a Verifier for the hex-encoded public key.
// The key may be empty when bypass is enabled.
func NewVerifier(publicKeyHex string, opts ...Option) (*Verifier, error) {
	v := &Verifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}

	if v.bypass && publicKeyHex == "" {
		return v, nil
	}
	key, err := DecodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// Bypassed reports whether verification is disabled.
func (v *Verifier) Bypassed() bool {
	return v.bypass
}

// Verify authenticates body against the signature and timestamp headers.
//
// The signed message is timestamp followed by the raw body. If that fails the
// body is compacted and checked again; a match on the compacted form is
// accepted with a warning, since some transports re-indent JSON in flight.
func (v *Verifier) Verify(body []byte, signatureHex, timestamp string) (Result, error) {
	if v.bypass {
		return Result{Bypassed: true}, nil
	}
	if signatureHex == "" || timestamp == "" {
		return Result{}, ErrMissingCredentials
	}

	sig, ok := decodeSignature(signatureHex)
	if !ok || len(v.key) != ed25519.PublicKeySize {
		return Result{}, ErrInvalidSignature
	}

	if ed25519.Verify(v.key, message(timestamp, body), sig) {
		return Result{}, nil
	}

	compact, ok := canonicalize(body)
	if !ok || !ed25519.Verify(v.key, message(timestamp, compact), sig) {
		return Result{}, ErrInvalidSignature
	}

	v.logger.Warn("request body was not received in canonical form; verified after compacting whitespace",
		"body_bytes", len(body), "compact_bytes", len(compact))
	return Result{Canonicalized: true}, nil
}

// Verify checks a single request without a Verifier. It applies the same
// compact-JSON fallback but does not log. A key of the wrong length fails
// verification.
func Verify(body []byte, signatureHex, timestamp string, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return ErrInvalidSignature
	}
	v := &Verifier{key: key, logger: slog.New(slog.DiscardHandler)}
	_, err := v.Verify(body, signatureHex, timestamp)
	return err
}

// DecodePublicKey decodes a hex-encoded raw 32-byte Ed25519 public key.
func DecodePublicKey(publicKeyHex string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(publicKeyHex))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key length: got %d, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

func decodeSignature(signatureHex string) ([]byte, bool) {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, false
	}
	// Reject non-canonical S values up front.
	if sig[63]&224 != 0 {
		return nil, false
	}
	return sig, true
}

func message(timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	return append(msg, body...)
}

// canonicalize strips insignificant whitespace while keeping key order and
// string escapes byte-for-byte.
func canonicalize(body []byte) ([]byte, bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, false
	}
	if bytes.Equal(buf.Bytes(), body) {
		return nil, false
	}
	return buf.Bytes(), true
}
