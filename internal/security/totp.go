package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const totpSecretBytes = 20

// TOTPConfig tunes code generation and acceptance.
type TOTPConfig struct {
	// Issuer appears in provisioning URIs shown to enrolling users.
	Issuer string
	// Period is the step length in seconds; 30 is the interoperable value.
	Period int
	Digits int
	// Skew is how many adjacent steps to accept on either side of now.
	Skew int
	// Algorithm is SHA1, SHA256, or SHA512. Authenticator apps broadly
	// support SHA1 only.
	Algorithm string
}

// DefaultTOTPConfig returns the interoperable RFC 6238 parameters.
func DefaultTOTPConfig(issuer string) TOTPConfig {
	return TOTPConfig{Issuer: issuer, Period: 30, Digits: 6, Skew: 1, Algorithm: "SHA1"}
}

// TOTP generates and verifies time-based one-time codes.
type TOTP struct {
	config TOTPConfig
}

// NewTOTP validates the config and returns a verifier.
func NewTOTP(cfg TOTPConfig) (*TOTP, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("totp period must be positive")
	}
	if cfg.Digits < 6 || cfg.Digits > 10 {
		return nil, errors.New("totp digits must be between 6 and 10")
	}
	if cfg.Skew < 0 {
		return nil, errors.New("totp skew must not be negative")
	}
	if _, err := hmacFunc(cfg.Algorithm); err != nil {
		return nil, err
	}
	return &TOTP{config: cfg}, nil
}

// GenerateSecret returns a fresh shared secret and its base32 form for
// provisioning.
func (t *TOTP) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return raw, enc.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URI authenticator apps import.
func (t *TOTP) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(t.config.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", t.config.Issuer)
	v.Set("period", strconv.Itoa(t.config.Period))
	v.Set("digits", strconv.Itoa(t.config.Digits))
	v.Set("algorithm", strings.ToUpper(t.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyCode checks code against the secret at the given instant,
// accepting the configured skew window. Comparison is constant time.
func (t *TOTP) VerifyCode(secret []byte, code string, at time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != t.config.Digits || !allDigits(trimmed) {
		return false, nil
	}
	if len(secret) == 0 {
		return false, errors.New("empty totp secret")
	}

	baseCounter := at.Unix() / int64(t.config.Period)
	for step := -t.config.Skew; step <= t.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, t.config.Digits, t.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
