// Package auth implements passwordless sign in: a six digit code and a magic
// link are emailed, and either one starts a session.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpPrefix = "otp:"
	// OTPTTL is how long a code or magic link stays valid.
	OTPTTL = 10 * time.Minute
	// MaxAttempts wrong guesses burn the pending code.
	MaxAttempts = 5

	codeDigits = 6
)

// LoginMailer delivers sign-in codes. Implemented by emails.Sender.
type LoginMailer interface {
	SendLoginCode(ctx context.Context, toEmail, code, link string) error
}

// SessionUser is the object stored in the session and returned by /me.
type SessionUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// A pending code is the hash otp:<email> with fields code_hash, token_hash
// and attempts.
const (
	fieldCodeHash  = "code_hash"
	fieldTokenHash = "token_hash"
	fieldAttempts  = "attempts"
)

// reserveAttempt counts one verification against a pending code and returns
// the new total, or -1 when there is no pending code. Counting before the
// hash comparison caps the comparisons at MaxAttempts under concurrency.
var reserveAttempt = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
`)

// Service issues and verifies one-time codes.
type Service struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Mailer LoginMailer
	Events *Events
	// CallbackURL is the absolute URL of the magic-link endpoint.
	CallbackURL string
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestOTP creates a fresh code and magic link for email and mails them.
// Any earlier pending code for the address is replaced.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}

	code, err := randomCode(codeDigits)
	if err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	key := otpPrefix + email
	_, err = s.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fieldCodeHash, string(codeHash), fieldTokenHash, string(tokenHash), fieldAttempts, 0)
		p.Expire(ctx, key, OTPTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	link := s.magicLink(email, token)
	if s.Mailer == nil {
		log.Warn().Str("email", email).Msg("auth: no mailer configured, login code not sent")
		return nil
	}
	return s.Mailer.SendLoginCode(ctx, email, code, link)
}

func (s *Service) magicLink(email, token string) string {
	q := url.Values{"email": {email}, "token": {token}}
	return s.CallbackURL + "?" + q.Encode()
}

// Verify checks token (the six digit code or the magic-link token) for email.
// On success the pending code is consumed and the user is returned, created
// on first sign in.
func (s *Service) Verify(ctx context.Context, email, token string) (*domain.User, error) {
	email = NormalizeEmail(email)
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return nil, ErrTokenRequired
	}
	key := otpPrefix + email
	n, err := reserveAttempt.Run(ctx, s.Rdb, []string{key}, fieldAttempts).Int()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrInvalidToken
	}
	if n > MaxAttempts {
		_ = s.Rdb.Del(ctx, key).Err()
		return nil, ErrInvalidToken
	}
	hashes, err := s.Rdb.HMGet(ctx, key, fieldCodeHash, fieldTokenHash).Result()
	if err != nil {
		return nil, err
	}
	codeHash, _ := hashes[0].(string)
	tokenHash, _ := hashes[1].(string)

	if !matches(codeHash, token) && !matches(tokenHash, token) {
		if n >= MaxAttempts {
			_ = s.Rdb.Del(ctx, key).Err()
		}
		return nil, ErrInvalidToken
	}
	// Only the caller whose DEL removes the key signs in.
	removed, err := s.Rdb.Del(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrInvalidToken
	}

	u, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(SessionEvent{Type: SignedIn, UserID: u.ID, Email: u.Email})
	return u, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, email string) (*domain.User, error) {
	now := time.Now().UTC()
	var u domain.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = domain.User{Email: email, LastSignInAt: &now}
		if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&u).Update("last_sign_in_at", now).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut announces that user's session ended.
func (s *Service) SignOut(user *SessionUser) {
	if user == nil {
		return
	}
	id, err := uuid.Parse(user.UserID)
	if err != nil {
		return
	}
	s.Events.Publish(SessionEvent{Type: SignedOut, UserID: id, Email: user.Email})
}

// VerifyUser validates the session user value and returns its shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUser, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotAuthenticated
	}
	email, _ := m["email"].(string)
	return &SessionUser{UserID: userID, Email: email}, nil
}

func matches(hash, token string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

func randomCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
