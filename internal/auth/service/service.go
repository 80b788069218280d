package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/harel159/email-automation-system/internal/auth/cryptojs"
	"github.com/harel159/email-automation-system/internal/auth/domain"
	"github.com/harel159/email-automation-system/internal/auth/session"
	"github.com/harel159/email-automation-system/internal/config"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	"github.com/harel159/email-automation-system/internal/metrics"
)

// Service authenticates operators against a single shared password hash.
// Only addresses in the allow-list may sign in.
type Service struct {
	store  domain.SessionStore
	signer session.Signer
	pub    evdomain.Publisher
	log    zerolog.Logger
	now    func() time.Time

	encryptionSecret string
	passwordHash     []byte
	allowed          map[string]struct{}
	ttl              time.Duration
}

func New(cfg config.Config, store domain.SessionStore, pub evdomain.Publisher, log zerolog.Logger) *Service {
	allowed := make(map[string]struct{}, len(cfg.AllowedUsers))
	for _, u := range cfg.AllowedUsers {
		allowed[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	return &Service{
		store:            store,
		signer:           session.NewSigner(cfg.SessionSecret),
		pub:              pub,
		log:              log,
		now:              time.Now,
		encryptionSecret: cfg.EncryptionSecret,
		passwordHash:     []byte(cfg.SharedPasswordHash),
		allowed:          allowed,
		ttl:              cfg.SessionTTL,
	}
}

func (s *Service) Login(ctx context.Context, in domain.LoginInput) (domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkCredentials(email, in.EncryptedPassword); err != nil {
		metrics.IncLoginOutcome("failure")
		s.publish(ctx, "auth.login.failed", email, map[string]string{"ip": in.IP})
		return domain.Session{}, err
	}

	now := s.now().UTC()
	sess := domain.Session{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, sess, s.ttl); err != nil {
		return domain.Session{}, err
	}
	sess.Token = s.signer.Sign(sess.ID)

	metrics.IncLoginOutcome("success")
	s.publish(ctx, "auth.login.success", email, map[string]string{"ip": in.IP, "user_agent": in.UserAgent})
	return sess, nil
}

func (s *Service) checkCredentials(email, encrypted string) error {
	if email == "" || encrypted == "" || s.encryptionSecret == "" || len(s.passwordHash) == 0 {
		return domain.ErrInvalidCredentials
	}
	if _, ok := s.allowed[email]; !ok {
		return domain.ErrInvalidCredentials
	}
	plain, err := cryptojs.Decrypt(encrypted, s.encryptionSecret)
	if err != nil {
		s.log.Debug().Err(err).Str("email", email).Msg("login password decrypt failed")
		return domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(plain)); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// Resolve returns the live session for a signed cookie token.
func (s *Service) Resolve(ctx context.Context, token string) (domain.Session, error) {
	id, ok := s.signer.Verify(token)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.store.Get(ctx, id)
}

// Logout is idempotent: unknown or forged tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	id, ok := s.signer.Verify(token)
	if !ok {
		return nil
	}
	sess, err := s.store.Get(ctx, id)
	if err == nil {
		s.publish(ctx, "auth.logout", sess.Email, nil)
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) publish(ctx context.Context, typ, actor string, meta map[string]string) {
	if s.pub == nil {
		return
	}
	_ = s.pub.Publish(ctx, evdomain.Event{Type: typ, Actor: actor, Meta: meta, Time: s.now().UTC()})
}
