package auth_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"authgate/internal/auth"
	"authgate/internal/database"
	"authgate/internal/models"
)

// memStore is an AccountStore that enforces email uniqueness under a lock,
// the way the unique index does in MongoDB.
type memStore struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]models.Account
	findErr  error
	updErr   error
}

func newMemStore() *memStore {
	return &memStore{accounts: map[primitive.ObjectID]models.Account{}}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, acc := range m.accounts {
		if acc.Email == email {
			accCopy := acc
			return &accCopy, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, database.ErrNotFound
	}
	acc, ok := m.accounts[oid]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &acc, nil
}

func (m *memStore) FindSummaryByID(ctx context.Context, id string) (*models.Summary, error) {
	acc, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := acc.Summary()
	return &summary, nil
}

func (m *memStore) Create(_ context.Context, acc *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == acc.Email {
			return database.ErrEmailExists
		}
	}
	acc.ID = primitive.NewObjectID()
	m.accounts[acc.ID] = *acc
	return nil
}

func (m *memStore) UpdateByID(_ context.Context, id string, upd database.AccountUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return m.updErr
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return database.ErrNotFound
	}
	acc, ok := m.accounts[oid]
	if !ok {
		return database.ErrNotFound
	}
	if upd.PasswordHash != "" {
		acc.Password = upd.PasswordHash
	}
	if !upd.UpdatedAt.IsZero() {
		acc.UpdatedAt = upd.UpdatedAt
	}
	if !upd.LastLoginAt.IsZero() {
		acc.LastLoginAt = upd.LastLoginAt
	}
	m.accounts[oid] = acc
	return nil
}

func (m *memStore) byEmail(t *testing.T, email string) models.Account {
	t.Helper()
	acc, err := m.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return *acc
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

type sentMail struct {
	to, subject, html string
}

// memSender records mail instead of delivering it.
type memSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (s *memSender) Send(_ context.Context, to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

var linkPattern = regexp.MustCompile(`href="[^"]*/resetPassword/([^"]+)"`)

// lastResetToken pulls the token out of the most recent reset link.
func (s *memSender) lastResetToken(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no mail sent")
	m := linkPattern.FindStringSubmatch(s.sent[len(s.sent)-1].html)
	require.Len(t, m, 2, "no reset link in mail body")
	return m[1]
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }
func (failingHasher) Verify(string, string) bool { return false }

type harness struct {
	svc    *auth.Service
	store  *memStore
	sender *memSender
	tokens *auth.Tokens
}

func newHarness(t *testing.T, opts ...auth.Option) *harness {
	t.Helper()
	tokens, err := auth.NewTokens(auth.TokenConfig{
		SessionSecret: []byte("session-secret"),
		ResetSecret:   []byte("reset-secret"),
	})
	require.NoError(t, err)
	h := &harness{store: newMemStore(), sender: &memSender{}, tokens: tokens}
	h.svc = auth.NewService(h.store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, h.sender, opts...)
	return h
}

func (h *harness) register(t *testing.T, username, email, password string) models.Summary {
	t.Helper()
	summary, err := h.svc.Register(context.Background(), auth.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return summary
}
