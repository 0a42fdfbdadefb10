package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/interviewprep/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	saveFn     func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Save(ctx context.Context, user *model.User) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, user)
	}
	return nil
}

// memUserRepo はmapで保持するUserRepository。
type memUserRepo struct {
	users map[string]*model.User
	saves int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Save(_ context.Context, user *model.User) error {
	m.saves++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestEnsureUserDocument_CreatesWithLocalPartName(t *testing.T) {
	repo := newMemUserRepo()
	d := NewDirectory(repo)
	d.now = fixedNow

	got, err := d.EnsureUserDocument(context.Background(), "u1", "a@x.com", "")
	if err != nil {
		t.Fatalf("EnsureUserDocument: %v", err)
	}
	if got.ID != "u1" || got.Email != "a@x.com" || got.Name != "a" {
		t.Errorf("unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(fixedNow()) || !got.UpdatedAt.Equal(fixedNow()) {
		t.Errorf("timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, fixedNow())
	}
	if _, ok := repo.users["u1"]; !ok {
		t.Error("profile was not persisted")
	}
}

func TestEnsureUserDocument_UsesGivenName(t *testing.T) {
	d := NewDirectory(newMemUserRepo())

	got, err := d.EnsureUserDocument(context.Background(), "u1", "a@x.com", "Alice")
	if err != nil {
		t.Fatalf("EnsureUserDocument: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("Name = %q, want %q", got.Name, "Alice")
	}
}

func TestEnsureUserDocument_Idempotent(t *testing.T) {
	repo := newMemUserRepo()
	d := NewDirectory(repo)
	d.now = fixedNow

	first, err := d.EnsureUserDocument(context.Background(), "u1", "a@x.com", "Alice")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	d.now = func() time.Time { return fixedNow().Add(time.Hour) }
	second, err := d.EnsureUserDocument(context.Background(), "u1", "other@x.com", "Bob")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if *first != *second {
		t.Errorf("second call changed the profile: %+v vs %+v", first, second)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestEnsureUserDocument_EmptyInput(t *testing.T) {
	d := NewDirectory(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			t.Fatal("repository must not be called")
			return nil, nil
		},
	})

	for _, tc := range []struct{ id, email string }{{"", "a@x.com"}, {"u1", ""}} {
		if _, err := d.EnsureUserDocument(context.Background(), tc.id, tc.email, ""); !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("EnsureUserDocument(%q, %q) error = %v, want ErrInvalidProfile", tc.id, tc.email, err)
		}
	}
}

func TestEnsureUserDocument_ReadError(t *testing.T) {
	dbErr := errors.New("db down")
	d := NewDirectory(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return nil, dbErr },
	})

	_, err := d.EnsureUserDocument(context.Background(), "u1", "a@x.com", "")
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped %v, got %v", dbErr, err)
	}
}

func TestEnsureUserDocument_EmailConflict(t *testing.T) {
	d := NewDirectory(&mockUserRepo{
		saveFn: func(context.Context, *model.User) error { return model.ErrEmailAlreadyExists },
	})

	_, err := d.EnsureUserDocument(context.Background(), "u2", "a@x.com", "")
	if !errors.Is(err, model.ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestFindByID_Absent(t *testing.T) {
	d := NewDirectory(newMemUserRepo())

	got, err := d.FindByID(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestLocalPart(t *testing.T) {
	tests := []struct{ email, want string }{
		{"a@x.com", "a"},
		{"first.last@example.co.jp", "first.last"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tt := range tests {
		if got := localPart(tt.email); got != tt.want {
			t.Errorf("localPart(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
