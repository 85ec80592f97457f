package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linkup/backend/internal/models"
	"github.com/linkup/backend/internal/storage"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
)

// UserService holds local email/password accounts for development runs
// without Firebase. It stands in for the identity source: registering an
// account emits the same identity-created event the auth platform would,
// and deleting one emits identity-deleted.
type UserService struct {
	mu       sync.RWMutex
	file     *storage.JSONStore
	profiles *ProfileService
	users    map[string]*models.LocalUser
	byEmail  map[string]string // email -> userID
}

// localUserRecord is the persisted shape; unlike the API model it carries
// the password hash.
type localUserRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewUserService(dataDir string, profiles *ProfileService) (*UserService, error) {
	file, err := storage.NewJSONStore(dataDir, "users.json")
	if err != nil {
		return nil, err
	}

	s := &UserService{
		file:     file,
		profiles: profiles,
		users:    make(map[string]*models.LocalUser),
		byEmail:  make(map[string]string),
	}

	var records []localUserRecord
	if err := file.Load(&records); err != nil {
		return nil, err
	}
	for _, rec := range records {
		u := &models.LocalUser{
			ID:           rec.ID,
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
			DisplayName:  rec.DisplayName,
			CreatedAt:    rec.CreatedAt,
		}
		s.users[u.ID] = u
		s.byEmail[u.Email] = u.ID
	}
	return s, nil
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LocalUser, error) {
	s.mu.Lock()

	if _, exists := s.byEmail[req.Email]; exists {
		s.mu.Unlock()
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	user := &models.LocalUser{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		DisplayName:  req.DisplayName,
		CreatedAt:    time.Now().UTC(),
	}

	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	err = s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.profiles.OnIdentityCreated(ctx, IdentityEvent{
		UID:         user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	return user, nil
}

func (s *UserService) Login(req *models.LoginRequest) (*models.LocalUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[req.Email]
	if !exists {
		return nil, ErrUserNotFound
	}

	user := s.users[userID]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return user, nil
}

func (s *UserService) GetByID(id string) (*models.LocalUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Delete removes the account and emits the identity-deleted event.
func (s *UserService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	user, exists := s.users[id]
	if !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, user.Email)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.profiles.OnIdentityDeleted(ctx, id)
	return nil
}

func (s *UserService) persistLocked() error {
	records := make([]localUserRecord, 0, len(s.users))
	for _, u := range s.users {
		records = append(records, localUserRecord{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			DisplayName:  u.DisplayName,
			CreatedAt:    u.CreatedAt,
		})
	}
	return s.file.Save(records)
}
