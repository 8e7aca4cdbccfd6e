package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msomdec/demo-account/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationService creates demo accounts.
type RegistrationService struct {
	users      domain.UserRepository
	bcryptCost int
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(users domain.UserRepository, bcryptCost int) *RegistrationService {
	return &RegistrationService{
		users:      users,
		bcryptCost: bcryptCost,
	}
}

// Register validates the input, hashes the password and stores a new user.
//
// Field problems are returned as a *domain.ValidationError, including an
// email that is already registered. Any other error is a storage or hashing
// failure.
func (s *RegistrationService) Register(ctx context.Context, in RegistrationInput) (*domain.User, error) {
	in = in.Normalize()
	errs := ValidateRegistration(in)

	// The lookup only produces a friendlier message; the unique index
	// decides races between concurrent submissions.
	if _, bad := errs[FieldEmail]; !bad {
		taken, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			errs[FieldEmail] = MsgEmailTaken
		}
	}

	if len(errs) > 0 {
		return nil, &domain.ValidationError{Fields: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, &domain.ValidationError{Fields: map[string]string{FieldPassword: MsgPasswordTooLong}}
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			slog.Info("registration lost race on email", "email", in.Email)
			return nil, &domain.ValidationError{Fields: map[string]string{FieldEmail: MsgEmailTaken}}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// SuccessMessage is the confirmation shown after the user is created.
func SuccessMessage(user *domain.User) string {
	return fmt.Sprintf("Demo account created for %s (%s)!", user.FullName, user.Email)
}
