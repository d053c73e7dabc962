package services

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegisterRequest holds signup data
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
	// Role must be one of the signup roles; empty means guest
	Role string
}

type UserService interface {
	// Register creates a user together with its profile
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	// Authenticate returns the user matching the credentials
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	// ResolveRole returns the stored role of a user, the lowest role when no profile exists
	ResolveRole(ctx context.Context, userID uint) (access.Role, error)
	// ListUsers returns every user with its profile
	ListUsers(ctx context.Context) ([]models.User, error)
	// SetRole changes the stored role of a user, creating the profile if missing
	SetRole(ctx context.Context, userID uint, role access.Role) (*models.UserProfile, error)
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "a valid email is required")
	}
	if len(req.Password) < 6 {
		return nil, invalid("password", "must be at least 6 characters")
	}
	role := access.Lowest
	if req.Role != "" {
		role = access.Role(strings.ToLower(req.Role))
		if !access.Allowed(role, access.SignupRoles) {
			return nil, invalid("role", "cannot be chosen at signup")
		}
	}

	user := &models.User{Email: email, Name: strings.TrimSpace(req.Name)}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrUserExists
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.afterUserCreated(tx, user, role, req.Phone)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// afterUserCreated runs in the creating transaction and always attaches a
// profile. The very first account of the system becomes admin.
func (s *userService) afterUserCreated(tx *gorm.DB, user *models.User, role access.Role, phone string) error {
	var users int64
	if err := tx.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users == 1 {
		role = access.Admin
		log.WithField("user_id", user.ID).Info("First account promoted to admin")
	}

	profile := &models.UserProfile{UserID: user.ID, Role: string(role), Phone: phone}
	if err := tx.Create(profile).Error; err != nil {
		return err
	}
	user.Profile = profile
	return nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *userService) ResolveRole(ctx context.Context, userID uint) (access.Role, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return access.Resolve(nil), nil
	}
	if err != nil {
		return "", err
	}
	return access.Resolve(&profile), nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *userService) SetRole(ctx context.Context, userID uint, role access.Role) (*models.UserProfile, error) {
	if !access.IsValid(string(role)) {
		return nil, invalid("role", "unknown role")
	}
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err)
		}
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = models.UserProfile{UserID: userID, Role: string(role)}
			return tx.Create(&profile).Error
		case err != nil:
			return err
		}
		profile.Role = string(role)
		return tx.Model(&profile).Update("role", profile.Role).Error
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("User role changed")
	return &profile, nil
}
