package repository

import (
	"errors"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user and refresh token persistence
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	// FindByInboxAddress resolves a Gmail push notification to its owner
	FindByInboxAddress(address string) (*authdomain.User, error)
	Update(user *authdomain.User) error
	ListWithInbox() ([]authdomain.User, error)
	MarkInboxSynced(userID string, at time.Time) error
	UpdateGmailTokens(userID, accessToken, refreshToken string) error
	UpdateHistoryID(userID string, historyID uint64) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(user *authdomain.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.Create(user).Error
}

func (r *userRepository) findOne(query string, args ...interface{}) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*authdomain.User, error) {
	return r.findOne("email = ?", email)
}

func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	return r.findOne("id = ?", id)
}

func (r *userRepository) FindByInboxAddress(address string) (*authdomain.User, error) {
	return r.findOne("inbox_address = ?", address)
}

func (r *userRepository) Update(user *authdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}

func (r *userRepository) ListWithInbox() ([]authdomain.User, error) {
	var users []authdomain.User
	err := r.db.Where("inbox_provider IN ?", []string{authdomain.InboxGmail, authdomain.InboxIMAP}).
		Order("created_at").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) MarkInboxSynced(userID string, at time.Time) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"inbox_synced_at": at, "updated_at": time.Now()}).Error
}

func (r *userRepository) UpdateGmailTokens(userID, accessToken, refreshToken string) error {
	updates := map[string]interface{}{"gmail_access_token": accessToken, "updated_at": time.Now()}
	if refreshToken != "" {
		updates["gmail_refresh_token"] = refreshToken
	}
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *userRepository) UpdateHistoryID(userID string, historyID uint64) error {
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).
		Update("gmail_history_id", historyID).Error
}

// SaveRefreshToken stores a new refresh token and drops the user's expired ones.
// Valid tokens of other devices are kept.
func (r *userRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now()).Delete(&authdomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *userRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	var refreshToken authdomain.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *userRepository) DeleteRefreshToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.RefreshToken{}).Error
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
