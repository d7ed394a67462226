package repositories

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/model"
)

const bcryptCost = 12

// UserRepository handles user-related database operations
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *UserRepository) CreateUser(email, username, password string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	id, _ := uuid.NewV7()
	user := &model.User{
		ID:       id.String(),
		Email:    email,
		Username: username,
		Password: string(hashedPassword),
		Role:     "user",
		IsActive: true,
	}

	if err := ds.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsernameOrEmail looks a user up by either identifier.
func (ds *UserRepository) GetUserByUsernameOrEmail(identifier string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("username = ? OR email = ?", identifier, identifier).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *UserRepository) GetUserByID(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyPassword runs the bcrypt comparison. Constant-time within bcrypt.
func (ds *UserRepository) VerifyPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (ds *UserRepository) UpdateLastLogin(userID, ip string) error {
	return ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_login": time.Now(),
		"last_ip":    ip,
	}).Error
}

func (ds *UserRepository) UpdatePassword(userID, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return ds.db.Model(&model.User{}).Where("id = ?", userID).Update("password", string(hashedPassword)).Error
}
