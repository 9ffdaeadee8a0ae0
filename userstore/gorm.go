// Package userstore adapts the catalogue's relational user table to the
// libauth UserProvider interface. The table itself belongs to the wider
// backend; this package only reads the columns credential verification
// needs, plus the migration and seeding helpers the server binary uses.
package userstore

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	libauth "github.com/cataloghq/libauth"
)

// User is the persisted account row. Username is the canonical subject;
// email and phone are alternate login identifiers.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Phone        string `gorm:"index;size:32"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:USER"`
}

// GormProvider implements libauth.UserProvider over a GORM connection.
type GormProvider struct {
	db *gorm.DB
}

// NewGormProvider wraps an open GORM connection.
func NewGormProvider(db *gorm.DB) *GormProvider {
	return &GormProvider{db: db}
}

// Migrate creates or updates the users table.
func (p *GormProvider) Migrate() error {
	return p.db.AutoMigrate(&User{})
}

// LookupByUsername implements libauth.UserProvider.
func (p *GormProvider) LookupByUsername(ctx context.Context, username string) (libauth.UserRecord, error) {
	return p.lookup(ctx, "username = ?", username)
}

// LookupByEmail implements libauth.UserProvider.
func (p *GormProvider) LookupByEmail(ctx context.Context, email string) (libauth.UserRecord, error) {
	return p.lookup(ctx, "email = ?", email)
}

// LookupByPhone implements libauth.UserProvider.
func (p *GormProvider) LookupByPhone(ctx context.Context, phone string) (libauth.UserRecord, error) {
	return p.lookup(ctx, "phone = ?", phone)
}

func (p *GormProvider) lookup(ctx context.Context, query string, arg string) (libauth.UserRecord, error) {
	var user User
	err := p.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return libauth.UserRecord{}, libauth.ErrUserNotFound
		}
		return libauth.UserRecord{}, fmt.Errorf("user lookup: %w", err)
	}
	return toRecord(user)
}

func toRecord(user User) (libauth.UserRecord, error) {
	role, err := libauth.ParseRole(user.Role)
	if err != nil {
		return libauth.UserRecord{}, err
	}
	return libauth.UserRecord{
		Subject:      user.Username,
		Username:     user.Username,
		Email:        user.Email,
		Phone:        user.Phone,
		PasswordHash: user.PasswordHash,
		Role:         role,
	}, nil
}

// Seed inserts a user if no row with the same username exists. Used by the
// migrate command to provision the initial admin account.
func (p *GormProvider) Seed(ctx context.Context, username, email, phone, password string, role libauth.Role) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user := User{
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role.String(),
	}
	return p.db.WithContext(ctx).
		Where("username = ?", username).
		FirstOrCreate(&user).Error
}

// HashPassword produces the bcrypt hash stored in the password_hash column.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
