package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is the recipient profile record (PostgreSQL). The dispatcher resolves
// channel addresses (email, phone, device token) from it just-in-time.
type User struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	Username   string `json:"username" gorm:"uniqueIndex"`
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Phone      string `json:"phone,omitempty"`
	FCMToken   string `json:"-"` // push device registration token
	Verified   bool   `json:"verified"`
	MatchScore int    `json:"match_score"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
