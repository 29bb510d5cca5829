package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"                     json:"id"`
	Name         string    `gorm:"size:255;not null"                            json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"                json:"email"`
	PasswordHash string    `gorm:"column:password;not null"                     json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null;default:'user'"     json:"role"`
	CreatedAt    time.Time `                                                    json:"created_at"`
	UpdatedAt    time.Time `                                                    json:"updated_at"`
}

// AccessToken is the server-side record of an issued bearer token. Only the
// sha256 of the token is stored.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     uint       `gorm:"index;not null"`
	JTI        string     `gorm:"size:36;uniqueIndex;not null"`
	TokenHash  string     `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name        string    `gorm:"size:255;not null"             json:"name"`
	Slug        string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description *string   `gorm:"type:text"                     json:"description"`
	CreatedAt   time.Time `                                     json:"created_at"`
	UpdatedAt   time.Time `                                     json:"updated_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	Name        string          `gorm:"size:255;not null;index"`
	Description *string         `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CategoryID  uint            `gorm:"not null;index"`
	Category    Category        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Image       *string         `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &AccessToken{}, &Category{}, &Product{}}
}
