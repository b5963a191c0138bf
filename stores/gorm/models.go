//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ac "github.com/rkotari/authcore"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// UserModel is the GORM model for users
type UserModel struct {
	ID                string    `gorm:"primaryKey;size:64"`
	Email             string    `gorm:"size:255;uniqueIndex"`
	PasswordHash      string    `gorm:"size:128"`
	FirstName         string    `gorm:"size:150"`
	LastName          string    `gorm:"size:150"`
	Phone             string    `gorm:"size:30"`
	Address           string    `gorm:"type:text"`
	Role              string    `gorm:"size:50"`
	AvatarURL         string    `gorm:"size:512"`
	Bio               string    `gorm:"type:text"`
	IsActive          bool      `gorm:"default:true"`
	IsStaff           bool      `gorm:"default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
	PasswordChangedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ac.User {
	return &ac.User{
		ID:                m.ID,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Phone:             m.Phone,
		Address:           m.Address,
		Role:              m.Role,
		AvatarURL:         m.AvatarURL,
		Bio:               m.Bio,
		IsActive:          m.IsActive,
		IsStaff:           m.IsStaff,
		CreatedAt:         m.CreatedAt,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

func UserToModel(u *ac.User) *UserModel {
	return &UserModel{
		ID:                u.ID,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Phone:             u.Phone,
		Address:           u.Address,
		Role:              u.Role,
		AvatarURL:         u.AvatarURL,
		Bio:               u.Bio,
		IsActive:          u.IsActive,
		IsStaff:           u.IsStaff,
		CreatedAt:         u.CreatedAt,
		PasswordChangedAt: u.PasswordChangedAt,
	}
}

// FederatedLinkModel is the GORM model for federated identity links
type FederatedLinkModel struct {
	Provider  string    `gorm:"primaryKey;size:50"`
	SubjectID string    `gorm:"primaryKey;size:255"`
	UserID    string    `gorm:"size:64;index"`
	Claims    JSONMap   `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (FederatedLinkModel) TableName() string {
	return "federated_links"
}

func (m *FederatedLinkModel) ToLink() *ac.FederatedLink {
	return &ac.FederatedLink{
		Provider:  m.Provider,
		SubjectID: m.SubjectID,
		UserID:    m.UserID,
		Claims:    m.Claims,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func LinkToModel(l *ac.FederatedLink) *FederatedLinkModel {
	return &FederatedLinkModel{
		Provider:  l.Provider,
		SubjectID: l.SubjectID,
		UserID:    l.UserID,
		Claims:    JSONMap(l.Claims),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// SessionModel is the GORM model for the refresh-token revocation registry
type SessionModel struct {
	ID        string    `gorm:"primaryKey;size:64"` // refresh token jti
	UserID    string    `gorm:"size:64;index"`
	IssuedAt  time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
	Revoked   bool      `gorm:"default:false;index"`
	RevokedAt *time.Time
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToRecord() *ac.SessionRecord {
	return &ac.SessionRecord{
		ID:        m.ID,
		UserID:    m.UserID,
		IssuedAt:  m.IssuedAt,
		ExpiresAt: m.ExpiresAt,
		Revoked:   m.Revoked,
		RevokedAt: m.RevokedAt,
	}
}

func RecordToModel(r *ac.SessionRecord) *SessionModel {
	return &SessionModel{
		ID:        r.ID,
		UserID:    r.UserID,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
		Revoked:   r.Revoked,
		RevokedAt: r.RevokedAt,
	}
}
