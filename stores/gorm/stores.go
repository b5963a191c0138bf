//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"time"

	ac "github.com/rkotari/authcore"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates all authcore tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &FederatedLinkModel{}, &SessionModel{})
}

// translateErr maps GORM errors to the authcore store sentinels. The DB must
// be opened with gorm.Config{TranslateError: true} for duplicate-key
// detection to work across drivers.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ac.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ac.ErrDuplicate
	default:
		return err
	}
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements authcore.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *ac.User) error {
	model := UserToModel(user)
	return translateErr(s.db.WithContext(ctx).Create(model).Error)
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*ac.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*ac.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) SaveUser(ctx context.Context, user *ac.User) error {
	model := UserToModel(user)
	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", user.ID).Updates(map[string]any{
		"email":               model.Email,
		"password_hash":       model.PasswordHash,
		"first_name":          model.FirstName,
		"last_name":           model.LastName,
		"phone":               model.Phone,
		"address":             model.Address,
		"role":                model.Role,
		"avatar_url":          model.AvatarURL,
		"bio":                 model.Bio,
		"is_active":           model.IsActive,
		"is_staff":            model.IsStaff,
		"password_changed_at": model.PasswordChangedAt,
	})
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ac.ErrNotFound
	}
	return nil
}

// =============================================================================
// LinkStore
// =============================================================================

// LinkStore implements authcore.LinkStore using GORM
type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) GetLink(ctx context.Context, provider, subjectID string) (*ac.FederatedLink, error) {
	var model FederatedLinkModel
	err := s.db.WithContext(ctx).First(&model, "provider = ? AND subject_id = ?", provider, subjectID).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return model.ToLink(), nil
}

func (s *LinkStore) CreateLink(ctx context.Context, link *ac.FederatedLink) error {
	model := LinkToModel(link)
	return translateErr(s.db.WithContext(ctx).Create(model).Error)
}

func (s *LinkStore) SaveLinkClaims(ctx context.Context, provider, subjectID string, claims map[string]any) error {
	res := s.db.WithContext(ctx).Model(&FederatedLinkModel{}).
		Where("provider = ? AND subject_id = ?", provider, subjectID).
		Updates(map[string]any{"claims": JSONMap(claims), "updated_at": time.Now()})
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ac.ErrNotFound
	}
	return nil
}

// =============================================================================
// RevocationStore
// =============================================================================

// RevocationStore implements authcore.RevocationStore using GORM
type RevocationStore struct {
	db *gorm.DB
}

func NewRevocationStore(db *gorm.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

func (s *RevocationStore) RecordSession(ctx context.Context, rec *ac.SessionRecord) error {
	model := RecordToModel(rec)
	return translateErr(s.db.WithContext(ctx).Create(model).Error)
}

func (s *RevocationStore) GetSession(ctx context.Context, id string) (*ac.SessionRecord, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToRecord(), nil
}

func (s *RevocationStore) RevokeSession(ctx context.Context, id string) error {
	now := time.Now()
	// Idempotent: zero rows affected just means unknown or already revoked.
	return translateErr(s.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]any{"revoked": true, "revoked_at": now}).Error)
}

func (s *RevocationStore) RevokeUserSessions(ctx context.Context, userID string) error {
	now := time.Now()
	return translateErr(s.db.WithContext(ctx).Model(&SessionModel{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]any{"revoked": true, "revoked_at": now}).Error)
}

func (s *RevocationStore) ListUserSessions(ctx context.Context, userID string) ([]*ac.SessionRecord, error) {
	var models []SessionModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Order("issued_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, translateErr(err)
	}

	recs := make([]*ac.SessionRecord, 0, len(models))
	for i := range models {
		recs = append(recs, models[i].ToRecord())
	}
	return recs, nil
}

func (s *RevocationStore) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) error {
	return translateErr(s.db.WithContext(ctx).
		Delete(&SessionModel{}, "expires_at < ?", cutoff).Error)
}
