package db

import (
	"errors"

	"github.com/peertalk/peertalk/util"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedCounselor creates the configured counselor account if no user with
// that email exists yet. Without at least one counselor, new chats are
// persisted with a NULL receiver and never show up in any inbox.
func (queries *Queries) SeedCounselor(config *util.Config) error {
	if config.CounselorEmail == "" {
		return nil
	}

	var counselor User
	result := queries.DB.Where("email = ?", config.CounselorEmail).First(&counselor)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(config.CounselorPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	counselor = User{
		Name:         config.CounselorName,
		Email:        config.CounselorEmail,
		Password:     string(hashed),
		Role:         RoleCounselor,
		TokenVersion: 1,
	}
	result = queries.DB.Create(&counselor)
	return result.Error
}
