package repo

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// translate maps gorm errors onto the apperr taxonomy. Requires the
// connection to be opened with TranslateError.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.ErrConflict
	default:
		return err
	}
}

func errorsIsFK(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}
