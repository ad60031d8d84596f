package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_subscribers",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SubscriberModel{}); err != nil {
					return err
				}
				// Partial unique indexes: at most one live record per email
				// and per phone value, without constraining rows that lack
				// the address. These are the atomic backstop for the
				// registry read-check-write sequence.
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscribers_email ON subscribers (email) WHERE email IS NOT NULL`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscribers_phone ON subscribers (phone) WHERE phone IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SubscriberModel{})
			},
		},
		{
			ID: "000002_create_verses",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.VerseModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_verses_created_at ON verses (created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.VerseModel{})
			},
		},
	})

	return m.Migrate()
}
