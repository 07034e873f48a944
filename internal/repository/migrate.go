package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/database"
	pkglog "github.com/weiawesome/quill/pkg/log"
)

// partialIndexes back the "at most one" invariants that a plain unique index cannot express.
var partialIndexes = []struct {
	name string
	ddl  string
}{
	{
		name: "uidx_posts_author_draft",
		ddl: `CREATE UNIQUE INDEX IF NOT EXISTS uidx_posts_author_draft
		 ON posts (author_id)
		 WHERE status = 'draft'`,
	},
	{
		name: "uidx_follow_pair_active",
		ddl: `CREATE UNIQUE INDEX IF NOT EXISTS uidx_follow_pair_active
		 ON follows (follower_id, following_id)
		 WHERE deleted_at IS NULL`,
	},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	l := pkglog.L()

	if err := database.AutoMigrate(db, domain.AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if database.SupportsPartialIndex(db) {
		for _, idx := range partialIndexes {
			if err := db.Exec(idx.ddl).Error; err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
	} else {
		// MySQL has no partial indexes; the row locks taken in the
		// transactional paths are the only guard there.
		l.Warn().Str("dialect", db.Dialector.Name()).Msg("partial unique indexes unsupported, relying on row locks")
	}

	// Hard-delete CDC events ("d" op) need the full before-row so the
	// consumer can tell whose follower count changed.
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`ALTER TABLE follows REPLICA IDENTITY FULL`).Error; err != nil {
			return fmt.Errorf("set replica identity on follows: %w", err)
		}
	}

	return nil
}
