package db

import (
	"context"
	"database/sql"
)

// SeedTokenTypes создаёт дефолтные (глобальные) типы токенов.
// classroom_id IS NULL — тип виден во всех классах.
func SeedTokenTypes(ctx context.Context, database *sql.DB) error {
	for _, name := range []string{"Medal", "Misc"} {
		_, err := database.ExecContext(ctx, `
INSERT INTO token_types (classroom_id, type)
SELECT NULL, $1
WHERE NOT EXISTS (SELECT 1 FROM token_types WHERE classroom_id IS NULL AND type = $1)`, name)
		if err != nil {
			return err
		}
	}
	return nil
}
