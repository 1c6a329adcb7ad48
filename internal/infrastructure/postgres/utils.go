package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func derefStr(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}

// scanActor reconstruye el actor desde (actor_kind, actor_user_id).
func scanActor(kind *string, userID *string) entity.Actor {
	return entity.ActorFromColumns(derefStr(kind), userID)
}
