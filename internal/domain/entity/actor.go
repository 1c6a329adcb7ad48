package entity

// Tipos de actor persistidos en actor_kind.
const (
	ActorKindHuman  = "human"
	ActorKindSystem = "system"
)

// Actor identifica quién provoca un cambio: un usuario humano o el sistema
// (jobs de reconciliación, efectos secundarios automáticos).
type Actor struct {
	kind   string
	userID string
}

// HumanActor construye un actor asociado a un usuario autenticado.
func HumanActor(userID string) Actor {
	return Actor{kind: ActorKindHuman, userID: userID}
}

// SystemActor construye el actor no humano.
func SystemActor() Actor {
	return Actor{kind: ActorKindSystem}
}

// ActorFromColumns reconstruye el actor desde sus columnas persistidas.
func ActorFromColumns(kind string, userID *string) Actor {
	if kind == ActorKindHuman && userID != nil && *userID != "" {
		return HumanActor(*userID)
	}
	return SystemActor()
}

// Kind devuelve human o system.
func (a Actor) Kind() string {
	if a.kind == "" {
		return ActorKindSystem
	}
	return a.kind
}

// UserID devuelve el id de usuario y true solo para actores humanos.
func (a Actor) UserID() (string, bool) {
	if a.Kind() != ActorKindHuman {
		return "", false
	}
	return a.userID, true
}

// IsSystem indica si el actor es el sistema.
func (a Actor) IsSystem() bool { return a.Kind() == ActorKindSystem }

// Columns devuelve (actor_kind, actor_user_id) listos para persistir.
func (a Actor) Columns() (string, *string) {
	if id, ok := a.UserID(); ok {
		return ActorKindHuman, &id
	}
	return ActorKindSystem, nil
}

func (a Actor) String() string {
	if id, ok := a.UserID(); ok {
		return "human(" + id + ")"
	}
	return "system"
}
