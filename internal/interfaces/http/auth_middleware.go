package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bc-sync-api/internal/application/dto"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/pkg/jwt"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalUserID        = "user_id"
	LocalSalespersonID = "salesperson_id"
	LocalRole          = "role"
)

// Roles reconocidos.
const (
	RoleAdmin        = "admin"
	RoleGestionnaire = "gestionnaire"
	RoleCommercial   = "commercial"
)

// AuthMiddleware valida el Bearer Token JWT y extrae UserID, SalespersonID y Role a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalSalespersonID, claims.SalespersonID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole permite el paso solo a los roles indicados. Debe ir después de AuthMiddleware.
//   - 401 MISSING_ROLE si el token no trae rol.
//   - 403 FORBIDDEN si el rol no está en la lista.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no contiene rol"})
		}
		if _, ok := allowed[strings.ToLower(role)]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para esta operación"})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetSalespersonID devuelve el comercial del token; 0 si el usuario no es comercial.
func GetSalespersonID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalSalespersonID).(int64)
	return id
}

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}

// actorFrom actor humano de la petición.
func actorFrom(c *fiber.Ctx) entity.Actor {
	return entity.HumanActor(GetUserID(c))
}

// isCommercial compara el rol sin distinguir mayúsculas, igual que RequireRole.
func isCommercial(c *fiber.Ctx) bool {
	return strings.EqualFold(GetRole(c), RoleCommercial)
}

// ownsSalesperson un comercial solo opera sobre su propio stock y pedidos.
func ownsSalesperson(c *fiber.Ctx, salespersonID int64) bool {
	if !isCommercial(c) {
		return true
	}
	return GetSalespersonID(c) != 0 && GetSalespersonID(c) == salespersonID
}
