package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/pkg/jwt"
)

// Locals keys para UserID, BrandID y Role en Fiber.
const (
	LocalUserID  = "user_id"
	LocalBrandID = "brand_id"
	LocalRole    = "role"
)

// AuthMiddleware valida el Bearer Token JWT y extrae UserID, BrandID y Role a c.Locals.
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
		userID, brandID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalBrandID, brandID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireRole permite el paso solo si el rol del token está entre los indicados.
// Debe usarse después de AuthMiddleware.
//   - 401 MISSING_ROLE si el token no trae rol.
//   - 403 FORBIDDEN si el rol no está permitido.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin acceso a este recurso"})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetBrandID devuelve el BrandID del contexto (después del middleware de auth).
func GetBrandID(c *fiber.Ctx) string { return localString(c, LocalBrandID) }

// GetRole devuelve el rol del contexto (después del middleware de auth).
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

func localString(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}

// scopedBrand resuelve la marca sobre la que opera la petición. Un admin de plataforma
// debe indicarla; el resto solo puede operar sobre la marca de su token.
func scopedBrand(c *fiber.Ctx, requested string) (string, error) {
	if GetRole(c) == jwt.RoleAdmin {
		if requested == "" {
			return "", domain.ErrInvalidInput
		}
		return requested, nil
	}
	own := GetBrandID(c)
	if own == "" {
		return "", domain.ErrUnauthorized
	}
	if requested != "" && requested != own {
		return "", domain.ErrForbidden
	}
	return own, nil
}

// requesterFor variante de solicitante según el rol del token. La marca pagadora es
// siempre brandID.
func requesterFor(c *fiber.Ctx, brandID string) entity.Requester {
	switch GetRole(c) {
	case jwt.RoleDistributor:
		return entity.DistributorRequester{DistributorID: GetUserID(c), BrandID: brandID}
	case jwt.RoleServiceCenter:
		return entity.ServiceCenterRequester{ServiceCenterID: GetUserID(c), BrandID: brandID}
	}
	return entity.BrandRequester{BrandID: brandID}
}
