package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles reconocidos por el middleware RBAC.
const (
	RoleAdmin         = "admin"          // operador de la plataforma
	RoleBrandAdmin    = "brand_admin"    // administra billetera y tarifas de su marca
	RoleBrandUser     = "brand_user"     // crea envíos y ajusta inventario de su marca
	RoleDistributor   = "distributor"    // despacha por cuenta de una marca
	RoleServiceCenter = "service_center" // devuelve o solicita repuestos de una marca
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// BrandID es la marca a la que pertenece (o por la que actúa) el usuario; Role permite
// decidir acceso sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	BrandID string `json:"brand_id"`
	Role    string `json:"role"`
}

// Generate genera un token JWT firmado que incluye userID, brandID y role.
func Generate(secret, userID, brandID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:  userID,
		BrandID: brandID,
		Role:    role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve userID, brandID y role.
func Parse(secret, tokenString string) (userID, brandID, role string, err error) {
	if secret == "" {
		return "", "", "", fmt.Errorf("jwt: secret vacío")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", "", err
	}
	if !token.Valid {
		return "", "", "", fmt.Errorf("claims inválidos")
	}
	return claims.UserID, claims.BrandID, claims.Role, nil
}
