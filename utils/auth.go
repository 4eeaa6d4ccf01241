package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mankostas/asbuild-sub000/constants"
	"github.com/mankostas/asbuild-sub000/models"
)

var jwtSecret = []byte(func() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	return "supersecretkey"
}())

// SetJWTSecret overrides the signing secret with the configured one.
func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

func JwtSecret() []byte {
	return jwtSecret
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
	return err == nil
}

func GenerateJWT(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"role":      user.Role,
		"tenant_id": user.TenantID,
		"exp":       time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		claims,
	)

	return token.SignedString(jwtSecret)
}

// roleAbilities is the static ability grant per role. Ability resolution is
// not the engine's job; this is the shell's stand-in for the external RBAC
// collaborator.
var roleAbilities = map[string]map[string]bool{
	constants.RoleAdmin: {
		constants.AbilityTasksView:   true,
		constants.AbilityTasksCreate: true,
		constants.AbilityTasksUpdate: true,
		constants.AbilityTasksManage: true,
		constants.AbilityTypesManage: true,
	},
	constants.RoleManager: {
		constants.AbilityTasksView:   true,
		constants.AbilityTasksCreate: true,
		constants.AbilityTasksUpdate: true,
		constants.AbilityTasksManage: true,
	},
	constants.RoleMember: {
		constants.AbilityTasksView:   true,
		constants.AbilityTasksCreate: true,
		constants.AbilityTasksUpdate: true,
	},
}

// Allowed answers a single yes/no authorization question for a user acting
// within a tenant. Cross-tenant access is admin-only.
func Allowed(userTenantID uint, role, ability string, tenantID uint) bool {
	if role != constants.RoleAdmin && userTenantID != tenantID {
		return false
	}
	return roleAbilities[role][ability]
}

// HasManageOverride reports whether the role may bypass the status-flow
// graph entirely.
func HasManageOverride(role string) bool {
	return roleAbilities[role][constants.AbilityTasksManage]
}
