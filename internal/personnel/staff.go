// Package personnel manages the staff accounts that can sign in to the back office.
package personnel

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"repairshop/internal/apperr"
)

type Role string

const (
	RoleEncargado Role = "encargado"
	RoleVentas    Role = "ventas"
	RoleTaller    Role = "taller"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleEncargado, RoleVentas, RoleTaller:
		return r, nil
	default:
		return "", apperr.Validation("INVALID_ROLE", "Rol inválido")
	}
}

type Staff struct {
	ID           string    `json:"id"`
	Email        string    `json:"correo"`
	FullName     string    `json:"nombre_completo"`
	Role         Role      `json:"rol"`
	Active       bool      `json:"activo"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResetToken is a single-use password reset grant.
type ResetToken struct {
	Token     string
	StaffID   string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

var (
	ErrNotFound      = apperr.NotFound("STAFF_NOT_FOUND", "Usuario no encontrado")
	ErrIncomplete    = apperr.Validation("STAFF_INCOMPLETE", "Datos incompletos")
	ErrEmailRequired = apperr.Validation("EMAIL_REQUIRED", "Correo requerido")
	ErrSelfDelete    = apperr.Validation("SELF_DELETE", "No puedes eliminar tu propia cuenta")
	ErrLastManager   = apperr.Validation("LAST_MANAGER", "No se puede eliminar el último usuario Encargado activo")
	ErrResetInvalid  = apperr.Validation("RESET_TOKEN_INVALID", "El enlace de restablecimiento es inválido o expiró")
	ErrWeakPassword  = apperr.Validation("WEAK_PASSWORD", "La clave debe tener al menos 8 caracteres")

	ErrBadCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "Credenciales inválidas")
)

const MinPasswordLength = 8

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches hash. An empty hash never matches.
func CheckPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
