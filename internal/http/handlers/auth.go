package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	intconfig "paydesk/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthUser is the operator payload returned on login.
type AuthUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	var (
		user         AuthUser
		passwordHash string
	)
	err := intconfig.DB.QueryRow(`
        SELECT id, name, username, email, password_hash, role
        FROM users
        WHERE email = ? OR username = ?
    `, req.Email, req.Email).Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&passwordHash,
		&user.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(c, http.StatusUnauthorized, "wrong email/username or password", nil)
		} else {
			RespondError(c, http.StatusInternalServerError, "user lookup failed", err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		RespondError(c, http.StatusUnauthorized, "wrong email/username or password", nil)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(JWTSecret)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to sign token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user":  user,
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		RespondError(c, http.StatusBadRequest, "email and password are required", nil)
		return
	}

	var exists int
	err := intconfig.DB.QueryRow(`
        SELECT COUNT(*)
        FROM users
        WHERE email = ? OR username = ?
    `, req.Email, req.Username).Scan(&exists)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "user lookup failed", err)
		return
	}
	if exists > 0 {
		RespondError(c, http.StatusBadRequest, "email or username already registered", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to hash password", err)
		return
	}

	result, err := intconfig.DB.Exec(`
        INSERT INTO users (name, username, email, password_hash, role)
        VALUES (?, ?, ?, ?, 'agent')
    `, req.Name, req.Username, req.Email, string(hash))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	id, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
