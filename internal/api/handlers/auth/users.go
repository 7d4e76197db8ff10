package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"splitledger/internal/models"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/pkg/utils"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// FUNC TO REGISTER USERS
func RegisterUsersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	type request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteError(w, "username, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		utils.WriteError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var exists bool
	err := db.QueryRowContext(r.Context(), "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", req.Email).Scan(&exists)
	if err != nil {
		utils.Logger.Errorf("failed to check existing user: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if exists {
		utils.WriteError(w, "an account with this email already exists", http.StatusConflict)
		return
	}

	encoded, err := hashPassword(req.Password)
	if err != nil {
		utils.Logger.Errorf("failed to hash password: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	res, err := db.ExecContext(r.Context(),
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
		req.Username, req.Email, encoded)
	if err != nil {
		utils.Logger.Errorf("failed to create user: %v", err)
		utils.WriteError(w, "failed to create account", http.StatusInternalServerError)
		return
	}
	userID, _ := res.LastInsertId()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"message": "account created successfully",
		"data": map[string]interface{}{
			"user_id":  userID,
			"username": req.Username,
			"email":    req.Email,
		},
	})
}

// FUNC TO LOG USERS IN
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	type loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user := &models.User{}
	err := db.QueryRowContext(r.Context(),
		"SELECT id, username, email, password FROM users WHERE email = ?",
		strings.ToLower(req.Email)).Scan(&user.ID, &user.Username, &user.Email, &user.Password)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "incorrect email or password", http.StatusForbidden)
			return
		}
		utils.Logger.Errorf("database query error: %v", err)
		utils.WriteError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !verifyPassword(req.Password, user.Password) {
		utils.WriteError(w, "incorrect email or password", http.StatusForbidden)
		return
	}

	tokenString, err := utils.SignToken(user.ID, user.Username)
	if err != nil {
		utils.Logger.Errorf("could not create login token: %v", err)
		utils.WriteError(w, "error signing in", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "Bearer",
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Now().Add(24 * time.Hour),
		SameSite: http.SameSiteStrictMode,
	})

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "login successful",
		"token":   tokenString,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// FUNC TO LOG USERS OUT
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "Bearer",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  time.Unix(0, 0),
		SameSite: http.SameSiteStrictMode,
	})

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "logged out",
	})
}

// hashPassword derives an argon2id hash and encodes it as
// base64(salt).base64(hash).
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return base64.StdEncoding.EncodeToString(salt) + "." + base64.StdEncoding.EncodeToString(hash), nil
}

func verifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, ".")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, stored) == 1
}
