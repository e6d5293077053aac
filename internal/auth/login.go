package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LoginHandler exchanges username/password for an author JWT. Passwords are
// bcrypt hashes in the users table; adminUser/adminPassHash bootstrap an
// admin account before any rows exist.
func LoginHandler(a *AuthService, db *sql.DB, adminUser, adminPassHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		var id, hash, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT id, pass_hash, role FROM users WHERE username=$1`, req.Username).
			Scan(&id, &hash, &role)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if req.Username != adminUser || adminPassHash == "" {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			// Env-bootstrapped admin gets a stable derived id.
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("playcode:admin:"+adminUser)).String()
			hash = adminPassHash
			role = "admin"
		case err != nil:
			http.Error(w, "login unavailable", http.StatusInternalServerError)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(id, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}
