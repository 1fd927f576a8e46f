package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

func RegisterHandler(users UserStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string `json:"name"`
			Email       string `json:"email"`
			Password    string `json:"password"`
			Role        string `json:"role"`
			CounselorID *int   `json:"counselor_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(body.Email)
		body.Role = strings.ToUpper(strings.TrimSpace(body.Role))
		if body.Name == "" || body.Email == "" || body.Password == "" || body.Role == "" {
			http.Error(w, "name, email, password & role required", http.StatusBadRequest)
			return
		}
		if body.Role != RoleIndividual && body.Role != RoleCounselor {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}

		// only individuals are attached to a counselor
		var counselorID *int
		if body.Role == RoleIndividual && body.CounselorID != nil && *body.CounselorID != 0 {
			c, err := users.UserByID(r.Context(), *body.CounselorID)
			if err != nil || c.Role != RoleCounselor {
				http.Error(w, "unknown counselor", http.StatusBadRequest)
				return
			}
			counselorID = body.CounselorID
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), hashCost)
		if err != nil {
			http.Error(w, "password hash failed", http.StatusBadRequest)
			return
		}

		u, err := users.CreateUser(r.Context(), NewUser{
			Name:        body.Name,
			Email:       body.Email,
			Password:    string(hash),
			Role:        body.Role,
			CounselorID: counselorID,
		})
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, "user already exists", http.StatusBadRequest)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("register failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		token, err := GenerateToken(secret, Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
			"role":  u.Role,
			"token": token,
		})
	}
}

func LoginHandler(users UserStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		u, err := users.UserByEmail(r.Context(), strings.TrimSpace(body.Email))
		if err != nil {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(body.Password)) != nil {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}

		token, err := GenerateToken(secret, Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id": u.ID,
			"name":    u.Name,
			"role":    u.Role,
			"token":   token,
		})
	}
}

func MeHandler(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := users.UserByID(r.Context(), uid)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	}
}

// CounselorsHandler lists counselors for the sign-up form. Public.
func CounselorsHandler(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.Counselors(r.Context())
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list counselors failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		out := make([]map[string]any, 0, len(list))
		for _, c := range list {
			out = append(out, map[string]any{"id": c.ID, "name": c.Name, "email": c.Email})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
