package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, firstName, lastName, phone string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, phone) VALUES (?,?,?,?,?)",
		email, hash, firstName, lastName, phone)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	var avatar sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,first_name,last_name,phone,avatar_url,rating,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &avatar, &u.Rating, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if avatar.Valid {
		a := avatar.String
		u.AvatarURL = &a
	}
	return u, err
}

// PublicProfile loads the profile slice joined onto rides. A missing user
// returns (nil, nil): driver profile absence must degrade the row to nil
// profile fields, never fail it.
func (r *UserRepo) PublicProfile(ctx context.Context, userID uint64) (*model.DriverProfile, error) {
	var p model.DriverProfile
	var avatar sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,first_name,last_name,phone,avatar_url,rating FROM users WHERE id=? LIMIT 1",
		userID).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &avatar, &p.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		a := avatar.String
		p.AvatarURL = &a
	}
	return &p, nil
}
