package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicvoice/model"
	"civicvoice/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminDisabled      = errors.New("admin account is disabled")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

type NewAdmin struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// CreateAdmin hashes the password and stores a new active admin.
func CreateAdmin(ctx context.Context, st store.AdminStore, in NewAdmin, now time.Time) (*model.Admin, error) {
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role != model.RoleSuperAdmin {
		role = model.RoleAdmin
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Administrator"
	}
	a := &model.Admin{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       model.AdminActive,
		Permissions:  append([]string(nil), model.DefaultPermissions...),
		CreatedAt:    now.UTC(),
	}
	if _, err := st.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate checks the credentials and records the login.
func Authenticate(ctx context.Context, st store.AdminStore, email, password string, now time.Time) (*model.Admin, error) {
	a, err := st.GetAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive() {
		return nil, ErrAdminDisabled
	}
	if err := st.RecordLogin(ctx, a.ID, now); err != nil {
		return nil, err
	}
	at := now.UTC()
	a.LoginCount++
	a.LastLogin = &at
	return a, nil
}
