package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"gameroom-backend/internal/models"
)

// SeedOwner creates the bootstrap owner account when it does not exist yet
func SeedOwner(ctx context.Context, repo Repository, log *logrus.Logger, email, password, name string) error {
	if email == "" || password == "" {
		log.Debug("Seed owner not configured, skipping")
		return nil
	}

	if _, err := repo.GetOwnerByEmail(ctx, email); err == nil {
		log.WithField("email", email).Info("✓ Seed owner already exists, skipping")
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up seed owner: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	owner := &models.Owner{
		ID:       uuid.New().String(),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     models.RoleAdmin,
	}
	if err := repo.CreateOwner(ctx, owner); err != nil {
		return fmt.Errorf("failed to create seed owner: %w", err)
	}

	log.WithFields(logrus.Fields{"email": email, "owner_id": owner.ID}).Info("🌱 Seeded owner account")
	return nil
}
