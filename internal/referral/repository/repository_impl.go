package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/bemynet/marketplace/internal/referral/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCommercial(ctx context.Context, db *gorm.DB, commercial *domain.Commercial) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commercials (id, name, email, rate_bps, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		commercial.ID,
		commercial.Name,
		commercial.Email,
		commercial.Rate,
		commercial.Status,
		commercial.CreatedAt,
		commercial.UpdatedAt,
	).Error
}

func (r *repo) FindCommercialByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commercial, error) {
	var commercial domain.Commercial
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, rate_bps, status, created_at, updated_at
		 FROM commercials WHERE id = ?`,
		id,
	).Scan(&commercial).Error
	if err != nil {
		return nil, err
	}
	if commercial.ID == 0 {
		return nil, nil
	}
	return &commercial, nil
}

func (r *repo) InsertPartner(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO partners (id, name, email, code, rate_bps, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		partner.ID,
		partner.Name,
		partner.Email,
		partner.Code,
		partner.Rate,
		partner.Status,
		partner.CreatedAt,
		partner.UpdatedAt,
	).Error
}

func (r *repo) FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, code, rate_bps, status, created_at, updated_at
		 FROM partners WHERE id = ?`,
		id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}

func (r *repo) FindPartnerByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, code, rate_bps, status, created_at, updated_at
		 FROM partners WHERE code = ?`,
		code,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}
