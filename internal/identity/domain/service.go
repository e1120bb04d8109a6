package domain

import (
	"context"
	"errors"
)

type CreateUserRequest struct {
	Name       string
	Email      string
	AccountRef string
	Currency   string
}

type CreateClientRequest struct {
	Name  string
	Email string
}

type CreateProductRequest struct {
	FreelanceID string
	Title       string
	PriceAmount int64
	Currency    string
}

type GetRequest struct {
	ID string
}

type Service interface {
	CreateUser(context.Context, CreateUserRequest) (User, error)
	GetUser(context.Context, GetRequest) (User, error)

	CreateClient(context.Context, CreateClientRequest) (Client, error)
	GetClient(context.Context, GetRequest) (Client, error)

	CreateProduct(context.Context, CreateProductRequest) (Product, error)
	GetProduct(context.Context, GetRequest) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrNotFound     = errors.New("not_found")
)
