package repository

import (
	"context"

	"github.com/LoganXav/Nexmart/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Credentials struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	Path              string // sqlite only
	MigrationsDirPath string
}

// CartRepository owns the cart rows. Items are stored as one serialized
// array per cart.
type CartRepository interface {
	InsertCart(ctx context.Context, items []domain.CartItem) (int64, error)
	FindCartByID(ctx context.Context, id int64) (*domain.Cart, error)
	UpdateCartItems(ctx context.Context, id int64, items []domain.CartItem) error
	DeleteCart(ctx context.Context, id int64) error
	BindAuthorization(ctx context.Context, id int64, authorizationID, clientSecret string) error
	CloseCart(ctx context.Context, id int64) error
}

// CatalogRepository is read-only: products are managed elsewhere.
type CatalogRepository interface {
	FindProductByID(ctx context.Context, id int64) (*domain.Product, error)
	FindProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error)
}

type RepoInterface interface {
	CartRepository
	CatalogRepository
	Ping(ctx context.Context) error
	RunMigrations(*Credentials) error
	Close() error
}

type ProductQuery struct {
	Categories    []string
	Subcategories []string
	MinPrice      string
	MaxPrice      string
	SortColumn    string
	SortDesc      bool
	Limit         int
	Offset        int
}

type ProductPage struct {
	Items []domain.Product
	Count int
}
