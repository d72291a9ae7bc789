package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/util"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

var ErrAdminProtected = fmt.Errorf("admin account is protected: %w", domain.ErrForbidden)

type AdminService struct {
	Repo  *repo.GormRepo
	Carts *CartStore
}

type Dashboard struct {
	Products     int64            `json:"products"`
	Users        int64            `json:"users"`
	Orders       int64            `json:"orders"`
	Revenue      decimal.Decimal  `json:"revenue"`
	PendingUndos int64            `json:"pending_undos"`
	SoldOut      []models.Product `json:"sold_out"`
	RecentOrders []models.Order   `json:"recent_orders"`
}

const recentOrdersLimit = 5

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Products, err = s.Repo.CountProducts(ctx); err != nil {
		return nil, domain.Persistence("count products", err)
	}
	if d.Users, err = s.Repo.CountUsers(ctx); err != nil {
		return nil, domain.Persistence("count users", err)
	}
	stats, err := s.Repo.OrderStats(ctx)
	if err != nil {
		return nil, domain.Persistence("order stats", err)
	}
	d.Orders, d.Revenue = stats.Orders, stats.Revenue
	if d.PendingUndos, err = s.Repo.CountCheckoutLog(ctx); err != nil {
		return nil, domain.Persistence("count checkout log", err)
	}
	if d.SoldOut, err = s.Repo.SoldOutProducts(ctx); err != nil {
		return nil, domain.Persistence("sold out products", err)
	}
	if d.RecentOrders, err = s.Repo.RecentOrders(ctx, recentOrdersLimit); err != nil {
		return nil, domain.Persistence("recent orders", err)
	}
	return &d, nil
}

func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, domain.Persistence("list users", err)
	}
	return users, nil
}

func (s *AdminService) user(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return nil, domain.Persistence("load user", err)
	}
	return u, nil
}

// UpdateAccess changes a user's role and free-delivery flag. Admin
// accounts cannot be changed this way.
func (s *AdminService) UpdateAccess(ctx context.Context, id uint, role string, freeDelivery bool) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.Invalid("Unknown role.")
	}
	u, err := s.user(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == domain.RoleAdmin {
		return ErrAdminProtected
	}
	if err := s.Repo.UpdateUserAccess(ctx, id, role, freeDelivery); err != nil {
		return domain.Persistence("update user", err)
	}
	return nil
}

// DeleteUser removes a non-admin account. The user's cart lock is held
// while the account, its cart lines and their reservations go in one
// transaction, and the cart mirror is dropped afterwards.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete_user", "user_id", id)

	u, err := s.user(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == domain.RoleAdmin {
		return ErrAdminProtected
	}

	unlock := s.Carts.Lock(id)
	defer unlock()

	lines, err := s.Repo.DeleteUser(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return domain.Persistence("delete user", err)
	}
	if err := s.Carts.Drop(ctx, domain.Shopper{UserID: id}); err != nil {
		l.Warn("session_drop_failed", "error", err)
	}
	l.Info("user_deleted", "released_lines", len(lines))
	return nil
}

type UserOrders struct {
	User   *models.User             `json:"user"`
	Orders *util.Page[models.Order] `json:"orders"`
}

func (s *AdminService) UserOrders(ctx context.Context, id uint, page int) (*UserOrders, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	offset, size := util.Calculate(page, util.DefaultPageSize)
	orders, total, err := s.Repo.ListOrders(ctx, id, size, offset)
	if err != nil {
		return nil, domain.Persistence("list orders", err)
	}
	return &UserOrders{User: u, Orders: &util.Page[models.Order]{Data: orders, Meta: util.NewMeta(page, size, total)}}, nil
}
