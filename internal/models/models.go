package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	Address      string    `json:"address"`
	Contact      string    `json:"contact"`
	Role         string    `gorm:"not null;default:user"     json:"role"`
	FreeDelivery bool      `gorm:"not null;default:false"    json:"free_delivery"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	UserID    uint      `gorm:"index;not null"        json:"user_id"`
	SessionID string    `gorm:"index;not null"        json:"session_id"`
	ExpiresAt time.Time `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

// Product.Quantity is the only record of availability. It is changed
// exclusively through the stock ledger's conditional adjustment.
type Product struct {
	ID            uint             `gorm:"primaryKey;autoIncrement"              json:"id"`
	Name          string           `gorm:"not null;index"                        json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `gorm:"type:decimal(10,2);not null"           json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:decimal(10,2)"                    json:"discount_price,omitempty"`
	Quantity      int              `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	Category      string           `gorm:"index"                                 json:"category"`
	Featured      bool             `gorm:"not null;default:false"                json:"featured"`
	Image         string           `json:"image"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// OnSale reports whether a discount price below the base price is set.
func (p Product) OnSale() bool {
	return p.DiscountPrice != nil && p.DiscountPrice.IsPositive() && p.DiscountPrice.LessThan(p.Price)
}

// EffectivePrice is the unit price a shopper pays right now.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.DiscountPrice
	}
	return p.Price
}

func (p Product) InStock() bool { return p.Quantity > 0 }

// CartItem is one cart line. Price is the unit price captured when the line
// was created and is what checkout charges.
type CartItem struct {
	ID            uint            `gorm:"primaryKey"                              json:"id"`
	UserID        uint            `gorm:"uniqueIndex:idx_user_product;not null"   json:"user_id"`
	ProductID     uint            `gorm:"uniqueIndex:idx_user_product;not null"   json:"product_id"`
	Name          string          `gorm:"not null"                                json:"name"`
	Image         string          `json:"image"`
	Quantity      int             `gorm:"not null;check:quantity > 0"             json:"quantity"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"             json:"price"`
	OriginalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"             json:"original_price"`
	Discounted    bool            `gorm:"not null;default:false"                  json:"discounted"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

const (
	PaymentPayNow = "paynow"
	PaymentCard   = "card"
	PaymentNone   = "none"

	DeliveryPickup   = "pickup"
	DeliveryStandard = "delivery"
)

type Order struct {
	ID              uint            `gorm:"primaryKey"                  json:"id"`
	UserID          uint            `gorm:"index;not null"              json:"user_id"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	PaymentMethod   string          `gorm:"not null"                    json:"payment_method"`
	DeliveryMethod  string          `gorm:"not null"                    json:"delivery_method"`
	DeliveryAddress string          `json:"delivery_address"`
	DeliveryContact string          `json:"delivery_contact"`
	CreatedAt       time.Time       `gorm:"index"                       json:"created_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"          json:"items"`
}

// AmountDue is the line total plus the delivery fee.
func (o Order) AmountDue() decimal.Decimal {
	return o.Total.Add(o.DeliveryFee)
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"index;not null"              json:"product_id"`
	Name      string          `gorm:"not null"                    json:"name"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey"                          json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"                                  json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_review_user_product;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_review_user_product;not null" json:"product_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"       json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{}, &Product{}, &CartItem{},
		&Order{}, &OrderItem{}, &CheckoutLog{}, &Favorite{}, &Review{},
	}
}
