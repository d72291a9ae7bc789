package transport

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/service"
)

// Numeric fields are json.Number so the same struct binds both HTML forms
// and JSON bodies.

type AddToCartRequest struct {
	Quantity json.Number `json:"quantity" form:"quantity"`
	ReturnTo string      `json:"returnTo" form:"returnTo"`
}

type UpdateCartRequest struct {
	Quantity json.Number `json:"quantity" form:"quantity"`
}

type PaymentRequest struct {
	Method          string `json:"method" form:"method"`
	CardNumber      string `json:"card_number" form:"card_number"`
	Expiry          string `json:"expiry" form:"expiry"`
	CVV             string `json:"cvv" form:"cvv"`
	DeliveryMethod  string `json:"delivery_method" form:"delivery_method"`
	DeliveryAddress string `json:"delivery_address" form:"delivery_address"`
	DeliveryContact string `json:"delivery_contact" form:"delivery_contact"`
}

func (r PaymentRequest) Form() service.PaymentForm {
	return service.PaymentForm{
		Method:          r.Method,
		CardNumber:      r.CardNumber,
		Expiry:          r.Expiry,
		CVV:             r.CVV,
		DeliveryMethod:  r.DeliveryMethod,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryContact: r.DeliveryContact,
	}
}

type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Address  string `json:"address" form:"address"`
	Contact  string `json:"contact" form:"contact"`
}

func (r RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Address:  r.Address,
		Contact:  r.Contact,
	}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Login() string {
	if strings.TrimSpace(r.Email) != "" {
		return r.Email
	}
	return r.Username
}

type ProductRequest struct {
	Name          string      `json:"name" form:"name"`
	Description   string      `json:"description" form:"description"`
	Price         string      `json:"price" form:"price"`
	DiscountPrice string      `json:"discount_price" form:"discount_price"`
	Quantity      json.Number `json:"quantity" form:"quantity"`
	Category      string      `json:"category" form:"category"`
	Image         string      `json:"image" form:"image"`
	Featured      string      `json:"featured" form:"featured"`
}

func (r ProductRequest) Input() (service.ProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return service.ProductInput{}, domain.Invalid("Price must be a number.")
	}
	in := service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       price,
		Category:    r.Category,
		Image:       r.Image,
		Featured:    Truthy(r.Featured),
	}
	if s := strings.TrimSpace(r.DiscountPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return service.ProductInput{}, domain.Invalid("Discount price must be a number.")
		}
		in.DiscountPrice = &d
	}
	if in.Quantity, err = IntOr(r.Quantity, 0); err != nil {
		return service.ProductInput{}, domain.Invalid("Quantity must be a whole number.")
	}
	return in, nil
}

type ReviewRequest struct {
	Rating  json.Number `json:"rating" form:"rating"`
	Title   string      `json:"title" form:"title"`
	Comment string      `json:"comment" form:"comment"`
}

type UserAccessRequest struct {
	Role         string `json:"role" form:"role"`
	FreeDelivery string `json:"free_delivery" form:"free_delivery"`
}

type RestockRequest struct {
	Amount json.Number `json:"amount" form:"amount"`
}

type FeaturedRequest struct {
	Featured string `json:"featured" form:"featured"`
}

// IntOr parses n, returning def when it is empty.
func IntOr(n json.Number, def int) (int, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// Truthy accepts the spellings HTML checkboxes and query flags use.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
