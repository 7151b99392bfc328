package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FirstName    string    `gorm:"size:100" json:"firstName"`
	LastName     string    `gorm:"size:100" json:"lastName"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	Name     string     `gorm:"uniqueIndex;not null;size:100" json:"name"`
	ParentID *uint      `json:"parentId"`
	Children []Category `gorm:"foreignKey:ParentID" json:"-"`
}

type Brand struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

type Tax struct {
	ID   uint            `gorm:"primaryKey" json:"id"`
	Name string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Rate decimal.Decimal `gorm:"type:decimal(5,4);not null;check:chk_taxes_rate,rate >= 0 AND rate <= 1" json:"rate"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;size:200" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Quantity    int       `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`
	Permalink   string    `gorm:"uniqueIndex;not null;size:255" json:"permalink"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	User        *User     `json:"-"`
	CategoryID  uint      `gorm:"not null;index" json:"categoryId"`
	Category    *Category `json:"-"`
	TaxID       uint      `gorm:"not null" json:"taxId"`
	Tax         *Tax      `json:"-"`
	BrandID     uint      `gorm:"not null" json:"brandId"`
	Brand       *Brand    `json:"-"`
	Prices      []Price   `gorm:"constraint:OnDelete:CASCADE" json:"prices,omitempty"`
	// Price is the most recent entry of Prices, filled after loading.
	Price     *decimal.Decimal `gorm:"-" json:"price"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CurrentPrice returns the latest price entry, or nil when the history is empty.
func (p *Product) CurrentPrice() *Price {
	var current *Price
	for i := range p.Prices {
		if current == nil || p.Prices[i].ID > current.ID {
			current = &p.Prices[i]
		}
	}
	return current
}

// AfterFind projects the current price when the history was preloaded.
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.refreshPrice()
	return nil
}

// AfterCreate projects the current price of a product created with its prices.
func (p *Product) AfterCreate(tx *gorm.DB) error {
	p.refreshPrice()
	return nil
}

func (p *Product) refreshPrice() {
	if current := p.CurrentPrice(); current != nil {
		amount := current.Amount
		p.Price = &amount
	}
}

type Price struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_prices_amount,amount >= 0" json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

const OrderStatusPlaced = "placed"

type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"userId"`
	User      *User           `json:"-"`
	Status    string          `gorm:"not null;size:32" json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Lines     []OrderLine     `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time       `json:"createdAt"`
}

type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"orderId"`
	ProductID uint            `gorm:"not null" json:"productId"`
	Product   *Product        `json:"-"`
	Quantity  int             `gorm:"not null;check:chk_order_lines_quantity,quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
}

type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"userId"`
	User      *User      `json:"-"`
	Lines     []CartLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartLine struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	CartID    uint     `gorm:"not null;uniqueIndex:idx_cart_lines_cart_product" json:"cartId"`
	ProductID uint     `gorm:"not null;uniqueIndex:idx_cart_lines_cart_product" json:"productId"`
	Product   *Product `json:"-"`
	Quantity  int      `gorm:"not null;check:chk_cart_lines_quantity,quantity > 0" json:"quantity"`
}

// Review is keyed by (user, product): one review per user per product.
type Review struct {
	UserID    uint     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	User      *User    `json:"-"`
	ProductID uint     `gorm:"primaryKey;autoIncrement:false" json:"productId"`
	Product   *Product `json:"-"`
	Comment   string   `gorm:"type:text" json:"comment"`
	Score     float64  `gorm:"not null;check:chk_reviews_score,score >= 0 AND score <= 5" json:"score"`
}

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Category{}, &Brand{}, &Tax{}, &Product{}, &Price{},
		&Order{}, &OrderLine{}, &Cart{}, &CartLine{}, &Review{},
	}
}
