package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/redis"
)

// MaxQuantity caps a single line.
const MaxQuantity = 999

// Update operations.
const (
	OpSet       = "set"
	OpIncrement = "increment"
	OpDecrement = "decrement"
)

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(tenant, sessionID string) string
}

type supersessions interface {
	ResolveSupersession(sku string) supersession.Resolution
}

type productLookup interface {
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	HasTag(ctx context.Context, sku, tag string) (bool, error)
}

// Session identifies a cart and carries the tenant rules that apply to it.
type Session struct {
	ID         string
	Tenant     string
	SKUFilter  string
	CartOff    bool
	HidePrices bool
}

func (s Session) tag() string {
	return strings.ToLower(strings.TrimSpace(s.SKUFilter))
}

// Service manipulates session carts.
type Service interface {
	Get(ctx context.Context, s Session) (*View, error)
	Add(ctx context.Context, s Session, sku string, quantity int) (*View, error)
	Update(ctx context.Context, s Session, sku, op string, quantity int) (*View, error)
	Remove(ctx context.Context, s Session, sku string) (*View, error)
	Clear(ctx context.Context, s Session) error
	// Load returns the raw stored cart for checkout.
	Load(ctx context.Context, s Session) (Cart, error)
}

type service struct {
	kv       kv
	resolver supersessions
	products productLookup
	ttl      time.Duration
	maxLines int
}

func NewService(store kv, resolver supersessions, products productLookup, ttl time.Duration, maxLines int) (Service, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	if resolver == nil {
		return nil, errors.New("supersession resolver required")
	}
	if products == nil {
		return nil, errors.New("product lookup required")
	}
	if maxLines <= 0 {
		maxLines = 200
	}
	return &service{kv: store, resolver: resolver, products: products, ttl: ttl, maxLines: maxLines}, nil
}

func (s *service) Get(ctx context.Context, sess Session) (*View, error) {
	c, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	v := viewOf(c, !sess.HidePrices)
	return &v, nil
}

func (s *service) Load(ctx context.Context, sess Session) (Cart, error) {
	if err := checkSession(sess); err != nil {
		return Cart{}, err
	}
	raw, err := s.kv.Get(ctx, s.kv.CartKey(sess.Tenant, sess.ID))
	if errors.Is(err, redis.ErrNil) {
		return Cart{Items: []Line{}}, nil
	}
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		// unreadable carts are dropped rather than failing every request
		return Cart{Items: []Line{}}, nil
	}
	if c.Items == nil {
		c.Items = []Line{}
	}
	return c, nil
}

func (s *service) Add(ctx context.Context, sess Session, sku string, quantity int) (*View, error) {
	if err := s.writable(sess); err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > MaxQuantity {
		return nil, pkgerrors.Invalid("invalid quantity", pkgerrors.FieldError{Field: "quantity", Message: "must be between 1 and 999"})
	}
	requested := strings.ToUpper(strings.TrimSpace(sku))
	if requested == "" {
		return nil, pkgerrors.Invalid("sku is required", pkgerrors.FieldError{Field: "sku", Message: "is required"})
	}

	res := s.resolver.ResolveSupersession(requested)
	product, err := s.products.FindBySKU(ctx, res.SKU)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if tag := sess.tag(); tag != "" {
		ok, err := s.products.HasTag(ctx, product.SKU, tag)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}
	if product.NLA {
		return nil, pkgerrors.Invalid("part is no longer available", pkgerrors.FieldError{Field: "sku", Message: "is no longer available"})
	}

	c, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if i := c.find(product.SKU); i >= 0 {
		c.Items[i].Quantity = min(c.Items[i].Quantity+quantity, MaxQuantity)
		c.Items[i].Price = product.Price
	} else {
		if len(c.Items) >= s.maxLines {
			return nil, pkgerrors.Invalid("cart is full", pkgerrors.FieldError{Field: "sku", Message: "cart line limit reached"})
		}
		c.Items = append(c.Items, Line{
			SKU:            product.SKU,
			SupersededFrom: res.From(),
			Description:    product.Name,
			StockType:      product.StockType,
			ImageURL:       product.ImageURL,
			Weight:         product.Weight,
			Price:          product.Price,
			Quantity:       quantity,
		})
	}
	return s.save(ctx, sess, c)
}

func (s *service) Update(ctx context.Context, sess Session, sku, op string, quantity int) (*View, error) {
	if err := s.writable(sess); err != nil {
		return nil, err
	}
	c, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	i := c.find(strings.ToUpper(strings.TrimSpace(sku)))
	if i < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	switch op {
	case "", OpSet:
		if quantity < 0 || quantity > MaxQuantity {
			return nil, pkgerrors.Invalid("invalid quantity", pkgerrors.FieldError{Field: "quantity", Message: "must be between 0 and 999"})
		}
		c.Items[i].Quantity = quantity
	case OpIncrement:
		c.Items[i].Quantity = min(c.Items[i].Quantity+1, MaxQuantity)
	case OpDecrement:
		c.Items[i].Quantity--
	default:
		return nil, pkgerrors.Invalid("invalid operation", pkgerrors.FieldError{Field: "op", Message: "must be set, increment or decrement"})
	}
	if c.Items[i].Quantity <= 0 {
		c.remove(i)
	}
	return s.save(ctx, sess, c)
}

func (s *service) Remove(ctx context.Context, sess Session, sku string) (*View, error) {
	if err := s.writable(sess); err != nil {
		return nil, err
	}
	c, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	i := c.find(strings.ToUpper(strings.TrimSpace(sku)))
	if i < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	c.remove(i)
	return s.save(ctx, sess, c)
}

func (s *service) Clear(ctx context.Context, sess Session) error {
	if err := checkSession(sess); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, s.kv.CartKey(sess.Tenant, sess.ID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) save(ctx context.Context, sess Session, c Cart) (*View, error) {
	key := s.kv.CartKey(sess.Tenant, sess.ID)
	if len(c.Items) == 0 {
		if err := s.kv.Del(ctx, key); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
	} else {
		payload, err := json.Marshal(c)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
		}
		if err := s.kv.Set(ctx, key, string(payload), s.ttl); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
	}
	v := viewOf(c, !sess.HidePrices)
	return &v, nil
}

func (s *service) writable(sess Session) error {
	if err := checkSession(sess); err != nil {
		return err
	}
	if sess.CartOff {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart is disabled for this storefront")
	}
	return nil
}

func checkSession(sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return pkgerrors.Invalid("cart session required", pkgerrors.FieldError{Field: "X-Cart-Session", Message: "is required"})
	}
	return nil
}
