package server

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

type productFields struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	StockQuantity int              `json:"stock_quantity"`
}

type createProductRequest struct {
	SKU string `json:"sku" binding:"required"`
	productFields
}

type editProductRequest struct {
	Version int `json:"version" binding:"required"`
	productFields
}

// product validates the fields and derives the slug from the name. The
// returned message is empty when the fields are usable.
func (f productFields) product() (store.NewProduct, string) {
	if !f.Price.IsPositive() || f.StockQuantity < 0 {
		return store.NewProduct{}, "price must be positive and stock not negative"
	}

	np := store.NewProduct{
		Name:          strings.TrimSpace(f.Name),
		Slug:          slugify(f.Name),
		Description:   f.Description,
		Category:      f.Category,
		Price:         f.Price,
		StockQuantity: f.StockQuantity,
	}
	if f.DiscountPrice != nil {
		if f.DiscountPrice.IsNegative() || f.DiscountPrice.GreaterThan(f.Price) {
			return store.NewProduct{}, "discount price must be between zero and the price"
		}
		np.DiscountPrice = decimal.NewNullDecimal(*f.DiscountPrice)
	}
	if np.Slug == "" {
		return store.NewProduct{}, "name must contain letters or digits"
	}
	return np, ""
}

// productFilter reads search, category, min_price, max_price and sort from
// the query string.
func productFilter(c *gin.Context) (store.ProductFilter, bool) {
	filter := store.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     store.ProductSort(c.Query("sort")),
	}

	for key, dst := range map[string]*decimal.Decimal{
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid "+key)
			return filter, false
		}
		*dst = v
	}

	return filter, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return store.NormalizePage(page, pageSize)
}

func (s *Server) listProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	filter.ActiveOnly = true
	page, pageSize := pageParams(c)

	result, err := s.deps.Catalog.ListProducts(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"products": result})
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.deps.Catalog.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"product": product})
}

func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	np, problem := req.product()
	if problem != "" {
		respondError(c, http.StatusBadRequest, problem)
		return
	}
	np.SKU = strings.TrimSpace(req.SKU)

	product, err := s.deps.Catalog.CreateProduct(c.Request.Context(), np)
	if err != nil {
		if database.IsUniqueViolation(err) {
			respondError(c, http.StatusConflict, "a product with this SKU or name already exists")
			return
		}
		s.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Product created", gin.H{"product": product})
}

// slugify lower-cases name and joins its letter/digit runs with dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
