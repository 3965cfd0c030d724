package server

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/reconcile"
	"github.com/safar/storefront/internal/store"
)

type fakeAccounts struct {
	user     *models.User
	token    string
	err      error
	profile  models.Profile
	password [3]string
}

func (f *fakeAccounts) Register(_ context.Context, email, name, _ string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: 1, Email: email, Name: name, Role: models.RoleCustomer}, nil
}

func (f *fakeAccounts) Login(context.Context, string, string) (*models.User, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.user, f.token, nil
}

func (f *fakeAccounts) Profile(_ context.Context, userID int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: userID, Name: f.profile.Name, City: f.profile.City}, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID int64, p models.Profile) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.profile = p
	return &models.User{ID: userID, Name: p.Name, City: p.City}, nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, _ int64, current, next, confirm string) error {
	f.password = [3]string{current, next, confirm}
	return f.err
}

type fakeCarts struct {
	lines     []models.CartLine
	err       error
	restored  []int64
	persisted []int64
	added     struct {
		userID, productID int64
		quantity          int
	}
}

func (f *fakeCarts) Get(context.Context, int64) ([]models.CartLine, error) { return f.lines, f.err }

func (f *fakeCarts) Add(_ context.Context, userID, productID int64, quantity int) (models.CartLine, error) {
	if f.err != nil {
		return models.CartLine{}, f.err
	}
	f.added.userID, f.added.productID, f.added.quantity = userID, productID, quantity
	return models.CartLine{LineID: 1, ProductID: productID, Quantity: quantity}, nil
}

func (f *fakeCarts) Update(_ context.Context, _, lineID int64, quantity int) (models.CartLine, error) {
	return models.CartLine{LineID: lineID, Quantity: quantity}, f.err
}

func (f *fakeCarts) Remove(context.Context, int64, int64) error { return f.err }
func (f *fakeCarts) Clear(context.Context, int64) error         { return f.err }

func (f *fakeCarts) Restore(_ context.Context, userID int64) error {
	f.restored = append(f.restored, userID)
	return nil
}

func (f *fakeCarts) Persist(_ context.Context, userID int64) error {
	f.persisted = append(f.persisted, userID)
	return nil
}

type fakeCheckout struct {
	conf   *checkout.Confirmation
	err    error
	draft  checkout.Draft
	method string
}

func (f *fakeCheckout) ConfirmOrder(_ context.Context, _ int64, draft checkout.Draft, method string) (*checkout.Confirmation, error) {
	f.draft, f.method = draft, method
	return f.conf, f.err
}

type fakePayments struct {
	result     *reconcile.Result
	err        error
	response   *payment.Response
	order      *models.Order
	gotOrderID int64
	gotStatus  models.OrderStatus
}

func (f *fakePayments) HandleVNPayReturn(context.Context, int64, url.Values) (*reconcile.Result, error) {
	return f.result, f.err
}

func (f *fakePayments) HandlePayPalReturn(_ context.Context, _, orderID int64, _ url.Values) (*reconcile.Result, error) {
	f.gotOrderID = orderID
	return f.result, f.err
}

func (f *fakePayments) ApprovePayPal(_ context.Context, _, orderID int64, _, _ string) (*reconcile.Result, error) {
	f.gotOrderID = orderID
	return f.result, f.err
}

func (f *fakePayments) ProcessPayment(_ context.Context, _, orderID int64, _ string, _ reconcile.URLs, _ string) (*payment.Response, error) {
	f.gotOrderID = orderID
	return f.response, f.err
}

func (f *fakePayments) Cancel(_ context.Context, _, orderID int64) (*models.Order, error) {
	f.gotOrderID = orderID
	return f.order, f.err
}

func (f *fakePayments) UpdateStatus(_ context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	f.gotOrderID, f.gotStatus = orderID, status
	return f.order, f.err
}

type fakeCatalog struct {
	products map[string]*models.Product
	created  *store.NewProduct
	filter   store.ProductFilter
	err      error
}

func (f *fakeCatalog) ListProducts(_ context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	f.filter = filter
	items := []models.Product{}
	for _, p := range f.products {
		items = append(items, *p)
	}
	return &store.OffsetPage{Items: items, Total: int64(len(items)), Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (f *fakeCatalog) ProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	p, ok := f.products[slug]
	if !ok {
		return nil, errProductMissing
	}
	return p, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, np store.NewProduct) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &np
	return &models.Product{ID: 99, SKU: np.SKU, Name: np.Name, Slug: np.Slug, Price: np.Price, IsActive: true}, nil
}

type fakeOrders struct {
	orders map[int64]*models.Order
}

func (f *fakeOrders) ListOrders(context.Context, int64, string, int) (*store.CursorPage, error) {
	return &store.CursorPage{Items: []models.Order{}}, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, errOrderMissing
	}
	return o, nil
}

type fakeWishlist struct {
	items   map[int64]bool
	userID  int64
	carted  int64
	err     error
	cartErr error
}

func (f *fakeWishlist) Add(_ context.Context, userID, productID int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.userID = userID
	f.items[productID] = true
	return len(f.items), nil
}

func (f *fakeWishlist) Remove(_ context.Context, _, productID int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	delete(f.items, productID)
	return len(f.items), nil
}

func (f *fakeWishlist) List(_ context.Context, userID int64) ([]models.WishlistItem, error) {
	items := []models.WishlistItem{}
	for id := range f.items {
		items = append(items, models.WishlistItem{UserID: userID, ProductID: id})
	}
	return items, f.err
}

func (f *fakeWishlist) Count(context.Context, int64) (int, error) { return len(f.items), f.err }

func (f *fakeWishlist) Contains(_ context.Context, _, productID int64) (bool, error) {
	return f.items[productID], f.err
}

func (f *fakeWishlist) AddToCart(_ context.Context, _, productID int64) (models.CartLine, error) {
	if f.cartErr != nil {
		return models.CartLine{}, f.cartErr
	}
	f.carted = productID
	return models.CartLine{LineID: 1, ProductID: productID, Quantity: 1}, nil
}

func (f *fakeWishlist) Clear(context.Context, int64) error {
	f.items = map[int64]bool{}
	return f.err
}

type fakeAdmin struct {
	users    map[int64]*models.User
	err      error
	filter   store.ProductFilter
	edited   store.NewProduct
	version  int
	stock    int
	active   *bool
	deleted  int64
	ordersAt string
}

func (f *fakeAdmin) Dashboard(context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalUsers: int64(len(f.users))}, f.err
}

func (f *fakeAdmin) Stats(context.Context) (*models.SalesStats, error) {
	return &models.SalesStats{MonthlyRevenue: []models.MonthlyRevenue{}, TopProducts: []models.ProductSales{}}, f.err
}

func (f *fakeAdmin) ListUsers(_ context.Context, page, pageSize int) (*store.OffsetPage, error) {
	users := []models.User{}
	for _, u := range f.users {
		users = append(users, *u)
	}
	return &store.OffsetPage{Items: users, Total: int64(len(users)), Page: page, PageSize: pageSize, TotalPages: 1}, f.err
}

func (f *fakeAdmin) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAdmin) ToggleUserActive(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	u.IsActive = !u.IsActive
	return u, nil
}

func (f *fakeAdmin) ListOrders(_ context.Context, cursor string, _ int) (*store.CursorPage, error) {
	f.ordersAt = cursor
	return &store.CursorPage{Items: []models.Order{{ID: 1, UserID: 1}, {ID: 2, UserID: 2}}}, f.err
}

func (f *fakeAdmin) ListProducts(_ context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	f.filter = filter
	return &store.OffsetPage{Items: []models.Product{}, Page: page, PageSize: pageSize}, f.err
}

func (f *fakeAdmin) SetProductActive(_ context.Context, id int64, active bool) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.active = &active
	return &models.Product{ID: id, IsActive: active}, nil
}

func (f *fakeAdmin) EditProduct(_ context.Context, id int64, version int, p store.NewProduct) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.edited, f.version = p, version
	return &models.Product{ID: id, Name: p.Name, Slug: p.Slug, Version: version + 1}, nil
}

func (f *fakeAdmin) UpdateStock(_ context.Context, id int64, stock, version int) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.stock, f.version = stock, version
	return &models.Product{ID: id, StockQuantity: stock, Version: version + 1}, nil
}

func (f *fakeAdmin) DeleteProduct(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = id
	return nil
}
