package command

// Product Commands
type CreateProduct struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	Cost          int    `json:"cost"`
	Price         int    `json:"price"`
	ShelfLocation string `json:"shelf_location"`
	ImageURL      string `json:"image_url"`
}

type UpdateProduct struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Cost          int    `json:"cost"`
	Price         int    `json:"price"`
	ShelfLocation string `json:"shelf_location"`
	ImageURL      string `json:"image_url"`
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

// ProcessSale records an over-the-counter sale, decrementing stock
// without creating an order.
type ProcessSale struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order Commands
type Checkout struct {
	UserID          string `json:"user_id"`
	PaymentMethod   string `json:"payment_method"`
	ShippingAddress string `json:"shipping_address"`
}

type UpdateOrderStatus struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// User Commands
type UpdateUserRole struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type DeactivateUser struct {
	UserID string `json:"user_id"`
}
