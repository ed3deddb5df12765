package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

const (
	LookupOrderName         = "lookup_order"
	GenerateRandomOrderName = "generate_random_order"
)

// OrderNotFoundMessage is returned by lookup_order for unknown ids.
const OrderNotFoundMessage = "Order ID not found in system."

// Item is a single order line.
type Item struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// Order is a record in the mock order database.
type Order struct {
	Status          string `json:"status"`
	Customer        string `json:"customer"`
	DeliveryDate    string `json:"delivery_date"`
	TrackingLink    string `json:"tracking_link,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	ProofOfDelivery string `json:"proof_of_delivery,omitempty"`
	Items           []Item `json:"items"`
}

// orders is the in-memory order dataset served by lookup_order. It is never
// written after init; LookupOrder hands out copies.
var orders = map[string]Order{
	"ORD-123": {
		Status:          "Shipped",
		Customer:        "Alice Smith",
		DeliveryDate:    "Tuesday, Jan 28th",
		TrackingLink:    "https://shipping.com/track/1Z999",
		ShippingAddress: "123 Maple St, New York, NY",
		Items: []Item{
			{Name: "Wireless Headphones", Qty: 1, Price: 150.00},
			{Name: "Protective Case", Qty: 1, Price: 20.00},
		},
	},
	"ORD-456": {
		Status:          "Pending",
		Customer:        "Bob Jones",
		DeliveryDate:    "TBD (Awaiting Stock)",
		ShippingAddress: "456 Oak Dr, Austin, TX",
		Items: []Item{
			{Name: "Gaming Monitor (27 inch)", Qty: 1, Price: 300.00},
			{Name: "HDMI Cable (6ft)", Qty: 2, Price: 15.00},
		},
	},
	"ORD-789": {
		Status:          "Delivered",
		Customer:        "Charlie Day",
		DeliveryDate:    "Delivered Yesterday (Front Porch)",
		ProofOfDelivery: "https://img.delivery.com/proof/789.jpg",
		Items: []Item{
			{Name: "Premium Coffee Maker", Qty: 1, Price: 85.00},
			{Name: "Paper Filters (100pk)", Qty: 1, Price: 5.00},
		},
	},
}

// LookupOrderArgs are the arguments of lookup_order.
type LookupOrderArgs struct {
	OrderID string `json:"order_id" jsonschema:"the order ID to look up, e.g. ORD-123"`
}

// LookupOrder returns a copy of the order record for id, or an error payload
// when the id is unknown.
func LookupOrder(id string) any {
	order, ok := orders[id]
	if !ok {
		return ErrorPayload(OrderNotFoundMessage)
	}
	order.Items = slices.Clone(order.Items)
	return order
}

// NewLookupOrderTool builds the lookup_order tool.
func NewLookupOrderTool() Tool {
	return MustNew(LookupOrderName,
		"Retrieves full details for a specific order ID. Returns status, customer info, delivery estimates, tracking links, and itemized lists.",
		func(_ context.Context, in LookupOrderArgs) (any, error) {
			return LookupOrder(in.OrderID), nil
		})
}

// RandomOrder is the shape produced by generate_random_order.
type RandomOrder struct {
	OrderID    string   `json:"order_id"`
	Status     string   `json:"status"`
	TotalValue string   `json:"total_value"`
	Items      []string `json:"items"`
}

var (
	randomStatuses = []string{"Shipped", "Pending", "Processing"}
	randomProducts = []string{"Laptop", "Mouse", "Keyboard", "Webcam", "Headset"}
)

// OrderGenerator creates fake orders from a pluggable random source.
type OrderGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewOrderGenerator returns a generator seeded from src. A nil src uses a
// randomly seeded PCG source.
func NewOrderGenerator(src rand.Source) *OrderGenerator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &OrderGenerator{rng: rand.New(src)}
}

// Generate returns a new random order.
func (g *OrderGenerator) Generate() RandomOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	perm := g.rng.Perm(len(randomProducts))
	return RandomOrder{
		OrderID:    fmt.Sprintf("ORD-%d", 1000+g.rng.IntN(9000)),
		Status:     randomStatuses[g.rng.IntN(len(randomStatuses))],
		TotalValue: fmt.Sprintf("$%d.00", 50+g.rng.IntN(451)),
		Items:      []string{randomProducts[perm[0]], randomProducts[perm[1]]},
	}
}

// NewGenerateRandomOrderTool builds the generate_random_order tool.
func NewGenerateRandomOrderTool(g *OrderGenerator) Tool {
	if g == nil {
		g = NewOrderGenerator(nil)
	}
	return MustNew(GenerateRandomOrderName,
		"Generates a random fake order with items for testing purposes.",
		func(_ context.Context, _ struct{}) (any, error) {
			return g.Generate(), nil
		})
}

// Default returns a registry holding the built-in logistics tools.
func Default() *Registry {
	r, err := NewRegistry(NewLookupOrderTool(), NewGenerateRandomOrderTool(nil))
	if err != nil {
		// names are constants; a collision is a programming error
		panic(err)
	}
	return r
}
