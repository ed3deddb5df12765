package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := Default()

	tt := map[string]struct {
		name    string
		wantErr bool
	}{
		"lookup_order is registered":          {name: LookupOrderName},
		"generate_random_order is registered": {name: GenerateRandomOrderName},
		"unknown tool":                        {name: "cancel_order", wantErr: true},
		"empty name":                          {name: "", wantErr: true},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			tool, err := reg.Lookup(tc.name)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrToolNotFound)
				assert.Nil(t, tool)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.name, tool.Name())
			assert.NotNil(t, tool.InputSchema())
		})
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(NewLookupOrderTool(), NewLookupOrderTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestRegistryNames(t *testing.T) {
	assert.Equal(t, []string{GenerateRandomOrderName, LookupOrderName}, Default().Names())
}

func TestRegistryInvoke(t *testing.T) {
	failing := MustNew("explode", "always fails", func(_ context.Context, _ struct{}) (any, error) {
		return nil, errors.New("boom")
	})
	panicking := MustNew("panic", "always panics", func(_ context.Context, _ struct{}) (any, error) {
		panic("kaboom")
	})
	reg, err := NewRegistry(NewLookupOrderTool(), failing, panicking)
	require.NoError(t, err)

	tt := map[string]struct {
		call      Call
		wantError bool
		contains  string
	}{
		"known order": {
			call: Call{ID: "1", Name: LookupOrderName, Arguments: json.RawMessage(`{"order_id":"ORD-123"}`)},
		},
		"unknown tool becomes error payload": {
			call:      Call{ID: "2", Name: "nope"},
			wantError: true,
			contains:  "tool not found: nope",
		},
		"tool error becomes error payload": {
			call:      Call{ID: "3", Name: "explode"},
			wantError: true,
			contains:  "Tool Error: boom",
		},
		"panic becomes error payload": {
			call:      Call{ID: "4", Name: "panic"},
			wantError: true,
			contains:  "Tool Error: panic: kaboom",
		},
		"malformed arguments become error payload": {
			call:      Call{ID: "5", Name: LookupOrderName, Arguments: json.RawMessage(`{"order_id":`)},
			wantError: true,
			contains:  "Tool Error: invalid arguments",
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			res := reg.Invoke(context.Background(), tc.call)
			assert.Equal(t, tc.call.ID, res.CallID)
			assert.Equal(t, tc.call.Name, res.Name)
			assert.Equal(t, tc.wantError, res.IsError)

			payload, ok := res.Payload.(map[string]any)
			require.True(t, ok)
			if tc.wantError {
				assert.Contains(t, payload["error"], tc.contains)
			} else {
				assert.Contains(t, payload, "result")
			}
		})
	}
}

func TestLookupOrder(t *testing.T) {
	tt := map[string]struct {
		id           string
		wantStatus   string
		wantCustomer string
		wantItems    int
	}{
		"ORD-123": {id: "ORD-123", wantStatus: "Shipped", wantCustomer: "Alice Smith", wantItems: 2},
		"ORD-456": {id: "ORD-456", wantStatus: "Pending", wantCustomer: "Bob Jones", wantItems: 2},
		"ORD-789": {id: "ORD-789", wantStatus: "Delivered", wantCustomer: "Charlie Day", wantItems: 2},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			order, ok := LookupOrder(tc.id).(Order)
			require.True(t, ok)
			assert.Equal(t, tc.wantStatus, order.Status)
			assert.Equal(t, tc.wantCustomer, order.Customer)
			assert.Len(t, order.Items, tc.wantItems)
		})
	}

	t.Run("ORD-123 carries delivery details", func(t *testing.T) {
		order := LookupOrder("ORD-123").(Order)
		assert.Equal(t, "Tuesday, Jan 28th", order.DeliveryDate)
		assert.Equal(t, "https://shipping.com/track/1Z999", order.TrackingLink)
		assert.Equal(t, "Wireless Headphones", order.Items[0].Name)
	})

	t.Run("unknown id returns exact error payload", func(t *testing.T) {
		assert.Equal(t, map[string]any{"error": "Order ID not found in system."}, LookupOrder("ORD-999"))
	})

	t.Run("returned order does not share items with the dataset", func(t *testing.T) {
		order := LookupOrder("ORD-456").(Order)
		order.Items[0].Name = "Broken Monitor"
		order.Items[1].Qty = 99

		again := LookupOrder("ORD-456").(Order)
		assert.Equal(t, "Gaming Monitor (27 inch)", again.Items[0].Name)
		assert.Equal(t, 2, again.Items[1].Qty)
	})
}

func TestGenerateRandomOrder(t *testing.T) {
	gen := NewOrderGenerator(rand.NewPCG(1, 2))
	idPattern := regexp.MustCompile(`^ORD-\d{4}$`)
	valuePattern := regexp.MustCompile(`^\$(\d+)\.00$`)
	products := map[string]bool{"Laptop": true, "Mouse": true, "Keyboard": true, "Webcam": true, "Headset": true}
	statuses := map[string]bool{"Shipped": true, "Pending": true, "Processing": true}

	for range 200 {
		o := gen.Generate()

		assert.Regexp(t, idPattern, o.OrderID)
		assert.True(t, statuses[o.Status], "unexpected status %q", o.Status)

		m := valuePattern.FindStringSubmatch(o.TotalValue)
		require.Len(t, m, 2, "unexpected total %q", o.TotalValue)
		v, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 50)
		assert.LessOrEqual(t, v, 500)

		require.Len(t, o.Items, 2)
		assert.NotEqual(t, o.Items[0], o.Items[1])
		for _, item := range o.Items {
			assert.True(t, products[item], "unexpected item %q", item)
		}
	}
}

func TestGenerateRandomOrderIsDeterministicForSeed(t *testing.T) {
	a := NewOrderGenerator(rand.NewPCG(7, 7)).Generate()
	b := NewOrderGenerator(rand.NewPCG(7, 7)).Generate()
	assert.Equal(t, a, b)
}
