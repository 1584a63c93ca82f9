package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
)

type quantityBody struct {
	Quantity int64 `json:"quantity" validate:"min=0"`
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"unknown":  `{"quantity":1,"price":5}`,
		"trailing": `{"quantity":1}{"quantity":2}`,
		"invalid":  `{"quantity":-1}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/a", strings.NewReader(body))
		var dest quantityBody
		if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/a", strings.NewReader(`{"quantity":3}`))
	var dest quantityBody
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", dest.Quantity)
	}
}
