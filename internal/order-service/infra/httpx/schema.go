package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

const placeOrderSchema = `{
  "type": "object",
  "required": ["items", "amount", "address"],
  "properties": {
    "userId": {"type": "string"},
    "customerName": {"type": "string"},
    "amount": {"type": "number", "minimum": 0},
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "price", "quantity", "restaurantId"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "price": {"type": "number", "minimum": 0},
          "quantity": {"type": "integer", "minimum": 1},
          "restaurantId": {"type": "string", "minLength": 1}
        }
      }
    },
    "address": {
      "type": "object",
      "required": ["line1", "city", "state", "postal_code", "country"],
      "properties": {
        "line1": {"type": "string", "minLength": 1},
        "city": {"type": "string", "minLength": 1},
        "state": {"type": "string", "minLength": 1},
        "postal_code": {"type": "string", "minLength": 1},
        "country": {"type": "string", "minLength": 1}
      }
    }
  }
}`

const verifySchema = `{
  "type": "object",
  "required": ["orderId", "success"],
  "properties": {
    "orderId": {"type": "string", "minLength": 1},
    "success": {"type": ["string", "boolean"]}
  }
}`

// statusSchema covers both the order and the item status updates.
const statusSchema = `{
  "type": "object",
  "required": ["orderId", "status"],
  "properties": {
    "orderId": {"type": "string", "minLength": 1},
    "status": {"type": "string", "minLength": 1}
  }
}`

var (
	placeOrderBody = mustSchema(placeOrderSchema)
	verifyBody     = mustSchema(verifySchema)
	statusBody     = mustSchema(statusSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

// ValidateBody rejects requests whose JSON body does not match schema with
// a 400 envelope. The body is buffered and handed on unchanged.
func ValidateBody(schema *gojsonschema.Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, envelope{Message: "unreadable request body"})
				return
			}
			if !json.Valid(body) {
				writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid JSON body"})
				return
			}
			res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid JSON body"})
				return
			}
			if !res.Valid() {
				problems := make([]string, 0, len(res.Errors()))
				for _, e := range res.Errors() {
					problems = append(problems, e.String())
				}
				writeJSON(w, http.StatusBadRequest, envelope{Message: strings.Join(problems, "; ")})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
