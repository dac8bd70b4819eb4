// Package api exposes the checkout engine over HTTP with JSON bodies.
package api

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/market-teller/internal/catalog"
	"github.com/xenking/market-teller/internal/checkout"
)

// Handler serves the catalog and checkout endpoints, delegating business
// logic to the injected teller and repositories.
type Handler struct {
	products catalog.Repository
	teller   *checkout.Teller
	printer  *checkout.Printer
	metrics  *checkoutMetrics
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products catalog.Repository, teller *checkout.Teller, printer *checkout.Printer) *Handler {
	return &Handler{
		products: products,
		teller:   teller,
		printer:  printer,
		metrics:  newCheckoutMetrics(),
	}
}

// Routes registers all API endpoints on a new ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	return mux
}

// writeError responds with a JSON error body {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, code int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeJSON responds 200 with the encoder's accumulated JSON.
func writeJSON(w http.ResponseWriter, r *http.Request, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}
