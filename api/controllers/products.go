package controllers

import (
	"net/http"

	"github.com/mljjcooking/storefront-backend/api/responses"
	catalogsvc "github.com/mljjcooking/storefront-backend/internal/catalog"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
)

// ListProducts returns the active catalog for the storefront.
func ListProducts(svc catalogsvc.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}
