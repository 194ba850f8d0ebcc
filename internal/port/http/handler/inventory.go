package handler

import (
	"net/http"

	"github.com/TeninChristopher/SAM/internal/adapter/csvrows"
	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/service"
)

const maxImportBytes = 5 << 20

// InventoryHandler serves a farmer's harvested products.
type InventoryHandler struct {
	ledger service.InventoryLedger
	log    logger.Logger
}

func NewInventoryHandler(ledger service.InventoryLedger, log logger.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, log: log}
}

type upsertProductRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	ReapDate string  `json:"reap_date"`
}

func (h *InventoryHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	products, err := h.ledger.Products(r.Context(), sess)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, products)
}

func (h *InventoryHandler) HandleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req upsertProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	product, err := h.ledger.UpsertProduct(r.Context(), sess, req.Name, req.Quantity, req.ReapDate)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, product)
}

// HandleImportProducts takes a CSV body with name, quantity and reap_date columns.
func (h *InventoryHandler) HandleImportProducts(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rows, err := csvrows.Read(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, h.log, apperr.Validation("products.import", err.Error()))
		return
	}
	result, err := h.ledger.BulkUpload(r.Context(), sess, rows)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Infof("Imported products for farmer %s: accepted=%d rejected=%d", sess.FarmerID, result.Accepted, len(result.Rejected))
	writeJSON(w, h.log, http.StatusOK, result)
}
