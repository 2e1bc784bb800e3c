package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/middleware"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/arden-atelier/orderdesk/internal/tabular"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

func (s *Server) GetOrders(w http.ResponseWriter, r *http.Request, params GetOrdersParams) {
	page := 1
	if params.Page != nil && *params.Page > 0 {
		page = *params.Page
	}
	pageSize := store.DefaultPageSize
	if params.PageSize != nil && *params.PageSize > 0 {
		pageSize = min(*params.PageSize, store.MaxPageSize)
	}

	filter := store.OrderFilter{
		Status:     params.Status,
		CustomerID: params.CustomerId,
		OrderFrom:  timePtr(params.OrderFrom),
		OrderTo:    timePtr(params.OrderTo),
		DueFrom:    timePtr(params.DueFrom),
		DueTo:      timePtr(params.DueTo),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if params.Status != nil && !params.Status.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "unknown status "+string(*params.Status), nil)
		return
	}
	if params.Q != nil {
		filter.Search = strings.TrimSpace(*params.Q)
	}

	result, err := s.Store.ListOrders(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to list orders")
		return
	}

	now := s.Engine.Now()
	list := OrderList{Items: make([]Order, 0, len(result.Orders)), Total: result.Total, Page: page, PageSize: pageSize}
	for _, o := range result.Orders {
		list.Items = append(list.Items, mapOrder(o, now))
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) GetOrdersOrderId(w http.ResponseWriter, r *http.Request, orderId openapi_types.UUID) {
	summary, err := s.Store.GetOrder(r.Context(), orderId)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "order_not_found", "Order was not found", nil)
			return
		}
		s.writeDomainError(w, r, err, "Failed to load order")
		return
	}
	items, err := s.Store.ListOrderItems(r.Context(), orderId)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load order items")
		return
	}

	out := mapOrder(summary, s.Engine.Now())
	out.Items = mapOrderItems(items)
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) PostOrders(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}

	draft := orders.OrderDraft{
		CustomerID: req.CustomerId,
		OrderDate:  timePtr(req.OrderDate),
		DueDate:    timePtr(req.DueDate),
		Items:      make([]orders.NewOrderItem, 0, len(req.Items)),
	}
	if req.Code != nil {
		draft.Code = *req.Code
	}
	if req.Status != nil {
		draft.Status = *req.Status
	}
	if req.DepositAmount != nil {
		draft.DepositAmount = *req.DepositAmount
	}
	if req.Note != nil {
		draft.Note = *req.Note
	}
	for _, item := range req.Items {
		draft.Items = append(draft.Items, orders.NewOrderItem{
			ProductName: item.ProductName,
			Color:       item.Color,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	order, added, err := s.Engine.CreateOrder(r.Context(), draft)
	if err != nil && order.ID == uuid.Nil {
		s.writeDomainError(w, r, err, "Failed to create order")
		return
	}

	orderID := order.ID
	metadata := map[string]any{"code": order.DisplayCode(), "items": added}
	if err != nil {
		metadata["itemsError"] = err.Error()
	}
	s.audit(r, audit.Entry{
		Action:     audit.ActionOrderCreated,
		EntityType: audit.EntityOrder,
		EntityID:   &orderID,
		Metadata:   metadata,
	})

	summary, loadErr := s.Store.GetOrder(r.Context(), order.ID)
	if loadErr != nil {
		s.writeDomainError(w, r, loadErr, "Failed to load created order")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(r.Context()).Error("order_items_failed", "order_id", order.ID, "code", order.DisplayCode(), "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "order_items_failed",
			fmt.Sprintf("Order %s was created but its items failed", order.DisplayCode()),
			map[string]any{"orderId": order.ID, "code": order.DisplayCode()},
		)
		return
	}

	items, err := s.Store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load order items")
		return
	}
	out := mapOrder(summary, s.Engine.Now())
	out.Items = mapOrderItems(items)
	httpx.WriteJSON(w, http.StatusCreated, CreateOrderResponse{Order: out, ItemsAdded: added})
}

func (s *Server) GetOrderCodesNext(w http.ResponseWriter, r *http.Request) {
	code, err := s.Engine.NextCode(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to generate order code")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NextCodeResponse{Code: code})
}

func (s *Server) PostOrdersBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}

	status, _ := orders.ParseStatus(string(req.Status))
	result, err := s.Engine.Bulk.Apply(r.Context(), req.OrderIds, status)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to update order status")
		return
	}

	s.auditEach(r, audit.Entry{
		Action:     audit.ActionOrderStatusChanged,
		EntityType: audit.EntityOrder,
		Metadata:   map[string]any{"status": string(result.Status), "bulk": true},
	}, result.Updated)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// PutOrdersOrderIdActualQuantities records produced quantities per item. The
// whole request is rejected if any item is unknown or negative.
func (s *Server) PutOrdersOrderIdActualQuantities(w http.ResponseWriter, r *http.Request, orderId openapi_types.UUID) {
	var req ActualQuantitiesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}

	if _, err := s.Store.GetOrder(r.Context(), orderId); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "order_not_found", "Order was not found", nil)
			return
		}
		s.writeDomainError(w, r, err, "Failed to load order")
		return
	}

	updates := make([]orders.ActualQuantityUpdate, 0, len(req.Items))
	for _, item := range req.Items {
		updates = append(updates, orders.ActualQuantityUpdate{ItemID: item.ItemId, Quantity: item.ActualQuantity})
	}
	items, err := s.Engine.Quantities.Record(r.Context(), orderId, updates)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to update actual quantities")
		return
	}

	orderID := orderId
	s.audit(r, audit.Entry{
		Action:     audit.ActionActualQuantitiesRecorded,
		EntityType: audit.EntityOrder,
		EntityID:   &orderID,
		Metadata:   map[string]any{"items": len(updates)},
	})

	summary, err := s.Store.GetOrder(r.Context(), orderId)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load order")
		return
	}
	out := mapOrder(summary, s.Engine.Now())
	out.Items = mapOrderItems(items)
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) PostOrdersExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}
	if len(req.OrderIds) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "precondition_failed", "no orders selected", nil)
		return
	}
	format := tabular.FormatCSV
	if req.Format != nil && *req.Format != "" {
		format = tabular.Format(strings.ToLower(*req.Format))
	}
	if format != tabular.FormatCSV && format != tabular.FormatXLSX {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "format must be csv or xlsx", nil)
		return
	}

	list, err := s.Store.ListOrdersByIDs(r.Context(), req.OrderIds)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load orders for export")
		return
	}

	now := s.Engine.Now()
	var buf bytes.Buffer
	contentType := "text/csv"
	if format == tabular.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = tabular.WriteOrdersXLSX(&buf, list, now)
	} else {
		err = tabular.WriteOrdersCSV(&buf, list, now)
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate export", nil)
		return
	}

	filename := fmt.Sprintf("orders-%s.%s", now.Format("20060102"), format)
	s.audit(r, audit.Entry{
		Action:     audit.ActionOrdersExported,
		EntityType: audit.EntityOrder,
		Metadata: map[string]any{
			"filename": filename,
			"orders":   len(list),
		},
	})

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
