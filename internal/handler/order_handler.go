package handler

import (
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/service"
)

// OrderAction перечисляет операции поверхности /api/orders
type OrderAction string

const (
	OrderActionUpload         OrderAction = "upload"
	OrderActionStatus         OrderAction = "status"
	OrderActionHistory        OrderAction = "history"
	OrderActionRequestPayment OrderAction = "request-payment"
	OrderActionRedeemCode     OrderAction = "redeem-code"
)

// OrderRequest — конверт действий заказа. Файл передается полем file_data
// в base64 рядом с метаданными.
type OrderRequest struct {
	Action OrderAction `json:"action" binding:"required"`

	FileName string `json:"file_name"`
	FileData string `json:"file_data"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`

	OrderID uint   `json:"order_id"`
	Code    string `json:"code"`
}

// OrderHandler обрабатывает пользовательские операции с заказами
type OrderHandler struct {
	orderService *service.OrderService
	codeService  *service.CodeService
}

func NewOrderHandler(orderService *service.OrderService, codeService *service.CodeService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		codeService:  codeService,
	}
}

// Handle разбирает действие и диспетчеризует его одним switch.
// Email берется из контекста, который заполнил RequireAuth.
func (h *OrderHandler) Handle(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	email := c.GetString("email")

	switch req.Action {
	case OrderActionUpload:
		h.upload(c, email, req)
	case OrderActionStatus:
		h.status(c, email)
	case OrderActionHistory:
		h.history(c, email)
	case OrderActionRequestPayment:
		h.requestPayment(c, email, req)
	case OrderActionRedeemCode:
		h.redeemCode(c, email, req)
	default:
		respondMessage(c, http.StatusBadRequest, "unknown action", nil)
	}
}

func (h *OrderHandler) upload(c *gin.Context, email string, req OrderRequest) {
	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "file_data must be valid base64", nil)
		return
	}

	order, err := h.orderService.Upload(c.Request.Context(), service.UploadInput{
		Email:    email,
		FileName: req.FileName,
		Data:     data,
		Country:  req.Country,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "order created", gin.H{"order": orderView(order)})
}

func (h *OrderHandler) status(c *gin.Context, email string) {
	order, err := h.orderService.Status(email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "current order", gin.H{"order": orderView(order)})
}

func (h *OrderHandler) history(c *gin.Context, email string) {
	orders, err := h.orderService.History(email)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]gin.H, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	respondOK(c, "order history", gin.H{"orders": views})
}

func (h *OrderHandler) requestPayment(c *gin.Context, email string, req OrderRequest) {
	if err := h.orderService.RequestPayment(c.Request.Context(), email, req.OrderID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "payment recorded, awaiting admin approval", nil)
}

func (h *OrderHandler) redeemCode(c *gin.Context, email string, req OrderRequest) {
	link, err := h.codeService.Redeem(c.Request.Context(), req.Code, email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "code accepted", gin.H{"download_url": link})
}

// HandleApprove обслуживает GET-ссылку одобрения из письма администратору.
// Аутентификация — только вшитый в ссылку capability-токен; результат
// рендерится небольшой HTML-страницей, потому что ссылку открывают
// в браузере из почтового клиента.
func (h *OrderHandler) HandleApprove(c *gin.Context) {
	orderIDRaw := c.Query("orderId")
	token := c.Query("token")

	orderID64, err := strconv.ParseUint(orderIDRaw, 10, 32)
	if err != nil || orderID64 == 0 {
		approvePage(c, http.StatusBadRequest, "Некорректная ссылка одобрения.")
		return
	}

	result, err := h.orderService.Approve(c.Request.Context(), uint(orderID64), token)
	if err != nil {
		approvePage(c, http.StatusBadRequest, "Не удалось одобрить заказ. Ссылка недействительна или устарела.")
		return
	}
	if result.AlreadyApproved {
		approvePage(c, http.StatusOK, fmt.Sprintf("Заказ %d уже был одобрен ранее.", result.Order.ID))
		return
	}
	approvePage(c, http.StatusOK, fmt.Sprintf("Заказ %d одобрен. Клиент получил код для скачивания.", result.Order.ID))
}

func approvePage(c *gin.Context, status int, message string) {
	const page = `<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Одобрение заказа</title></head>
<body style="font-family: sans-serif; max-width: 40em; margin: 4em auto;">
<h1>Одобрение заказа</h1>
<p>%s</p>
</body>
</html>`
	c.Data(status, "text/html; charset=utf-8", []byte(fmt.Sprintf(page, html.EscapeString(message))))
}

// orderView приводит заказ к форме ответа API
func orderView(order *entity.Order) gin.H {
	view := gin.H{
		"id":         order.ID,
		"status":     order.Status,
		"file_name":  order.FileName,
		"country":    order.Country,
		"phone":      order.Phone,
		"address":    order.Address,
		"created_at": order.CreatedAt,
	}
	if order.PickupInstructions != "" {
		view["pickup_instructions"] = order.PickupInstructions
	}
	return view
}
