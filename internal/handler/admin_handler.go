package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/photodrop-api/internal/service"
)

// AdminAction перечисляет операции поверхности /api/admin
type AdminAction string

const (
	AdminActionPendingUsers   AdminAction = "pending-users"
	AdminActionApproveUser    AdminAction = "approve-user"
	AdminActionRejectUser     AdminAction = "reject-user"
	AdminActionAllUsers       AdminAction = "all-users"
	AdminActionUserCount      AdminAction = "user-count"
	AdminActionAllOrders      AdminAction = "all-orders"
	AdminActionApproveOrder   AdminAction = "approve-order"
	AdminActionUpdatePickup   AdminAction = "update-pickup"
	AdminActionSendReadyEmail AdminAction = "send-ready-email"
	AdminActionCreateCode     AdminAction = "create-code"
	AdminActionCodes          AdminAction = "codes"
	AdminActionClearAll       AdminAction = "clear-all"
	AdminActionSendEmail      AdminAction = "send-email"
	AdminActionExportOrders   AdminAction = "export-orders"
)

// AdminRequest — конверт административных действий
type AdminRequest struct {
	Action AdminAction `json:"action" binding:"required"`

	UserID  uint `json:"user_id"`
	OrderID uint `json:"order_id"`

	PickupInstructions string `json:"pickup_instructions"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// AdminHandler обрабатывает административную поверхность.
// Проверка прав выполнена middleware до входа сюда.
type AdminHandler struct {
	adminService *service.AdminService
	orderService *service.OrderService
	codeService  *service.CodeService
}

func NewAdminHandler(adminService *service.AdminService, orderService *service.OrderService, codeService *service.CodeService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		orderService: orderService,
		codeService:  codeService,
	}
}

// Handle разбирает действие и диспетчеризует его одним switch
func (h *AdminHandler) Handle(c *gin.Context) {
	var req AdminRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	switch req.Action {
	case AdminActionPendingUsers:
		h.pendingUsers(c)
	case AdminActionApproveUser:
		h.approveUser(c, req)
	case AdminActionRejectUser:
		h.rejectUser(c, req)
	case AdminActionAllUsers:
		h.allUsers(c, req)
	case AdminActionUserCount:
		h.userCount(c)
	case AdminActionAllOrders:
		h.allOrders(c)
	case AdminActionApproveOrder:
		h.approveOrder(c, req)
	case AdminActionUpdatePickup:
		h.updatePickup(c, req)
	case AdminActionSendReadyEmail:
		h.sendReadyEmail(c, req)
	case AdminActionCreateCode:
		h.createCode(c)
	case AdminActionCodes:
		h.codes(c)
	case AdminActionClearAll:
		h.clearAll(c)
	case AdminActionSendEmail:
		h.sendEmail(c, req)
	case AdminActionExportOrders:
		h.exportOrders(c)
	default:
		respondMessage(c, http.StatusBadRequest, "unknown action", nil)
	}
}

func (h *AdminHandler) pendingUsers(c *gin.Context) {
	accounts, err := h.adminService.PendingUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "pending users", gin.H{"users": accounts})
}

func (h *AdminHandler) approveUser(c *gin.Context, req AdminRequest) {
	if err := h.adminService.ApproveUser(req.UserID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "user approved", nil)
}

func (h *AdminHandler) rejectUser(c *gin.Context, req AdminRequest) {
	if err := h.adminService.RejectUser(req.UserID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "user rejected and removed", nil)
}

func (h *AdminHandler) allUsers(c *gin.Context, req AdminRequest) {
	accounts, err := h.adminService.AllUsers(req.Limit, req.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "users", gin.H{"users": accounts})
}

func (h *AdminHandler) userCount(c *gin.Context) {
	count, err := h.adminService.UserCount()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "user count", gin.H{"count": count})
}

func (h *AdminHandler) allOrders(c *gin.Context) {
	orders, err := h.orderService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "orders", gin.H{"orders": orders})
}

func (h *AdminHandler) approveOrder(c *gin.Context, req AdminRequest) {
	result, err := h.orderService.ApproveAsAdmin(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.AlreadyApproved {
		respondOK(c, "order was already approved", nil)
		return
	}
	respondOK(c, "order approved, download code sent to the customer", nil)
}

func (h *AdminHandler) updatePickup(c *gin.Context, req AdminRequest) {
	if err := h.orderService.UpdatePickup(req.OrderID, req.PickupInstructions); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "pickup instructions updated", nil)
}

func (h *AdminHandler) sendReadyEmail(c *gin.Context, req AdminRequest) {
	if err := h.orderService.SendReady(c.Request.Context(), req.OrderID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "ready-for-pickup email sent", nil)
}

func (h *AdminHandler) createCode(c *gin.Context) {
	vc, err := h.codeService.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "verification code created", gin.H{
		"code":        vc.Code,
		"folder_path": vc.FolderPath,
		"shared_link": vc.SharedLink,
	})
}

func (h *AdminHandler) codes(c *gin.Context) {
	codes, err := h.codeService.List()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "verification codes", gin.H{"codes": codes})
}

func (h *AdminHandler) clearAll(c *gin.Context) {
	result, err := h.codeService.ClearAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	message := fmt.Sprintf("deleted %d codes", result.Deleted)
	if result.FolderFailures > 0 {
		// Частичные сбои хранилища не отменяют успех операции
		message = fmt.Sprintf("deleted %d codes, %d folders could not be removed", result.Deleted, result.FolderFailures)
	}
	respondOK(c, message, gin.H{
		"deleted":         result.Deleted,
		"folder_failures": result.FolderFailures,
	})
}

func (h *AdminHandler) sendEmail(c *gin.Context, req AdminRequest) {
	result, err := h.adminService.Broadcast(c.Request.Context(), req.Subject, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("broadcast sent to %d recipients, %d failed", result.Sent, result.Failed), gin.H{
		"sent":   result.Sent,
		"failed": result.Failed,
	})
}

// exportOrders выгружает все заказы в XLSX через StreamWriter
func (h *AdminHandler) exportOrders(c *gin.Context) {
	orders, err := h.orderService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("orders_%s", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Заказы"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Ошибка создания StreamWriter: %v", err)
		respondMessage(c, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	headers := []interface{}{"ID", "Email", "Статус", "Файл", "Страна", "Телефон", "Адрес", "Создан", "Оплачен", "Одобрен", "Завершен"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Ошибка записи заголовков: %v", err)
	}

	for i, order := range orders {
		rowNum := i + 2 // первая строка — заголовки
		cell := fmt.Sprintf("A%d", rowNum)
		row := []interface{}{
			order.ID,
			sanitizeForExcel(order.Email),
			string(order.Status),
			sanitizeForExcel(order.FileName),
			sanitizeForExcel(order.Country),
			sanitizeForExcel(order.Phone),
			sanitizeForExcel(order.Address),
			formatExportTime(&order.CreatedAt),
			formatExportTime(order.PaymentRequestedAt),
			formatExportTime(order.ApprovedAt),
			formatExportTime(order.CompletedAt),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AdminHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Ошибка записи Excel в response: %v", err)
	}
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
