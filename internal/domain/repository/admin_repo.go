package repository

// AdminRepository определяет доступ к allow-list администраторов
type AdminRepository interface {
	// IsAdmin проверяет наличие email в allow-list. Вызывается на каждом
	// привилегированном запросе; результат не кешируется.
	IsAdmin(email string) (bool, error)
}
