package service

import "strings"

// normalizeEmail приводит email к канонической форме: нижний регистр без
// окружающих пробелов. Все сравнения email в системе выполняются по этой форме.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
