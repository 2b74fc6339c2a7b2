package seats

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const defaultTenantID = "126"

// TokenClaims полезная нагрузка bearer-токена.
// Подпись не проверяется: токен выдан самим сервисом, нам из него нужны
// только TenantId для заголовка и studentId для ключей дедупликации.
type TokenClaims struct {
	TenantID  string
	StudentID string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// stripBearer убирает префикс "Bearer " если он есть
func stripBearer(token string) string {
	t := strings.TrimSpace(token)
	return strings.TrimPrefix(t, "Bearer ")
}

// normalizeBearer гарантирует префикс "Bearer " для заголовка Authorization
func normalizeBearer(token string) string {
	t := strings.TrimSpace(token)
	if strings.HasPrefix(t, "Bearer ") {
		return t
	}
	return "Bearer " + t
}

// DecodeToken разбирает payload-сегмент JWT без проверки подписи.
// При любой ошибке возвращает claims с дефолтным TenantId: отметка с
// дефолтным тенантом полезнее отказа из-за кривого токена.
func DecodeToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{TenantID: defaultTenantID}

	parts := strings.Split(stripBearer(token), ".")
	if len(parts) < 2 {
		return claims, fmt.Errorf("token has no payload segment")
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return claims, fmt.Errorf("decode token payload: %w", err)
	}

	// Поля с нестабильными типами разбираем вручную: TenantId бывает строкой
	// и числом, name - списком [имя, email]
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return claims, fmt.Errorf("unmarshal token payload: %w", err)
	}

	if v, ok := raw["TenantId"]; ok {
		if s := flexString(v); s != "" {
			claims.TenantID = s
		}
	}
	if v, ok := raw["studentId"]; ok {
		claims.StudentID = flexString(v)
	}
	if v, ok := raw["name"]; ok {
		var names []string
		if err := json.Unmarshal(v, &names); err == nil {
			if len(names) > 0 {
				claims.Name = names[0]
			}
			if len(names) > 1 {
				claims.Email = names[1]
			}
		} else {
			claims.Name = flexString(v)
		}
	}
	if v, ok := raw["exp"]; ok {
		var exp int64
		if err := json.Unmarshal(v, &exp); err == nil && exp > 0 {
			claims.ExpiresAt = time.Unix(exp, 0)
		}
	}

	return claims, nil
}

// flexString декодирует JSON-значение в строку независимо от того,
// строка там или число
func flexString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
