package stages

import (
	"encoding/json"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/shaiso/Itinera/internal/provider"
)

// MaxResults — максимум нормализованных записей на шаг.
const MaxResults = 5

// Значения по умолчанию для отсутствующих полей.
const (
	unknownValue   = "Unknown"
	unknownAirline = "Unknown Airline"

	placeholderBase = "https://placehold.co/400x300?text="

	labelHotelImage    = "Hotel Image"
	labelActivityImage = "Activity Image"
	labelCityImage     = "City Image"
)

// textPolicy удаляет любую разметку из текста провайдера.
var textPolicy = bluemonday.StrictPolicy()

// PlaceholderImage возвращает URL картинки-заглушки с подписью label.
func PlaceholderImage(label string) string {
	return placeholderBase + url.QueryEscape(label)
}

// limit возвращает первые MaxResults записей.
func limit(records []provider.Record) []provider.Record {
	if len(records) > MaxResults {
		return records[:MaxResults]
	}
	return records
}

// sanitize очищает текст от HTML и возвращает его в виде plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// getText извлекает текстовое значение поля.
// Числа форматируются без лишних нулей; пустые и нестроковые значения дают "".
func getText(rec provider.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return sanitize(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	}
	return ""
}

// textOr возвращает getText или fallback, если значение пустое.
func textOr(rec provider.Record, key, fallback string) string {
	if s := getText(rec, key); s != "" {
		return s
	}
	return fallback
}

// getURL извлекает URL поля. Разрешены только http(s) ссылки.
func getURL(rec provider.Record, key string) string {
	s, ok := rec[key].(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return s
}

// urlOr возвращает getURL или placeholder с подписью label.
func urlOr(rec provider.Record, key, label string) string {
	if s := getURL(rec, key); s != "" {
		return s
	}
	return PlaceholderImage(label)
}

// getNumber извлекает число (float64 или числовую строку). По умолчанию 0.
func getNumber(rec provider.Record, key string) float64 {
	switch val := rec[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// getList извлекает список строк. Элементы могут быть строками
// или объектами с полем "name".
func getList(rec provider.Record, key string) []string {
	items, ok := rec[key].([]any)
	if !ok {
		if s := getText(rec, key); s != "" {
			return []string{s}
		}
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = sanitize(v)
		case map[string]any:
			s = getText(v, "name")
		}
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// getSummary извлекает поле, которое бывает строкой или объектом
// (например, погода). Объект сериализуется в компактный JSON.
func getSummary(rec provider.Record, key string) string {
	switch v := rec[key].(type) {
	case string:
		return sanitize(v)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return getText(rec, key)
}
