package util

// MaskToken oculta el cuerpo de un identificador opaco (push id, secreto,
// api key) dejando visible lo justo para correlacionar en logs.
func MaskToken(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "…" + s[len(s)-2:]
}
