package msgraph

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// closingPatterns mark the start of a sign-off. Everything from the
// earliest match to the end of the body is dropped.
var closingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Muchas gracias por su apoyo`),
	regexp.MustCompile(`(?i)Gracias por su ayuda`),
	regexp.MustCompile(`(?i)Saludos cordiales`),
	regexp.MustCompile(`(?i)Atentamente`),
	regexp.MustCompile(`(?i)Cordialmente`),
	regexp.MustCompile(`(?i)Quedo atento`),
	regexp.MustCompile(`(?i)Quedamos atentos`),
	regexp.MustCompile(`(?i)Best regards`),
	regexp.MustCompile(`(?i)Kind regards`),
}

// signaturePatterns remove signatures, disclaimers and contact blocks
// that survive the sign-off cut.
var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)DISCLAIMER\s*/\s*AVISO\s+LEGAL:.*`),
	regexp.MustCompile(`(?is)DISCLAIMER:.*`),
	regexp.MustCompile(`(?is)AVISO\s+LEGAL:.*`),
	regexp.MustCompile(`(?is)CONFIDENCIALIDAD:.*`),
	regexp.MustCompile(`(?is)(?:Este mensaje|Esta comunicación|This message|This email).{0,400}?(?:confidencial|privilegiada|privada|confidentiality).*`),
	regexp.MustCompile(`(?is)La información contenida en este mensaje.*`),
	regexp.MustCompile(`(?is)Si usted no es el destinatario.*`),
	regexp.MustCompile(`(?is)Si responde a este mensaje.*`),
	regexp.MustCompile(`(?im)^(?:Muchas gracias|Gracias|Saludos|Atentamente|Cordialmente|Regards|Best regards)[.,]?.*$`),
	regexp.MustCompile(`(?i)T\.\s*[\d\-\+\(\)]+`),
	regexp.MustCompile(`(?i)Tel[:.]?\s*[\d\-\+\(\)]+`),
	regexp.MustCompile(`(?i)Cel[:.]?\s*[\d\-\+\(\)]+`),
	regexp.MustCompile(`(?i)(?:Email|E-mail|Correo)[:\s]+[\w.\-]+@[\w.\-]+`),
	regexp.MustCompile(`(?i)(?:Teléfono|Telefono|Phone)[:\s]*[\d\-\+\(\)]+`),
	regexp.MustCompile(`(?i)(?:Móvil|Movil|Mobile)[:\s]*[\d\-\+\(\)]+`),
	regexp.MustCompile(`[─━═_\-]{3,}`),
	regexp.MustCompile(`(?is)(?:Antes de imprimir|Before printing).*`),
	regexp.MustCompile(`(?is)(?:Piense|Think).{0,200}?(?:medio ambiente|environment|planeta|planet).*`),
	regexp.MustCompile(`(?is)(?:Síguenos|Siguenos|Follow us|Encuéntranos).*`),
	regexp.MustCompile(`(?i)(?:www\.|https?://)\S+`),
	regexp.MustCompile(`(?is)(?:Este mensaje ha sido|This message has been).{0,200}?(?:escaneado|scanned).*`),
	regexp.MustCompile(`(?is)(?:Política de privacidad|Privacy policy).*`),
	regexp.MustCompile(`(?i)Enviado\s+desde\s+mi.{0,40}?(?:iPhone|iPad|Android|BlackBerry|Samsung)`),
	regexp.MustCompile(`(?i)Sent\s+from\s+my.{0,40}?(?:iPhone|iPad|Android|BlackBerry|Samsung)`),
}

// noisePatterns remove boilerplate greetings and forwarding notes.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Se comparte cuerpo del correo del usuario:.*?Nota:`),
	regexp.MustCompile(`(?is)Nota: se adjunta correo donde se brinde más información.*`),
	regexp.MustCompile(`(?i)Se adjunta correo con más detalle`),
	regexp.MustCompile(`(?i)Se adjunta cuerpo de correo:`),
	regexp.MustCompile(`(?i)Buenos días,?|Buenas tardes,?|Buen día,?`),
	regexp.MustCompile(`(?i)Estimados:?`),
	regexp.MustCompile(`(?i)Sinceramente,`),
	regexp.MustCompile(`(?is)Quedamos atentos.*?Saludos cordiales\.`),
	regexp.MustCompile(`(?is)En espera de sus comentarios\.\s*Gracias`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeStats reports how much a normalization pass reduced the
// body.
type NormalizeStats struct {
	OriginalLength   int     `json:"original_length"`
	NormalizedLength int     `json:"normalized_length"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// NormalizeBody converts an email body to clean plain text: HTML is
// stripped, sign-offs, signatures and disclaimers are removed, accents
// and whitespace are standardized.
func NormalizeBody(content, contentType string) (string, NormalizeStats) {
	text := content
	if strings.EqualFold(contentType, "html") {
		text = HTMLToText(content)
	}
	original := len(text)

	text = cutAtClosing(text)
	for _, re := range signaturePatterns {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = stripAccents(text)
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))

	stats := NormalizeStats{
		OriginalLength:   original,
		NormalizedLength: len(text),
	}
	if original > 0 {
		stats.ReductionPercent = 100 * float64(original-len(text)) / float64(original)
	}
	return text, stats
}

// cutAtClosing truncates at the earliest sign-off marker.
func cutAtClosing(text string) string {
	cutoff := len(text)
	for _, re := range closingPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] < cutoff {
			cutoff = loc[0]
		}
	}
	return strings.TrimSpace(text[:cutoff])
}

// HTMLToText extracts readable text from an HTML body, skipping style
// and script content.
func HTMLToText(content string) string {
	if content == "" {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var sb strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(whitespaceRe.ReplaceAllString(sb.String(), " "))
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "style", "script", "head":
				skipDepth++
			case "br", "p", "div", "tr", "li":
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "style", "script", "head":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.WriteString(string(tokenizer.Text()))
				sb.WriteString(" ")
			}
		}
	}
}

// stripAccents removes combining marks after NFKD decomposition.
func stripAccents(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
