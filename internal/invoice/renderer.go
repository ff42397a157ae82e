package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/shared"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(
	template.New("invoice.html").
		Funcs(template.FuncMap{"inr": shared.FormatINR}).
		ParseFS(templateFS, "templates/invoice.html"),
)

type templateData struct {
	Title      string
	Invoice    Invoice
	Order      orders.Order
	Completion bool
}

// RenderHTML builds the printable document for one invoice.
func RenderHTML(inv Invoice, o orders.Order) (string, error) {
	data := templateData{
		Title:      "Tax Invoice",
		Invoice:    inv,
		Order:      o,
		Completion: inv.Kind == KindCompletion,
	}
	if data.Completion {
		data.Title = "Payment Completion Invoice"
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return buf.String(), nil
}
