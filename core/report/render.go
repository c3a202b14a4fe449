package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
)

const (
	messagePreviewWidth = 60
	ruleWidth           = 60
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	customerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sellerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// Render writes the human readable validation report of a single scenario.
func Render(w io.Writer, result Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule("="), titleStyle.Render("Validating Scenario: "+result.ScenarioName), rule("="))
	for i, msg := range result.Messages {
		renderMessage(&b, scenario.MessageID(msg, i), msg)
	}

	fmt.Fprintf(&b, "\n%s\n", rule("-"))
	fmt.Fprintf(&b, "Validation Summary for '%s':\n", result.ScenarioName)
	summary := result.Summary
	fmt.Fprintf(&b, "  Messages: %d\n", summary.Messages)
	fmt.Fprintf(&b, "  Customer messages: %d\n", summary.CustomerMessages)
	fmt.Fprintf(&b, "  Seller messages: %d\n", summary.SellerMessages)
	fmt.Fprintf(&b, "  Order actions: %d\n", summary.OrderActions)
	fmt.Fprintf(&b, "  Has payment: %s\n", yesNo(summary.HasPayment))

	if !result.FinalOrder.IsEmpty() {
		b.WriteString("\n  Final Order:\n")
		for _, entry := range result.FinalOrder.Entries() {
			fmt.Fprintf(&b, "    - %sx %s: %s\n", FormatQuantity(entry.Quantity), entry.DisplayName, FormatMoney(entry.Subtotal()))
		}
		fmt.Fprintf(&b, "  Total: %s\n", FormatMoney(result.FinalTotal))
	}

	renderFindings(&b, errorStyle.Render(fmt.Sprintf("Errors (%d):", len(result.Errors))), result.Errors)
	renderFindings(&b, warningStyle.Render(fmt.Sprintf("Warnings (%d):", len(result.Warnings))), result.Warnings)

	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Fprintf(&b, "\n  %s\n", passStyle.Render("All validations passed!"))
	case len(result.Errors) == 0:
		fmt.Fprintf(&b, "\n  %s\n", passStyle.Render(fmt.Sprintf("No errors found (but %d warnings)", len(result.Warnings))))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderRun renders every result followed by the overall verdict.
func RenderRun(w io.Writer, results []Result) error {
	for _, result := range results {
		if err := Render(w, result); err != nil {
			return err
		}
	}

	verdict := passStyle.Render("All scenarios validated successfully!")
	if !AllValid(results) {
		verdict = errorStyle.Render("Some scenarios have errors")
	}
	_, err := fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule("="), verdict, rule("="))
	return err
}

func renderMessage(b *strings.Builder, id string, msg scenario.Message) {
	role := strings.ToUpper(string(msg.Role))
	if role == "" {
		role = "UNKNOWN"
	}
	style := sellerStyle
	if msg.Role == scenario.RoleCustomer {
		style = customerStyle
	}
	text := truncate.StringWithTail(msg.Text, messagePreviewWidth+3, "...")
	fmt.Fprintf(b, "\n[%s] %s: %s\n", id, style.Render(role), text)

	if action := msg.OrderAction; action != nil {
		var details strings.Builder
		fmt.Fprintf(&details, "Order Action: %s\n", action.Type)
		for _, item := range action.Items {
			fmt.Fprintf(&details, "  - %sx %s @ %s\n", FormatQuantity(item.QuantityOr(1)), itemName(item), itemPrice(item))
		}
		b.WriteString(detailStyle.Render(indent.String(strings.TrimRight(details.String(), "\n"), 3)))
		b.WriteString("\n")
	}

	if received := msg.PaymentReceived; received != nil {
		line := fmt.Sprintf("Payment: %s received, %s change", optionalMoney(received.Amount), optionalMoney(received.Change))
		b.WriteString(detailStyle.Render(indent.String(line, 3)))
		b.WriteString("\n")
	}
}

func renderFindings(b *strings.Builder, title string, findings []Finding) {
	if len(findings) == 0 {
		return
	}
	lines := make([]string, 0, len(findings))
	for _, finding := range findings {
		lines = append(lines, "- "+finding.String())
	}
	fmt.Fprintf(b, "\n  %s\n%s\n", title, indent.String(strings.Join(lines, "\n"), 4))
}

func itemName(item scenario.OrderItem) string {
	if item.Name == nil {
		return "<unnamed>"
	}
	return *item.Name
}

func itemPrice(item scenario.OrderItem) string {
	if item.Price == nil {
		return "TBD"
	}
	return FormatMoney(*item.Price)
}

func optionalMoney(amount *float64) string {
	if amount == nil {
		return FormatMoney(0)
	}
	return FormatMoney(*amount)
}

func rule(char string) string {
	return strings.Repeat(char, ruleWidth)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
