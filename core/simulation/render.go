package simulation

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-ordersim/core/report"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/muesli/reflow/indent"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	roleStyle    = lipgloss.NewStyle().Bold(true)
	parsedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	scriptStyle  = lipgloss.NewStyle().Faint(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func RenderHeader(w io.Writer, name string) error {
	line := strings.Repeat("#", 60)
	_, err := fmt.Fprintf(w, "\n%s\n# %s\n%s\n", line, headerStyle.Render("Simulating Scenario: "+name), line)
	return err
}

// RenderStep writes a single replayed message with what the parser made of
// it and the scripted details.
func RenderStep(w io.Writer, step Step) error {
	var b strings.Builder
	role := strings.ToUpper(string(step.Role))
	if role == "" {
		role = "UNKNOWN"
	}
	fmt.Fprintf(&b, "\n[%s] %s: %s\n", step.MessageID, roleStyle.Render(role), step.Text)

	var details []string
	switch {
	case step.Err != nil:
		details = append(details, failedStyle.Render("Parse failed: "+step.Err.Error()))
	case step.Role == scenario.RoleCustomer && len(step.Actions) == 0 && len(step.Rejected) == 0:
		details = append(details, parsedStyle.Render("Parsed: no order changes"))
	}
	for _, action := range step.Actions {
		details = append(details, parsedStyle.Render("Parsed "+string(action.Type)+":"))
		details = append(details, itemLines(action.Items)...)
	}
	for _, err := range step.Rejected {
		details = append(details, warningStyle.Render("Rejected: "+err.Error()))
	}

	if action := step.ScriptedAction; action != nil {
		details = append(details, scriptStyle.Render("Order Action: "+string(action.Type)))
		for _, line := range itemLines(action.Items) {
			details = append(details, scriptStyle.Render(line))
		}
	}
	if received := step.Payment; received != nil {
		details = append(details, scriptStyle.Render("Payment Received!"))
		details = append(details, scriptStyle.Render("  Amount: "+moneyOrMissing(received.Amount)))
		details = append(details, scriptStyle.Render("  Change: "+moneyOrMissing(received.Change)))
		method := "missing"
		if received.Method != nil {
			method = *received.Method
		}
		details = append(details, scriptStyle.Render("  Method: "+method))
	}
	if check := step.PaymentCheck; check != nil && check.Mismatch {
		details = append(details, warningStyle.Render(fmt.Sprintf("Change mismatch against live order: expected %s",
			report.FormatMoney(check.ExpectedChange))))
	}

	if len(details) > 0 {
		b.WriteString(indent.String(strings.Join(details, "\n"), 2))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary writes the live order the replay ended with.
func RenderSummary(w io.Writer, result *Result) error {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", line, headerStyle.Render("Simulation Complete!"), line)

	if degraded := result.DegradedSteps(); degraded > 0 {
		fmt.Fprintf(&b, "%s\n", failedStyle.Render(fmt.Sprintf("%d of %d steps could not be parsed", degraded, len(result.Steps))))
	}
	if !result.FinalOrder.IsEmpty() {
		b.WriteString("\nFinal Order:\n")
		for _, entry := range result.FinalOrder.Entries() {
			fmt.Fprintf(&b, "  - %sx %s: %s\n", report.FormatQuantity(entry.Quantity), entry.DisplayName, report.FormatMoney(entry.Subtotal()))
		}
		fmt.Fprintf(&b, "\nTotal: %s\n", report.FormatMoney(result.FinalTotal))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func itemLines(items []scenario.OrderItem) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		name := "<unnamed>"
		if item.Name != nil {
			name = *item.Name
		}
		price := "TBD"
		if item.Price != nil {
			price = report.FormatMoney(*item.Price)
		}
		lines = append(lines, fmt.Sprintf("  - %sx %s @ %s", report.FormatQuantity(item.QuantityOr(1)), name, price))
	}
	return lines
}

func moneyOrMissing(amount *float64) string {
	if amount == nil {
		return "missing"
	}
	return report.FormatMoney(*amount)
}
