package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-ordersim/core/order"
	"github.com/koscakluka/ema-ordersim/core/payment"
	"github.com/koscakluka/ema-ordersim/core/report"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/muesli/reflow/wordwrap"
)

func runBrowse(arguments []string) int {
	flagSet := newFlagSet("browse")

	var configPath string
	var scenariosPath string
	var scenarioName string
	var samples bool

	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&scenariosPath, "scenarios", "", "scenario metadata file (default from config)")
	flagSet.StringVar(&scenarioName, "scenario", scenario.AllScenarios, "scenario to browse or all")
	flagSet.BoolVar(&samples, "samples", false, "browse the built-in sample scenarios")

	if ok, code := parseFlags(flagSet, arguments); !ok {
		return code
	}
	cfg, ok := loadConfig(configPath)
	if !ok {
		return exitInvalidInput
	}
	if scenariosPath == "" {
		scenariosPath = cfg.Scenarios
	}

	var set *scenario.Set
	var err error
	if samples {
		set, err = scenario.Samples().Select(scenarioName)
	} else {
		set, err = loadScenarios(scenariosPath, scenarioName)
	}
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return exitFailure
	}
	if set.Len() == 0 {
		fmt.Fprintln(stdout, "Error: no scenarios to browse")
		return exitFailure
	}

	if _, err := tea.NewProgram(newBrowseModel(set), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

type browseKeyMap struct {
	Next         key.Binding
	Prev         key.Binding
	NextScenario key.Binding
	PrevScenario key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.NextScenario, k.Help, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.NextScenario, k.PrevScenario},
		{k.Help, k.Quit},
	}
}

var browseKeys = browseKeyMap{
	Next: key.NewBinding(
		key.WithKeys("right", "l", "n", " "),
		key.WithHelp("→/n", "next message"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "p"),
		key.WithHelp("←/p", "previous message"),
	),
	NextScenario: key.NewBinding(
		key.WithKeys("tab", "down", "j"),
		key.WithHelp("tab", "next scenario"),
	),
	PrevScenario: key.NewBinding(
		key.WithKeys("shift+tab", "up", "k"),
		key.WithHelp("shift+tab", "previous scenario"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	browseTitleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	browsePaneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	browseCustomerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	browseSellerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	browseFaintStyle    = lipgloss.NewStyle().Faint(true)
	browseWarnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// browseFrame is the state of a scenario after one message.
type browseFrame struct {
	id    string
	msg   scenario.Message
	order *order.Order
	err   error
	check *payment.Result
}

type browseModel struct {
	set      *scenario.Set
	names    []string
	scenario int
	cursor   int
	frames   []browseFrame

	keys  browseKeyMap
	help  help.Model
	width int
}

func newBrowseModel(set *scenario.Set) browseModel {
	m := browseModel{
		set:   set,
		names: set.Names(),
		keys:  browseKeys,
		help:  help.New(),
		width: 100,
	}
	m.selectScenario(0)
	return m
}

func (m *browseModel) selectScenario(index int) {
	m.scenario = (index + len(m.names)) % len(m.names)
	messages, _ := m.set.Get(m.names[m.scenario])
	m.frames = foldFrames(messages)
	m.cursor = 0
}

// foldFrames replays the scripted actions of a scenario, keeping the order
// after every message.
func foldFrames(messages []scenario.Message) []browseFrame {
	frames := make([]browseFrame, 0, len(messages))
	current := order.New()
	for i, msg := range messages {
		frame := browseFrame{id: scenario.MessageID(msg, i), msg: msg}
		if msg.OrderAction != nil {
			next, err := order.Apply(current, *msg.OrderAction)
			if err != nil {
				frame.err = err
			} else {
				current = next
			}
		}
		if received := msg.PaymentReceived; received != nil && received.Amount != nil && received.Change != nil && !current.IsEmpty() {
			check := payment.Validate(current, *received.Amount, *received.Change)
			frame.check = &check
		}
		frame.order = current
		frames = append(frames, frame)
	}
	return frames
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if m.cursor < len(m.frames)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Prev):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.NextScenario):
			m.selectScenario(m.scenario + 1)
		case key.Matches(msg, m.keys.PrevScenario):
			m.selectScenario(m.scenario - 1)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m browseModel) View() string {
	title := browseTitleStyle.Render(fmt.Sprintf("%s (%d/%d)", m.names[m.scenario], m.scenario+1, len(m.names)))
	if len(m.frames) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, browseFaintStyle.Render("  no messages"), m.help.View(m.keys))
	}

	paneWidth := max(m.width/2-4, 20)
	dialogue := browsePaneStyle.Width(paneWidth).Render(m.dialogueView(paneWidth))
	current := browsePaneStyle.Width(paneWidth).Render(m.orderView())

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, dialogue, current),
		m.help.View(m.keys),
	)
}

func (m browseModel) dialogueView(width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message %d of %d\n", m.cursor+1, len(m.frames))
	for _, frame := range m.frames[:m.cursor+1] {
		style := browseSellerStyle
		if frame.msg.Role == scenario.RoleCustomer {
			style = browseCustomerStyle
		}
		role := strings.ToUpper(string(frame.msg.Role))
		fmt.Fprintf(&b, "\n%s %s\n", browseFaintStyle.Render("["+frame.id+"]"), style.Render(role))
		b.WriteString(wordwrap.String(frame.msg.Text, width-2))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m browseModel) orderView() string {
	frame := m.frames[m.cursor]

	var b strings.Builder
	b.WriteString("Order\n")
	if frame.order.IsEmpty() {
		b.WriteString(browseFaintStyle.Render("  (empty)"))
		b.WriteString("\n")
	}
	for _, entry := range frame.order.Entries() {
		price := "TBD"
		if entry.Price != nil {
			price = report.FormatMoney(*entry.Price)
		}
		fmt.Fprintf(&b, "  %sx %s @ %s = %s\n", report.FormatQuantity(entry.Quantity), entry.DisplayName, price, report.FormatMoney(entry.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", report.FormatMoney(frame.order.Total()))

	if action := frame.msg.OrderAction; action != nil {
		fmt.Fprintf(&b, "\n%s\n", browseFaintStyle.Render(fmt.Sprintf("%s %d item(s)", action.Type, len(action.Items))))
	}
	if frame.err != nil {
		fmt.Fprintf(&b, "%s\n", browseWarnStyle.Render("Action rejected: "+frame.err.Error()))
	}
	if frame.check != nil {
		line := fmt.Sprintf("Expected change: %s", report.FormatMoney(frame.check.ExpectedChange))
		if frame.check.Mismatch {
			line = browseWarnStyle.Render(line + " (mismatch)")
		}
		fmt.Fprintf(&b, "\n%s\n", line)
	}
	return strings.TrimRight(b.String(), "\n")
}
