package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"orderledger/internal/journal"
)

const (
	pollInterval = 2 * time.Second
	maxRows      = 50
)

// DeliveryLister is the journal query surface the TUI needs.
type DeliveryLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Delivery, error)
}

type deliveriesMsg []journal.Delivery
type errMsg struct{ err error }
type tickMsg time.Time

// Model is the BubbleTea model for the delivery watch TUI.
type Model struct {
	lister DeliveryLister

	width  int
	height int

	table     table.Model
	theme     Theme
	lastFetch time.Time
	lastError string
}

// New creates a new watch model reading from lister.
func New(lister DeliveryLister) *Model {
	columns := []table.Column{
		{Title: "Received", Width: 19},
		{Title: "Topic", Width: 18},
		{Title: "Order", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "Tries", Width: 5},
		{Title: "Error", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	t.SetStyles(styles)

	return &Model{
		lister: lister,
		table:  t,
		theme:  NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchDeliveries(),
		tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Height > 8 {
			m.table.SetHeight(msg.Height - 8)
		}

	case tickMsg:
		return m, tea.Batch(
			m.fetchDeliveries(),
			tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case deliveriesMsg:
		m.table.SetRows(toRows(msg))
		m.lastFetch = time.Now()
		m.lastError = ""
		return m, nil

	case errMsg:
		m.lastError = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading deliveries..."
	}

	title := m.theme.Title.Render("orderledger — recent deliveries")

	var status string
	if m.lastError != "" {
		status = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	} else if !m.lastFetch.IsZero() {
		status = m.theme.Dim.Render(fmt.Sprintf(" updated %s", m.lastFetch.Format("15:04:05")))
	}

	help := m.theme.Dim.Render(" [q] Quit • [↑/↓] Scroll")

	parts := []string{title, m.theme.Border.Render(m.table.View())}
	if status != "" {
		parts = append(parts, status)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) fetchDeliveries() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deliveries, err := m.lister.Recent(ctx, maxRows)
		if err != nil {
			return errMsg{err: err}
		}
		return deliveriesMsg(deliveries)
	}
}

func toRows(deliveries []journal.Delivery) []table.Row {
	rows := make([]table.Row, 0, len(deliveries))
	for _, d := range deliveries {
		orderRef := d.OrderID
		if d.OrderNumber != 0 {
			orderRef = fmt.Sprintf("#%d", d.OrderNumber)
		}
		rows = append(rows, table.Row{
			d.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			d.Topic,
			orderRef,
			string(d.Status),
			fmt.Sprintf("%d", d.Attempts),
			d.LastError,
		})
	}
	return rows
}
