package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labelpal/pkg/config"
	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "inspect [project.toml | result.json]",
		Short: "Browse placed and unplaced labels",
		Long: `Inspect opens an interactive table of every label of a placement. The input is
either a project file, which is placed first, or a result written by
"labelpal place -f json".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.loadResult(cmd.Context(), args[0], noCache)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newLabelListModel(res), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// loadResult reads a result file or places a project.
func (c *CLI) loadResult(ctx context.Context, path string, noCache bool) (*labelio.Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return labelio.ImportJSON(path)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	project, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	result, err := c.execute(ctx, runner, pipeline.Options{
		Project: project,
		Logger:  c.Logger,
		Client:  newSourceClient(noCache),
	})
	if err != nil {
		return nil, err
	}
	return result.Placement, nil
}

// =============================================================================
// LabelListModel - Interactive label table
// =============================================================================

// labelFilter selects which labels the table shows.
type labelFilter int

const (
	filterAll labelFilter = iota
	filterPlaced
	filterUnplaced
)

func (f labelFilter) String() string {
	switch f {
	case filterPlaced:
		return "placed"
	case filterUnplaced:
		return "unplaced"
	}
	return "all"
}

// labelRow is a label with its placement state.
type labelRow struct {
	labelio.Label
	placed bool
}

// LabelListModel is the bubbletea model for browsing a placement.
type LabelListModel struct {
	Result *labelio.Result
	Filter labelFilter
	Rows   []labelRow
	Cursor int
	Height int
	Offset int
}

// newLabelListModel creates a label list model showing every label.
func newLabelListModel(res *labelio.Result) LabelListModel {
	m := LabelListModel{Result: res, Height: 15}
	m.Rows = m.rows()
	return m
}

func (m LabelListModel) rows() []labelRow {
	var rows []labelRow
	if m.Filter != filterUnplaced {
		for _, l := range m.Result.Labels {
			rows = append(rows, labelRow{Label: l, placed: true})
		}
	}
	if m.Filter != filterPlaced {
		for _, l := range m.Result.Unplaced {
			rows = append(rows, labelRow{Label: l})
		}
	}
	return rows
}

func (m LabelListModel) Init() tea.Cmd {
	return nil
}

func (m LabelListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			m.Filter = (m.Filter + 1) % 3
			m.Rows = m.rows()
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LabelListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Labels"))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %d placed · %d unplaced · cost %.4g",
		m.Result.Status, len(m.Result.Labels), len(m.Result.Unplaced), m.Result.Cost)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab filter (" + m.Filter.String() + ")  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Rows))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		state := "✓"
		pos := fmt.Sprintf("%.1f, %.1f", r.X, r.Y)
		if !r.placed {
			state = "✗"
		}
		rows = append(rows, []string{cursor, r.Layer, r.Text, state, pos, fmt.Sprintf("%.4g", r.Cost)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Layer", "Text", "Placed", "Position", "Cost").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			if !m.Rows[idx].placed {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Rows)), len(m.Rows))))

	return b.String()
}
